package db

import (
	"context"

	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

type PricingTableInterface interface {
	rating.TableSource

	// List returns all tables, active or not.
	List(ctx context.Context) ([]rating.Table, error)

	// Get returns a table.
	//
	// Error: ErrMissing if no such table.
	Get(ctx context.Context, tableId string) (rating.Table, error)

	// Create stores a new table. The id is assigned.
	Create(ctx context.Context, t rating.Table) (rating.Table, error)

	// Update replaces a table.
	//
	// Error: ErrMissing if no such table.
	Update(ctx context.Context, t rating.Table) (rating.Table, error)

	// SetActive turns a table on or off.
	//
	// Error: ErrMissing if no such table.
	SetActive(ctx context.Context, tableId string, active bool) (rating.Table, error)

	// Delete removes a table.
	//
	// Error: ErrMissing if no such table.
	Delete(ctx context.Context, tableId string) error
}
