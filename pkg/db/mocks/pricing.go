package mocks

import (
	"context"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/rating"
)

type PricingTableInterface struct {
	Impl struct {
		ActiveTables func(ctx context.Context) ([]rating.Table, error)
		List         func(ctx context.Context) ([]rating.Table, error)
		Get          func(ctx context.Context, tableId string) (rating.Table, error)
		Create       func(ctx context.Context, table rating.Table) (rating.Table, error)
		Update       func(ctx context.Context, table rating.Table) (rating.Table, error)
		SetActive    func(ctx context.Context, tableId string, active bool) (rating.Table, error)
		Delete       func(ctx context.Context, tableId string) error
	}
	Calls struct {
		ActiveTables CallLog[struct{}]
		List         CallLog[struct{}]
		Get          CallLog[string]
		Create       CallLog[rating.Table]
		Update       CallLog[rating.Table]
		SetActive    CallLog[struct {
			TableId string
			Active  bool
		}]
		Delete CallLog[string]
	}
}

func NewPricingTableInterface() *PricingTableInterface {
	return &PricingTableInterface{}
}

var _ db.PricingTableInterface = &PricingTableInterface{}

func (m *PricingTableInterface) ActiveTables(ctx context.Context) ([]rating.Table, error) {
	m.Calls.ActiveTables = append(m.Calls.ActiveTables, struct{}{})
	if m.Impl.ActiveTables == nil {
		notImplemented()
	}
	return m.Impl.ActiveTables(ctx)
}

func (m *PricingTableInterface) List(ctx context.Context) ([]rating.Table, error) {
	m.Calls.List = append(m.Calls.List, struct{}{})
	if m.Impl.List == nil {
		notImplemented()
	}
	return m.Impl.List(ctx)
}

func (m *PricingTableInterface) Get(ctx context.Context, tableId string) (rating.Table, error) {
	m.Calls.Get = append(m.Calls.Get, tableId)
	if m.Impl.Get == nil {
		notImplemented()
	}
	return m.Impl.Get(ctx, tableId)
}

func (m *PricingTableInterface) Create(ctx context.Context, table rating.Table) (rating.Table, error) {
	m.Calls.Create = append(m.Calls.Create, table)
	if m.Impl.Create == nil {
		notImplemented()
	}
	return m.Impl.Create(ctx, table)
}

func (m *PricingTableInterface) Update(ctx context.Context, table rating.Table) (rating.Table, error) {
	m.Calls.Update = append(m.Calls.Update, table)
	if m.Impl.Update == nil {
		notImplemented()
	}
	return m.Impl.Update(ctx, table)
}

func (m *PricingTableInterface) SetActive(ctx context.Context, tableId string, active bool) (rating.Table, error) {
	m.Calls.SetActive = append(m.Calls.SetActive, struct {
		TableId string
		Active  bool
	}{TableId: tableId, Active: active})
	if m.Impl.SetActive == nil {
		notImplemented()
	}
	return m.Impl.SetActive(ctx, tableId, active)
}

func (m *PricingTableInterface) Delete(ctx context.Context, tableId string) error {
	m.Calls.Delete = append(m.Calls.Delete, tableId)
	if m.Impl.Delete == nil {
		notImplemented()
	}
	return m.Impl.Delete(ctx, tableId)
}
