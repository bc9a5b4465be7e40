package mocks

import (
	"context"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

type CTeInterface struct {
	Impl struct {
		Upsert func(ctx context.Context, doc db.CTe) (db.CTe, bool, error)
		Find   func(ctx context.Context, query db.CTeQuery) ([]db.CTe, error)
	}
	Calls struct {
		Upsert CallLog[db.CTe]
		Find   CallLog[db.CTeQuery]
	}
}

func NewCTeInterface() *CTeInterface {
	return &CTeInterface{}
}

var _ db.CTeInterface = &CTeInterface{}

func (m *CTeInterface) Upsert(ctx context.Context, doc db.CTe) (db.CTe, bool, error) {
	m.Calls.Upsert = append(m.Calls.Upsert, doc)
	if m.Impl.Upsert == nil {
		notImplemented()
	}
	return m.Impl.Upsert(ctx, doc)
}

func (m *CTeInterface) Find(ctx context.Context, query db.CTeQuery) ([]db.CTe, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		notImplemented()
	}
	return m.Impl.Find(ctx, query)
}
