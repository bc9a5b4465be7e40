// Package pool narrows pgxpool down to interfaces which repositories depend on.
//
// Pool, Conn and Tx are subsets of *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
// pgx types do not satisfy them directly (Go has no covariant return types),
// so wrap a real pool with Wrap.
package pool

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Queryer sends SQL. Implemented by Conn and Tx.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Begin starts a transaction (or a savepoint, on Tx).
type Begin interface {
	Begin(ctx context.Context) (Tx, error)
}

type BeginTx interface {
	Begin
	BeginTx(ctx context.Context, opts pgx.TxOptions) (Tx, error)
}

type Tx interface {
	Queryer
	Begin

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Conn interface {
	BeginTx
	Queryer

	Release()
	Ping(ctx context.Context) error
}

type Pool interface {
	BeginTx
	Queryer

	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close()
}

// Wrap exposes *pgxpool.Pool as Pool.
func Wrap(p *pgxpool.Pool) Pool {
	return &pgxPool{base: p}
}

type pgxTx struct {
	pgx.Tx
}

func wrapTx(tx pgx.Tx, err error) (Tx, error) {
	if tx == nil {
		return nil, err
	}
	return &pgxTx{Tx: tx}, err
}

func (tx *pgxTx) Begin(ctx context.Context) (Tx, error) {
	return wrapTx(tx.Tx.Begin(ctx))
}

type pgxConn struct {
	*pgxpool.Conn
}

func (c *pgxConn) Begin(ctx context.Context) (Tx, error) {
	return wrapTx(c.Conn.Begin(ctx))
}

func (c *pgxConn) BeginTx(ctx context.Context, opts pgx.TxOptions) (Tx, error) {
	return wrapTx(c.Conn.BeginTx(ctx, opts))
}

type pgxPool struct {
	base *pgxpool.Pool
}

func (p *pgxPool) Begin(ctx context.Context) (Tx, error) {
	return wrapTx(p.base.Begin(ctx))
}

func (p *pgxPool) BeginTx(ctx context.Context, opts pgx.TxOptions) (Tx, error) {
	return wrapTx(p.base.BeginTx(ctx, opts))
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.base.Acquire(ctx)
	if c == nil {
		return nil, err
	}
	return &pgxConn{Conn: c}, err
}

func (p *pgxPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return p.base.Exec(ctx, sql, args...)
}

func (p *pgxPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return p.base.Query(ctx, sql, args...)
}

func (p *pgxPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return p.base.QueryRow(ctx, sql, args...)
}

func (p *pgxPool) Ping(ctx context.Context) error {
	return p.base.Ping(ctx)
}

func (p *pgxPool) Close() {
	p.base.Close()
}

var (
	_ Tx   = &pgxTx{}
	_ Conn = &pgxConn{}
	_ Pool = &pgxPool{}
)
