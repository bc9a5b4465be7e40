// Package rating computes freight quotes from carrier pricing tables.
//
// A quote is computed in steps:
//
//  1. find the zone of the destination CEP,
//  2. find the weight band of the chargeable weight (max of actual and cubed weight),
//     charging excess kg over the heaviest band,
//  3. add ad valorem and GRIS (percentages of the declared value) and the dispatch fee,
//  4. add the markup as a percentage of the subtotal.
//
// Every component is rounded half up to the centavo, and the total is their sum.
package rating

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var ErrNoCoverage = errors.New("no carrier covers the route")

// TableSource provides pricing tables to be rated with.
type TableSource interface {
	// ActiveTables returns every active pricing table.
	ActiveTables(ctx context.Context) ([]Table, error)
}

// Estimator gives a quote when no table covers the route.
type Estimator interface {
	Estimate(ctx context.Context, req Request) (Quote, error)
}

type Engine struct {
	tables   TableSource
	fallback Estimator
}

type EngineOption func(*Engine)

// WithFallback makes the engine ask e when no table covers a route.
func WithFallback(e Estimator) EngineOption {
	return func(en *Engine) {
		en.fallback = e
	}
}

func NewEngine(tables TableSource, opts ...EngineOption) *Engine {
	e := &Engine{tables: tables}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rate computes quote options of req.
//
// Options are sorted by total, delivery days, table priority (higher first) and carrier.
//
// Errors:
//
// - ErrInvalidRequest: req is invalid.
//
// - ErrNoCoverage: no table (nor the fallback) gives a quote.
func (e *Engine) Rate(ctx context.Context, req Request) ([]Quote, error) {
	req, err := req.Validate()
	if err != nil {
		return nil, err
	}

	tables, err := e.tables.ActiveTables(ctx)
	if err != nil {
		return nil, err
	}

	options := []Quote{}
	for _, t := range tables {
		if !t.Active || !t.ServesOrigin(req.OriginCEP) {
			continue
		}
		q, err := t.Rate(req)
		if errors.Is(err, ErrNoZone) || errors.Is(err, ErrNoRate) {
			continue
		} else if err != nil {
			return nil, err
		}
		options = append(options, q)
	}

	if len(options) == 0 {
		return e.estimate(ctx, req)
	}

	slices.SortStableFunc(options, compareQuotes)
	return options, nil
}

func (e *Engine) estimate(ctx context.Context, req Request) ([]Quote, error) {
	if e.fallback == nil {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoCoverage, req.OriginCEP, req.DestinationCEP)
	}
	q, err := e.fallback.Estimate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s -> %s: estimation failed: %w", ErrNoCoverage, req.OriginCEP, req.DestinationCEP, err)
	}
	q.Source = FromAI
	q.ActualWeightKg = roundTo10g(req.ActualWeight())
	if q.ChargeableWeightKg == 0 {
		q.ChargeableWeightKg = ceilTo10g(req.ActualWeight())
	}
	q.Total = q.Breakdown.Sum()
	return []Quote{q}, nil
}

func compareQuotes(a, b Quote) int {
	// Equivalent to cmp.Or (Go 1.22+): the first non-zero comparison wins.
	for _, c := range []int{
		cmp.Compare(a.Total, b.Total),
		cmp.Compare(a.DeliveryDays, b.DeliveryDays),
		cmp.Compare(b.Priority, a.Priority),
		strings.Compare(a.Carrier, b.Carrier),
		strings.Compare(a.TableId, b.TableId),
	} {
		if c != 0 {
			return c
		}
	}
	return 0
}

// BusinessDaysAfter returns the day n business days after t.
//
// Saturdays and Sundays are skipped. Holidays are not considered.
func BusinessDaysAfter(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n -= 1
		}
	}
	return t
}
