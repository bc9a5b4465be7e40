package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/confixenvios/confixenvios-sub003/cmd/loops/tasks/dispatch"
	"github.com/confixenvios/confixenvios-sub003/cmd/loops/tasks/housekeeping"
	"github.com/confixenvios/confixenvios-sub003/cmd/loops/tasks/reconcile"
	"github.com/confixenvios/confixenvios-sub003/pkg/configs"
	kdb "github.com/confixenvios/confixenvios-sub003/pkg/db"
	"github.com/confixenvios/confixenvios-sub003/pkg/loop"
	"github.com/confixenvios/confixenvios-sub003/pkg/loop/recurring"
	"github.com/confixenvios/confixenvios-sub003/pkg/payment"
)

type LoopType string

const (
	Dispatch     LoopType = "dispatch"
	Reconcile    LoopType = "reconcile"
	Housekeeping LoopType = "housekeeping"

	// All runs every loop in this process.
	All LoopType = "all"
)

func (t LoopType) String() string {
	return string(t)
}

func AsLoopType(s string) (LoopType, error) {
	switch t := LoopType(s); t {
	case Dispatch, Reconcile, Housekeeping, All:
		return t, nil
	}
	return "", fmt.Errorf("unknown loop type: %q (dispatch|reconcile|housekeeping|all)", s)
}

type LoggerOptions func(*log.Logger) *log.Logger

func byLogger(l *log.Logger, opt ...LoggerOptions) *log.Logger {
	for _, o := range opt {
		l = o(l)
	}
	return l
}

func Copied() LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		return log.New(l.Writer(), l.Prefix(), l.Flags())
	}
}

func WithPrefix(pre string) LoggerOptions {
	return func(l *log.Logger) *log.Logger {
		l.SetPrefix(pre)
		return l
	}
}

// Wrapper for monitoring loop tasks
//
// Log the start and end of each time a task is executed.
func monitor[T any](logger *log.Logger, task loop.Task[T]) loop.Task[T] {
	var counter uint64
	return func(ctx context.Context, t T) (ret T, next loop.Next) {
		counter += 1
		timestamp := time.Now()

		logger.Printf("task start: #0x%X", counter)
		defer func() {
			logger.Printf(
				"task end: #0x%X (takes %s): %s with value = %+v",
				counter, time.Since(timestamp), next, ret,
			)
		}()

		ret, next = task(ctx, t)
		return
	}
}

// Manifest for starting a loop, which determines how the loop should behave.
type LoopManifest struct {
	Type LoopType

	// Policy for the looping
	Policy recurring.Policy

	Config configs.Loops
}

// Deps are what loops work with.
type Deps struct {
	Database kdb.ConfixDatabase
	Sender   dispatch.Sender
	Gateway  payment.Gateway
}

// StartLoop runs loops of manifest.Type until they break or ctx is done.
func StartLoop(ctx context.Context, logger *log.Logger, deps Deps, manifest LoopManifest) error {
	switch manifest.Type {
	case Dispatch:
		return StartDispatchLoop(ctx, logger, deps, manifest)
	case Reconcile:
		return StartReconcileLoop(ctx, logger, deps, manifest)
	case Housekeeping:
		return StartHousekeepingLoop(ctx, logger, deps, manifest)
	case All:
		eg, ectx := errgroup.WithContext(ctx)
		for _, start := range []func(context.Context, *log.Logger, Deps, LoopManifest) error{
			StartDispatchLoop, StartReconcileLoop, StartHousekeepingLoop,
		} {
			start := start // per-iteration copy (Go 1.22 loop semantics)
			eg.Go(func() error { return start(ectx, logger, deps, manifest) })
		}
		return eg.Wait()
	}
	return fmt.Errorf("unknown loop type: %q", manifest.Type)
}

func StartDispatchLoop(ctx context.Context, logger *log.Logger, deps Deps, manifest LoopManifest) error {
	l := byLogger(logger, Copied(), WithPrefix("[dispatch loop] "))
	conf := manifest.Config.Dispatch
	_, err := loop.Start(
		ctx, dispatch.Seed(),
		monitor(
			l,
			dispatch.Task(
				l, deps.Database.Webhooks(), deps.Sender,
				dispatch.Config{MaxAttempts: conf.MaxAttempts},
			).Applied(manifest.Policy),
		),
		// a request and recording its outcome
		loop.WithTimeout(2*conf.Timeout+30*time.Second),
	)
	return err
}

func StartReconcileLoop(ctx context.Context, logger *log.Logger, deps Deps, manifest LoopManifest) error {
	l := byLogger(logger, Copied(), WithPrefix("[reconcile loop] "))
	_, err := loop.Start(
		ctx, reconcile.Seed(),
		monitor(
			l,
			reconcile.Task(
				l, deps.Database.Payments(), deps.Gateway,
				manifest.Config.Reconcile.RecheckInterval, time.Now,
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(manifest.Config.Asaas.Timeout+30*time.Second),
	)
	return err
}

func StartHousekeepingLoop(ctx context.Context, logger *log.Logger, deps Deps, manifest LoopManifest) error {
	l := byLogger(logger, Copied(), WithPrefix("[housekeeping loop] "))
	_, err := loop.Start(
		ctx, housekeeping.Seed(),
		monitor(
			l,
			housekeeping.Task(
				l, deps.Database.Quotes(), deps.Database.Shipments(),
				manifest.Config.Housekeeping.PaymentDeadline, time.Now,
			).Applied(manifest.Policy),
		),
		loop.WithTimeout(time.Minute),
	)
	return err
}
