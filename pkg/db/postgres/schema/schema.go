// Package schema upgrades and watches the database schema.
//
// A schema repository is a directory with numbered subdirectories:
//
//	schema/postgres/
//	├── 1/
//	│   ├── 00_schema_version.sql
//	│   └── 10_quote.sql
//	└── 2/
//	    └── 10_ticket_priority.sql
//
// Each version directory is applied in a transaction, its *.sql files in lexical order.
package schema

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	kpool "github.com/confixenvios/confixenvios-sub003/pkg/conn/db/postgres/pool"
	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
)

// ErrOutdated is the cause of contexts cancelled by Context
// when the database is behind the schema repository.
var ErrOutdated = errors.New("schema is outdated")

type pgSchema struct {
	pool       kpool.Pool
	repository string
}

// New creates a schema manager reading versions from repository.
func New(pool kpool.Pool, repository string) *pgSchema {
	return &pgSchema{pool: pool, repository: repository}
}

type version struct {
	Number int
	Dir    string
}

func (v version) apply(ctx context.Context, conn kpool.Queryer) error {
	files := []string{}
	if err := filepath.WalkDir(v.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return err
	}
	slices.Sort(files)

	for _, f := range files {
		query, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, string(query)); err != nil {
			return xe.WrapWithNote(f, err)
		}
	}
	return nil
}

// Version returns the schema version applied to the database.
//
// 0 means no schema has been applied yet.
func (s *pgSchema) Version(ctx context.Context) (int, error) {
	return currentVersion(ctx, s.pool)
}

func currentVersion(ctx context.Context, conn kpool.Queryer) (int, error) {
	var v *int
	err := conn.QueryRow(ctx, `select max("version") from "schema_version"`).Scan(&v)
	if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UndefinedTable {
		return 0, nil
	}
	if err != nil {
		return -1, err
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

// Upgrade applies versions newer than the database has.
func (s *pgSchema) Upgrade(ctx context.Context) error {
	versions, err := s.versions()
	if err != nil {
		return err
	}

	current, err := s.Version(ctx)
	if err != nil {
		return xe.Wrap(err)
	}

	for _, v := range versions {
		if v.Number <= current {
			continue
		}
		if err := s.upgradeTo(ctx, v); err != nil {
			return fmt.Errorf("upgrading to version %d: %w", v.Number, err)
		}
	}
	return nil
}

func (s *pgSchema) upgradeTo(ctx context.Context, v version) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := v.apply(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `delete from "schema_version"`); err != nil {
		return err
	}
	if _, err := tx.Exec(
		ctx, `insert into "schema_version" ("version") values ($1)`, v.Number,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Context returns a context which is cancelled when the database schema
// is (or becomes) older than the repository.
//
// The cause of the cancellation wraps ErrOutdated.
func (s *pgSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancelCause(ctx)

	check := func() {
		versions, err := s.versions()
		if err != nil {
			cancel(fmt.Errorf("reading schema repository: %w", err))
			return
		}
		current, err := s.Version(cctx)
		if err != nil {
			cancel(fmt.Errorf("reading schema version: %w", err))
			return
		}
		if len(versions) == 0 {
			return
		}
		if latest := versions[len(versions)-1].Number; current < latest {
			cancel(fmt.Errorf("%w: %d (database) < %d (repository)", ErrOutdated, current, latest))
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return cctx, func() {}
	}
	if err := w.Add(s.repository); err != nil {
		w.Close()
		cancel(err)
		return cctx, func() {}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case err := <-w.Errors:
				cancel(err)
				return
			case ev := <-w.Events:
				if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					check()
				}
			}
		}
	}()

	check()
	return cctx, func() { cancel(nil) }
}

// versions lists version directories in the repository, in ascending order.
func (s *pgSchema) versions() ([]version, error) {
	entries, err := os.ReadDir(s.repository)
	if err != nil {
		return nil, err
	}

	vs := make([]version, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil || n <= 0 {
			continue
		}
		vs = append(vs, version{Number: n, Dir: filepath.Join(s.repository, e.Name())})
	}
	slices.SortFunc(vs, func(a, b version) int { return cmp.Compare(a.Number, b.Number) })
	return vs, nil
}

// Null is a schema manager for databases without schema repository.
//
// It never upgrades and never cancels contexts.
func Null() *nullSchema {
	return &nullSchema{}
}

type nullSchema struct{}

func (nullSchema) Upgrade(context.Context) error {
	return errors.New("no schema repository is configured")
}

func (nullSchema) Version(context.Context) (int, error) {
	return -1, nil
}

func (nullSchema) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	return ctx, func() {}
}
