package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	"github.com/confixenvios/confixenvios-sub003/pkg/db"
)

// requested data is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}

func (m Missing) Unwrap() error {
	return db.ErrMissing
}

// a record violates a unique constraint.
type Conflict struct {
	Table      string
	Constraint string
	Cause      error
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("conflict in %s (%s): %s", c.Table, c.Constraint, c.Cause)
}

func (c Conflict) Unwrap() []error {
	return []error{db.ErrConflict, c.Cause}
}

// AsConflict converts unique violations into Conflict. Other errors are returned as they are.
func AsConflict(err error) error {
	if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UniqueViolation {
		return Conflict{Table: pgerr.TableName, Constraint: pgerr.ConstraintName, Cause: err}
	}
	return err
}

// IsForeignKeyViolation reports whether err is caused by a missing referenced row.
func IsForeignKeyViolation(err error) bool {
	pgerr := new(pgconn.PgError)
	return errors.As(err, &pgerr) && pgerr.Code == pgerrcode.ForeignKeyViolation
}
