package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
)

const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err is a unique constraint violation, optionally on the given constraint.
func isUniqueViolation(err error, constraint ...string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return false
	}
	return len(constraint) == 0 || pqErr.Constraint == constraint[0]
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func toJSON(v interface{}) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding json")
	}
	return types.JSONText(b), nil
}

// where joins conditions with AND.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// String returns the WHERE clause, with '?' placeholders.
func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE (" + strings.Join(w.conds, ") AND (") + ")"
}

func getExec(def core.DBExecutor, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return def
}
