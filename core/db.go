package core

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is implemented by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause builds an ORDER BY clause from the orderings whose Field is a key of columns
// (json field -> column). Unknown fields are ignored; fallback is used when nothing remains.
func OrderByClause(orderings []DBOrdering, columns map[string]string, fallback string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
