// Package repository is the Postgres data access layer. Every repository is
// an interface plus a Postgres* implementation over database/sql + lib/pq.
package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"floodwatch/internal/domain"
)

//go:embed schema.sql
var Schema string

// Migrate applies Schema in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return tx.Commit()
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound and wraps everything else.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// whereBuilder accumulates "col = $n" conditions.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

// next is the placeholder index of the next argument.
func (w *whereBuilder) next() int { return len(w.args) + 1 }

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// expectOne turns a zero-row write into domain.ErrNotFound.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
	}
	return nil
}
