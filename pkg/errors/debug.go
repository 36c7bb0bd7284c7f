package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDetails is the server-side detail of a Postgres failure, from either driver.
type PGDetails struct {
	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Postgres returns the Postgres detail carried anywhere in err's chain, or nil.
func Postgres(err error) *PGDetails {
	if err == nil {
		return nil
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PGDetails{
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PGDetails{
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// LogFields breaks err down for structured logs. None of it is sent to clients.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if te := As(err); te != nil {
		fields["error_code"] = te.Code()
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	if pg := Postgres(err); pg != nil {
		fields["pg_code"] = pg.SQLState
		fields["pg_message"] = pg.Message
		if pg.Detail != "" {
			fields["pg_detail"] = pg.Detail
		}
		if pg.Table != "" {
			fields["pg_table"] = pg.Table
		}
		if pg.Constraint != "" {
			fields["pg_constraint"] = pg.Constraint
		}
		if pg.Column != "" {
			fields["pg_column"] = pg.Column
		}
	}
	return fields
}
