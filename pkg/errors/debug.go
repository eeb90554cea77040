package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const maxChainDepth = 16

// Diagnosis is the log-only view of a failure. None of it reaches clients.
type Diagnosis struct {
	Message  string
	Code     Code
	Chain    []string
	Postgres *PostgresDetail
}

// PostgresDetail carries the server-side fields of a database error, whichever
// driver raised it.
type PostgresDetail struct {
	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// Diagnose walks err's wrap chain and pulls out the typed code and any
// Postgres error underneath.
func Diagnose(err error) Diagnosis {
	if err == nil {
		return Diagnosis{}
	}
	d := Diagnosis{Message: err.Error(), Postgres: postgresDetail(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil && len(d.Chain) < maxChainDepth; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}
	return d
}

// LogFields flattens the diagnosis for a structured log line, leaving out
// empty values.
func (d Diagnosis) LogFields() map[string]any {
	fields := map[string]any{"error": d.Message}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	if pg := d.Postgres; pg != nil {
		for k, v := range map[string]string{
			"pg_code":       pg.SQLState,
			"pg_constraint": pg.Constraint,
			"pg_table":      pg.Table,
			"pg_column":     pg.Column,
			"pg_detail":     pg.Detail,
			"pg_message":    pg.Message,
		} {
			if v != "" {
				fields[k] = v
			}
		}
	}
	return fields
}

func postgresDetail(err error) *PostgresDetail {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &PostgresDetail{
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	// raised when the database is reached through database/sql and lib/pq
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PostgresDetail{
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
