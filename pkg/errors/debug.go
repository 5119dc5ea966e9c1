package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logs. The pg_* fields are
// filled when a postgres driver error sits anywhere in the chain.
type ErrorDump struct {
	TopMessage   string   `json:"top_message"`
	Code         Code     `json:"code,omitempty"`
	Chain        []string `json:"chain,omitempty"`
	PGCode       string   `json:"pg_code,omitempty"`
	PGConstraint string   `json:"pg_constraint,omitempty"`
	PGTable      string   `json:"pg_table,omitempty"`
	PGColumn     string   `json:"pg_column,omitempty"`
	PGDetail     string   `json:"pg_detail,omitempty"`
	PGMessage    string   `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for link := err; link != nil; link = stdErrors.Unwrap(link) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", link, link))
	}
	d.fillPostgres(err)
	return d
}

// Fields renders the dump as logger fields, skipping empty pg_* values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	for key, value := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

func (d *ErrorDump) fillPostgres(err error) {
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		d.PGCode, d.PGConstraint, d.PGTable = pgErr.Code, pgErr.ConstraintName, pgErr.TableName
		d.PGColumn, d.PGDetail, d.PGMessage = pgErr.ColumnName, pgErr.Detail, pgErr.Message
		return
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		d.PGCode, d.PGConstraint, d.PGTable = string(pqErr.Code), pqErr.Constraint, pqErr.Table
		d.PGColumn, d.PGDetail, d.PGMessage = pqErr.Column, pqErr.Detail, pqErr.Message
	}
}
