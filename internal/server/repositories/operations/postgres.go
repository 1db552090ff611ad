// Package operations provides the PostgreSQL-backed operation lock store.
package operations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/dbx"
	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
)

// ErrEmptyQuery is returned when a query names no record or operation.
var ErrEmptyQuery = errors.New("empty operation query")

const operationColumns = `id, record_id, operation_id, operation_name, progress, progress_of, page, pages,
	message, text_delta, page_delta, record_text, started_on, started_on_user_agent, started_on_session_id,
	last_step, last_step_user_agent, last_step_session_id, finished, errored, error_message`

// PostgresRepository implements lock storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// where renders the selector of q. Record id lists travel as one
// comma-joined text parameter.
func where(q models.OperationQuery) (string, any, error) {
	switch {
	case q.OperationID != "":
		return "operation_id = $1", q.OperationID, nil
	case q.RecordID != 0:
		return "record_id = $1", q.RecordID, nil
	case len(q.RecordIDs) > 0:
		ids := make([]string, len(q.RecordIDs))
		for i, id := range q.RecordIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		return "record_id = ANY(string_to_array($1, ',')::bigint[])", strings.Join(ids, ","), nil
	default:
		return "", nil, ErrEmptyQuery
	}
}

func opArgs(op *models.OperationLock) []any {
	var startedOn, lastStep any
	if op.StartedOn != nil {
		startedOn = *op.StartedOn
	}
	if op.LastStep != nil {
		lastStep = *op.LastStep
	}
	return []any{
		op.RecordID, op.OperationID, op.OperationName, op.Progress, op.ProgressOf, op.Page, op.Pages,
		op.Message, op.TextDelta, op.PageDelta, op.RecordText,
		startedOn, op.StartedOnUserAgent, op.StartedOnSessionID,
		lastStep, op.LastStepUserAgent, op.LastStepSessionID,
		op.Finished, op.Errored, op.ErrorMessage,
	}
}

// Find returns the matching locks, most recent step first.
func (r *PostgresRepository) Find(ctx context.Context, q models.OperationQuery) ([]*models.OperationLock, error) {
	cond, arg, err := where(q)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + operationColumns + ` FROM operations WHERE ` + cond + ` ORDER BY last_step DESC NULLS LAST, id DESC`

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select operations: %w", err)
	}
	defer rows.Close()

	var result []*models.OperationLock
	for rows.Next() {
		var (
			op                  models.OperationLock
			startedOn, lastStep sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.RecordID, &op.OperationID, &op.OperationName,
			&op.Progress, &op.ProgressOf, &op.Page, &op.Pages,
			&op.Message, &op.TextDelta, &op.PageDelta, &op.RecordText,
			&startedOn, &op.StartedOnUserAgent, &op.StartedOnSessionID,
			&lastStep, &op.LastStepUserAgent, &op.LastStepSessionID,
			&op.Finished, &op.Errored, &op.ErrorMessage); err != nil {
			return nil, err
		}
		if startedOn.Valid {
			t := startedOn.Time
			op.StartedOn = &t
		}
		if lastStep.Valid {
			t := lastStep.Time
			op.LastStep = &t
		}
		result = append(result, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Create inserts op without any conflict check and fills in op.ID.
func (r *PostgresRepository) Create(ctx context.Context, op *models.OperationLock) error {
	query := `
		INSERT INTO operations (record_id, operation_id, operation_name, progress, progress_of, page, pages,
			message, text_delta, page_delta, record_text, started_on, started_on_user_agent, started_on_session_id,
			last_step, last_step_user_agent, last_step_session_id, finished, errored, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, opArgs(op)...).Scan(&op.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update fully replaces the row addressed by op.ID, or by op.OperationID when
// the id is unknown. It returns common.ErrorNotFound if nothing matched.
func (r *PostgresRepository) Update(ctx context.Context, op *models.OperationLock) error {
	set := `record_id = $1, operation_id = $2, operation_name = $3, progress = $4, progress_of = $5,
			page = $6, pages = $7, message = $8, text_delta = $9, page_delta = $10, record_text = $11,
			started_on = $12, started_on_user_agent = $13, started_on_session_id = $14,
			last_step = $15, last_step_user_agent = $16, last_step_session_id = $17,
			finished = $18, errored = $19, error_message = $20`

	args := opArgs(op)
	var query string
	if op.ID != 0 {
		query = `UPDATE operations SET ` + set + ` WHERE id = $21`
		args = append(args, op.ID)
	} else {
		query = `UPDATE operations SET ` + set + ` WHERE operation_id = $21`
		args = append(args, op.OperationID)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Delete removes the matching locks and reports how many were removed.
func (r *PostgresRepository) Delete(ctx context.Context, q models.OperationQuery) (int64, error) {
	cond, arg, err := where(q)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM operations WHERE `+cond, arg)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
