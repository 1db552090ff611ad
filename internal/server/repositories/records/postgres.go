// Package records provides the PostgreSQL-backed record repository.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/dbx"
	"github.com/dmitrijs2005/recordkeeper/internal/server/models"
)

const recordColumns = `id, folder_id, title, description, type, tags, text, json, transcription,
	extra, attachments, checksum, checksum_last_parsed, event_date, created_at, updated_at`

// PostgresRepository implements record storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func encodeList(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func recordArgs(r *models.Record) ([]any, error) {
	tags, err := encodeList(r.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	extra, err := encodeList(r.Extra)
	if err != nil {
		return nil, fmt.Errorf("encode extra: %w", err)
	}
	attachments, err := encodeList(r.Attachments)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}

	var js any
	if r.JSON != nil {
		js = string(r.JSON)
	}

	var eventDate any
	if r.EventDate != nil {
		eventDate = *r.EventDate
	}

	return []any{
		r.FolderID, r.Title, r.Description, r.Type, tags, r.Text, js, r.Transcription,
		extra, attachments, r.Checksum, r.ChecksumLastParsed, eventDate,
	}, nil
}

func scanRecord(s rowScanner) (*models.Record, error) {
	var (
		r                        models.Record
		tags, extra, attachments []byte
		js                       []byte
		eventDate                sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.FolderID, &r.Title, &r.Description, &r.Type, &tags, &r.Text, &js,
		&r.Transcription, &extra, &attachments, &r.Checksum, &r.ChecksumLastParsed, &eventDate,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &r.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &r.Extra); err != nil {
			return nil, fmt.Errorf("decode extra: %w", err)
		}
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &r.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	if len(js) > 0 {
		r.JSON = js
	}
	if eventDate.Valid {
		t := eventDate.Time
		r.EventDate = &t
	}
	return &r, nil
}

// Create inserts r and fills in its ID and timestamps.
func (p *PostgresRepository) Create(ctx context.Context, r *models.Record) error {
	query := `
		INSERT INTO records (folder_id, title, description, type, tags, text, json, transcription,
			extra, attachments, checksum, checksum_last_parsed, event_date)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7::jsonb, $8, $9::jsonb, $10::jsonb, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	args, err := recordArgs(r)
	if err != nil {
		return err
	}
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update replaces every column of the row r.ID and stamps updated_at.
func (p *PostgresRepository) Update(ctx context.Context, r *models.Record) error {
	query := `
		UPDATE records SET folder_id = $2, title = $3, description = $4, type = $5, tags = $6::jsonb,
			text = $7, json = $8::jsonb, transcription = $9, extra = $10::jsonb, attachments = $11::jsonb,
			checksum = $12, checksum_last_parsed = $13, event_date = $14, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	args, err := recordArgs(r)
	if err != nil {
		return err
	}
	args = append([]any{r.ID}, args...)

	err = p.db.QueryRowContext(ctx, query, args...).Scan(&r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (p *PostgresRepository) Get(ctx context.Context, id int64) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`

	r, err := scanRecord(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return r, nil
}

// ListByFolder returns the folder's records, most recently updated first.
func (p *PostgresRepository) ListByFolder(ctx context.Context, folderID int64) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE folder_id = $1 ORDER BY updated_at DESC, id DESC`

	rows, err := p.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// LastUpdate returns the newest updated_at in a folder and the record that
// carries it. An empty folder yields common.ErrorNotFound.
func (p *PostgresRepository) LastUpdate(ctx context.Context, folderID int64) (*models.LastUpdate, error) {
	query := `SELECT id, updated_at FROM records WHERE folder_id = $1 ORDER BY updated_at DESC, id DESC LIMIT 1`

	var lu models.LastUpdate
	err := p.db.QueryRowContext(ctx, query, folderID).Scan(&lu.RecordID, &lu.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &lu, nil
}

// StorageKeyInUse reports whether any record other than excludeID still
// references the blob.
func (p *PostgresRepository) StorageKeyInUse(ctx context.Context, storageKey string, excludeID int64) (bool, error) {
	needle, err := json.Marshal([]map[string]string{{"storageKey": storageKey}})
	if err != nil {
		return false, err
	}

	query := `SELECT EXISTS (SELECT 1 FROM records WHERE id <> $1 AND attachments @> $2::jsonb)`

	var used bool
	if err := p.db.QueryRowContext(ctx, query, excludeID, string(needle)).Scan(&used); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return used, nil
}
