package sqlite3

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/spacetraveling/cms"
)

const tableDocuments = "documents"

type DocumentRepository struct {
	db *sql.DB
}

var _ cms.DocumentRepository = (*DocumentRepository)(nil)

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const (
	documentFieldID                   = "id"
	documentFieldUID                  = "uid"
	documentFieldType                 = "type"
	documentFieldFirstPublicationDate = "first_publication_date"
	documentFieldLastPublicationDate  = "last_publication_date"
	documentFieldData                 = "data"
)

func documentColumns() []string {
	return []string{
		documentFieldID,
		documentFieldUID,
		documentFieldType,
		documentFieldFirstPublicationDate,
		documentFieldLastPublicationDate,
		documentFieldData,
	}
}

func scanDocument(row sq.RowScanner) (*cms.Document, error) {
	var (
		doc                  cms.Document
		uid                  sql.NullString
		firstPublicationDate sql.NullTime
		lastPublicationDate  sql.NullTime
		data                 string
	)

	err := row.Scan(
		&doc.ID,
		&uid,
		&doc.Type,
		&firstPublicationDate,
		&lastPublicationDate,
		&data,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	doc.UID = uid.String
	doc.FirstPublicationDate = timePtr(firstPublicationDate)
	doc.LastPublicationDate = timePtr(lastPublicationDate)
	doc.Data = json.RawMessage(data)

	return &doc, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	return &t.Time
}

func nullableUID(uid string) sql.NullString {
	return sql.NullString{String: uid, Valid: uid != ""}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func applyFilter(q sq.SelectBuilder, filter cms.Filter) sq.SelectBuilder {
	if filter.Type != "" {
		q = q.Where(sq.Eq{documentFieldType: filter.Type})
	}

	if filter.UID != "" {
		q = q.Where(sq.Eq{documentFieldUID: filter.UID})
	}

	return q
}

func (repo *DocumentRepository) Insert(ctx context.Context, doc *cms.Document) error {
	q := sq.Insert(tableDocuments).
		Columns(documentColumns()...).
		Values(
			doc.ID,
			nullableUID(doc.UID),
			doc.Type,
			nullableTime(doc.FirstPublicationDate),
			nullableTime(doc.LastPublicationDate),
			string(doc.Data),
		)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: documents.type, documents.uid") {
			return cms.DocumentAlreadyExistsError{Type: doc.Type, UID: doc.UID}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *DocumentRepository) Count(ctx context.Context, filter cms.Filter) (int, error) {
	q := applyFilter(sq.Select("COUNT(*)").From(tableDocuments), filter)

	q = q.RunWith(repo.db)

	var count int

	err := q.QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to scan count: %w", err)
	}

	return count, nil
}

func (repo *DocumentRepository) List(ctx context.Context, filter cms.Filter, offset, limit int) ([]*cms.Document, error) {
	q := applyFilter(sq.Select(documentColumns()...).From(tableDocuments), filter).
		OrderBy(documentFieldFirstPublicationDate+" DESC", documentFieldID).
		Offset(uint64(offset)). //nolint:gosec
		Limit(uint64(limit))    //nolint:gosec

	q = q.RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	docs := make([]*cms.Document, 0)

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return docs, nil
}
