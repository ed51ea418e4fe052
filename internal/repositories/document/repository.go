package document

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Repository is the Postgres implementation of docstore.Store. Documents
// live in a single table keyed by (collection, id) with the record body in a
// JSONB column.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Get(ctx context.Context, collection, id string, dest any) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Get")
	defer span.End()

	sb := documentStruct.SelectFrom(documentsTable)
	sb.Where(
		sb.Equal("collection", collection),
		sb.Equal("id", id),
	)

	sql, args := sb.Build()

	var row DocumentRow
	err := r.db.GetContext(ctx, &row, sql, args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s/%s not found", collection, id))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
			"id":         id,
		}).Error("error reading document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error reading document")
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(row.Data.Data, dest); err != nil {
		return fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (r *Repository) Set(ctx context.Context, collection, id string, record any, merge bool) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Set")
	defer span.End()

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, id, err)
	}

	now := time.Now().UTC()

	ib := database.NewInsertBuilder().
		InsertInto(documentsTable).
		Cols("collection", "id", "data", "created_at", "updated_at").
		Values(collection, id, string(payload), now, now)

	ub := ib.OnConflict("collection", "id")
	if merge {
		// Shallow merge: incoming top-level fields win, everything else on
		// the stored document is retained.
		ub.Set(
			"data = documents.data || EXCLUDED.data",
			ub.Assign("updated_at", now),
		)
	} else {
		ub.Set(
			ub.Assign("data", database.Excluded("data")),
			ub.Assign("updated_at", now),
		)
	}

	sql, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err = tx.ExecContext(ctx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
			"id":         id,
			"merge":      merge,
		}).Error("error writing document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error writing document")
	}

	return tx.Commit(ctx)
}

func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(documentsTable)
	db.Where(
		db.Equal("collection", collection),
		db.Equal("id", id),
	)

	sql, args := db.Build()

	if _, err := r.db.ExecContext(ctx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
			"id":         id,
		}).Error("error deleting document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error deleting document")
	}
	return nil
}

func (r *Repository) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.List")
	defer span.End()

	sb := documentStruct.SelectFrom(documentsTable)
	sb.Where(sb.Equal("collection", collection))
	sb.OrderBy("id")

	sql, args := sb.Build()

	var rows []DocumentRow
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
		}).Error("error listing documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing documents")
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, toDocument(row))
	}
	return docs, nil
}

func (r *Repository) ListIDs(ctx context.Context, collection string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.ListIDs")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id")
	sb.From(documentsTable)
	sb.Where(sb.Equal("collection", collection))
	sb.OrderBy("id")

	sql, args := sb.Build()

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
		}).Error("error listing document ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error listing document ids")
	}
	return ids, nil
}

func (r *Repository) Query(ctx context.Context, collection string, fields map[string]string) ([]docstore.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.Query")
	defer span.End()

	sb := documentStruct.SelectFrom(documentsTable)
	sb.Where(sb.Equal("collection", collection))
	for _, field := range sortedKeys(fields) {
		sb.Where(sb.Equal(jsonField(field), fields[field]))
	}
	sb.OrderBy("id")

	sql, args := sb.Build()

	var rows []DocumentRow
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
			"fields":     fields,
		}).Error("error querying documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "error querying documents")
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, toDocument(row))
	}
	return docs, nil
}

func (r *Repository) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.DeleteBatch")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom(documentsTable)
	db.Where(
		db.Equal("collection", collection),
		db.In("id", values...),
	)

	sql, args := db.Build()

	if _, err := r.db.ExecContext(ctx, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
			"count":      len(ids),
		}).Error("error batch deleting documents")
		return httperror.NewHTTPError(http.StatusInternalServerError, "error batch deleting documents")
	}
	return nil
}

func (r *Repository) DeleteMatching(ctx context.Context, collection string, fields map[string]string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "DocumentRepository.DeleteMatching")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(documentsTable)
	db.Where(db.Equal("collection", collection))
	for _, field := range sortedKeys(fields) {
		db.Where(db.Equal(jsonField(field), fields[field]))
	}

	sql, args := db.Build()

	result, err := r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"collection": collection,
			"fields":     fields,
		}).Error("error deleting matching documents")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "error deleting matching documents")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return deleted, nil
}

// jsonField addresses a top-level key of the document body. Field names come
// from code, never from request input.
func jsonField(field string) string {
	return fmt.Sprintf("data->>'%s'", field)
}

func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
