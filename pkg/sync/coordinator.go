package sync

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const defaultDeleteBatchSize = 400

// Doc pairs a document id with the record to write under it.
type Doc struct {
	ID     string
	Record any
}

// Coordinator implements the wipe-then-rebuild replace semantics. Replace is
// not atomic: readers during a pass can observe a partially rebuilt
// collection, and a crash mid-pass leaves one. Re-running the pass is the
// recovery strategy; deterministic ids make that idempotent.
type Coordinator struct {
	store     docstore.Store
	logger    ectologger.Logger
	batchSize int
}

func NewCoordinator(store docstore.Store, logger ectologger.Logger, batchSize int) *Coordinator {
	if batchSize <= 0 {
		batchSize = defaultDeleteBatchSize
	}
	return &Coordinator{
		store:     store,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Clear removes every document in the collection, deleting in batches so a
// large collection never pins one oversized statement.
func (c *Coordinator) Clear(ctx context.Context, collection string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "sync.Coordinator.Clear")
	defer span.End()

	ids, err := c.store.ListIDs(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s before clear: %w", collection, err)
	}

	for start := 0; start < len(ids); start += c.batchSize {
		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := c.store.DeleteBatch(ctx, collection, ids[start:end]); err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", collection, err)
		}
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"collection": collection,
		"deleted":    len(ids),
	}).Info("cleared collection")

	return len(ids), nil
}

// ClearMatching removes the documents whose top-level fields match. Used to
// scope a wipe, e.g. external reviews only.
func (c *Coordinator) ClearMatching(ctx context.Context, collection string, fields map[string]string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "sync.Coordinator.ClearMatching")
	defer span.End()

	deleted, err := c.store.DeleteMatching(ctx, collection, fields)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s by %v: %w", collection, fields, err)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"collection": collection,
		"fields":     fields,
		"deleted":    deleted,
	}).Info("cleared matching documents")

	return deleted, nil
}

// Write persists the docs under their ids, replacing any existing document.
func (c *Coordinator) Write(ctx context.Context, collection string, docs []Doc) error {
	ctx, span := tracing.StartSpan(ctx, "sync.Coordinator.Write")
	defer span.End()

	for _, doc := range docs {
		if err := c.store.Set(ctx, collection, doc.ID, doc.Record, false); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", collection, doc.ID, err)
		}
	}
	return nil
}

// ReplaceAll rebuilds a whole collection: wipe, then write.
func (c *Coordinator) ReplaceAll(ctx context.Context, collection string, docs []Doc) error {
	ctx, span := tracing.StartSpan(ctx, "sync.Coordinator.ReplaceAll")
	defer span.End()

	if _, err := c.Clear(ctx, collection); err != nil {
		return err
	}
	return c.Write(ctx, collection, docs)
}

// ReplaceChildren rebuilds one parent's children: documents matching the
// parent field plus the extra scope are wiped, then the docs are written.
// Documents outside the scope (other parents, internal records) survive.
func (c *Coordinator) ReplaceChildren(ctx context.Context, collection, parentField, parentID string, scope map[string]string, docs []Doc) error {
	ctx, span := tracing.StartSpan(ctx, "sync.Coordinator.ReplaceChildren")
	defer span.End()

	fields := map[string]string{parentField: parentID}
	for k, v := range scope {
		fields[k] = v
	}

	if _, err := c.ClearMatching(ctx, collection, fields); err != nil {
		return err
	}
	return c.Write(ctx, collection, docs)
}
