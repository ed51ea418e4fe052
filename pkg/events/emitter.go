// Package events handles event emission for catalog lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/sync"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes catalog events through the Kafka producer. It satisfies
// the orchestrator's event sink.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// RecordSynced emits a record.synced event for a freshly persisted document.
func (e *Emitter) RecordSynced(ctx context.Context, collection, id string, data json.RawMessage) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.RecordSynced")
	defer span.End()

	event := &kafka.CatalogEvent{
		EventType:  "record.synced",
		Collection: collection,
		RecordID:   id,
		Data:       data,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit record.synced event")
		return err
	}

	return nil
}

// PassCompleted emits a pass.completed event with the pass counters.
func (e *Emitter) PassCompleted(ctx context.Context, result sync.PassResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.PassCompleted")
	defer span.End()

	payload := map[string]any{
		"schema_version": SchemaVersion,
		"result":         result,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &kafka.CatalogEvent{
		EventType:  "pass.completed",
		Collection: result.Pass,
		Data:       data,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit pass.completed event")
		return err
	}

	return nil
}
