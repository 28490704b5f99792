package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"pocketflow/internal/amqp"
	"pocketflow/internal/core"
	"pocketflow/internal/log"
	"pocketflow/internal/store"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// RecordService orchestrates record operations across the store and the
// change-event publisher. Store errors are returned as-is; publish failures
// are logged and never fail the request.
type RecordService struct {
	store     store.Store
	publisher EventPublisher
	logger    *log.StructuredLogger
}

// NewRecordService wires a store and an optional publisher (nil disables events).
func NewRecordService(s store.Store, publisher EventPublisher, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecordService{
		store:     s,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentRecord)),
	}
}

func (s *RecordService) ListByOwner(ctx context.Context, ownerID string) ([]core.FinancialRecord, error) {
	if ownerID == "" {
		return nil, core.NewValidationError("userId", "is required")
	}
	return s.store.ListByOwner(ctx, ownerID)
}

// Create validates r, persists it and publishes record.created.
func (s *RecordService) Create(ctx context.Context, r core.FinancialRecord) (core.FinancialRecord, error) {
	r = r.Normalized()
	if err := r.Validate(); err != nil {
		return core.FinancialRecord{}, err
	}
	created, err := s.store.Create(ctx, r)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	s.changed(ctx, log.OpCreate, amqp.EventRecordCreated, created)
	return created, nil
}

// Update validates the patch, applies it and publishes record.updated.
func (s *RecordService) Update(ctx context.Context, id string, patch core.RecordPatch) (core.FinancialRecord, error) {
	if id == "" {
		return core.FinancialRecord{}, core.NewValidationError("id", "is required")
	}
	patch = patch.Normalized()
	if err := patch.Validate(); err != nil {
		return core.FinancialRecord{}, err
	}
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	s.changed(ctx, log.OpUpdate, amqp.EventRecordUpdated, updated)
	return updated, nil
}

// Delete removes the record and publishes record.deleted.
func (s *RecordService) Delete(ctx context.Context, id string) (core.FinancialRecord, error) {
	if id == "" {
		return core.FinancialRecord{}, core.NewValidationError("id", "is required")
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	s.changed(ctx, log.OpDelete, amqp.EventRecordDeleted, deleted)
	return deleted, nil
}

// Ping reports store connectivity when the backend supports it.
func (s *RecordService) Ping(ctx context.Context) error {
	if p, ok := s.store.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *RecordService) changed(ctx context.Context, op string, t amqp.EventType, r core.FinancialRecord) {
	s.logger.LogRecordChange(ctx, op, r.ID, r.OwnerID, core.FormatAmount(r.Amount), r.Category, r.PaymentMethod)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, amqp.NewRecordEvent(t, r)); err != nil {
		s.logger.LogError(ctx, "Failed to publish record event", err, log.ComponentAMQP, op,
			log.NewFields().WithRecord(r.ID, r.OwnerID, "", "", ""))
	}
}

// Close releases the store and the publisher when they hold resources.
func (s *RecordService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
