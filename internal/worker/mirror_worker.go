package worker

import (
	"context"
	"fmt"
	"log/slog"

	"pocketflow/internal/amqp"
	"pocketflow/internal/sheets"
)

// MirrorWorker applies record events to a RecordMirror.
type MirrorWorker struct {
	mirror sheets.RecordMirror
}

func NewMirrorWorker(mirror sheets.RecordMirror) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// HandleEvent is the amqp consumer callback. A returned error requeues the message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	slog.InfoContext(ctx, "Processing record event",
		"event_type", ev.Type,
		"record_id", ev.RecordID,
		"owner_id", ev.OwnerID)

	switch ev.Type {
	case amqp.EventRecordCreated, amqp.EventRecordUpdated:
		if ev.Record == nil {
			return fmt.Errorf("%s event %s carries no record", ev.Type, ev.RecordID)
		}
		if err := w.mirror.Upsert(ctx, *ev.Record); err != nil {
			return fmt.Errorf("mirror upsert %s: %w", ev.RecordID, err)
		}
	case amqp.EventRecordDeleted:
		if err := w.mirror.Remove(ctx, ev.RecordID); err != nil {
			return fmt.Errorf("mirror remove %s: %w", ev.RecordID, err)
		}
	default:
		slog.WarnContext(ctx, "Ignoring unknown record event", "event_type", ev.Type)
		return nil
	}

	slog.InfoContext(ctx, "Record event mirrored",
		"event_type", ev.Type,
		"record_id", ev.RecordID)
	return nil
}
