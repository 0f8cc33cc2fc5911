package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Action string

const (
	ActionDownloadCreated  Action = "download.created"
	ActionDownloadRedeemed Action = "download.redeemed"
	ActionDownloadDenied   Action = "download.denied"
)

// Event is one append-only row of the download trail. EventID makes
// redelivered tasks idempotent.
type Event struct {
	EventID    uuid.UUID `json:"event_id"`
	Action     Action    `json:"action"`
	DownloadID uuid.UUID `json:"download_id"`
	LicenseID  uuid.UUID `json:"license_id"`
	UserID     uuid.UUID `json:"user_id"`
	TemplateID uuid.UUID `json:"template_id"`
	Reason     string    `json:"reason,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Writer struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewWriter(db *sql.DB, logger *zap.Logger) *Writer {
	return &Writer{db: db, logger: logger.Named("AuditWriter")}
}

func (w *Writer) WriteEvent(ctx context.Context, evt Event) error {
	if evt.EventID == uuid.Nil {
		evt.EventID = uuid.New()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO download_events (
			event_id, action, download_id, license_id, user_id, template_id,
			reason, client_ip, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err := w.db.ExecContext(ctx, query,
		evt.EventID, string(evt.Action), nullUUID(evt.DownloadID), nullUUID(evt.LicenseID), nullUUID(evt.UserID), nullUUID(evt.TemplateID),
		nullString(evt.Reason), nullString(evt.ClientIP), nullString(evt.UserAgent), evt.CreatedAt,
	)
	if err != nil {
		w.logger.Error("Failed to write download event",
			zap.String("event_id", evt.EventID.String()),
			zap.String("action", string(evt.Action)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to write download event: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
