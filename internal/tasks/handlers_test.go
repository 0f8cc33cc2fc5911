package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/audit"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/storage/memstorage"
	"go.uber.org/zap"
)

func TestLicenseExpireHandler(t *testing.T) {
	ctx := context.Background()
	store := memstorage.NewStore()
	now := time.Now()

	id := store.PutLicense(&license.License{
		UserID:     uuid.New(),
		TemplateID: uuid.New(),
		OrderID:    uuid.New(),
		Status:     license.StatusActive,
		ValidUntil: now.Add(-time.Hour),
	})

	task, err := NewLicenseExpireTask(id)
	require.NoError(t, err)
	assert.Equal(t, TypeLicenseExpire, task.Type())

	h := NewLicenseExpireHandler(store.Licenses(), zap.NewNop())
	require.NoError(t, h.ProcessTask(ctx, task))

	lic, err := store.Licenses().FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, license.StatusExpired, lic.Status)

	require.NoError(t, h.ProcessTask(ctx, task), "second delivery is a no-op")
}

func TestLicenseExpireHandler_LeavesValidLicense(t *testing.T) {
	ctx := context.Background()
	store := memstorage.NewStore()

	id := store.PutLicense(&license.License{
		Status:     license.StatusActive,
		ValidUntil: time.Now().Add(time.Hour),
	})

	task, err := NewLicenseExpireTask(id)
	require.NoError(t, err)
	require.NoError(t, NewLicenseExpireHandler(store.Licenses(), zap.NewNop()).ProcessTask(ctx, task))

	lic, _ := store.Licenses().FindByID(ctx, id)
	assert.Equal(t, license.StatusActive, lic.Status)
}

func TestLicenseExpireHandler_BadPayload(t *testing.T) {
	h := NewLicenseExpireHandler(memstorage.NewStore().Licenses(), zap.NewNop())

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeLicenseExpire, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), asynq.NewTask(TypeDownloadAudit, nil))
	assert.Error(t, err)
}

type recordingWriter struct {
	events []audit.Event
	err    error
}

func (w *recordingWriter) WriteEvent(_ context.Context, evt audit.Event) error {
	if w.err != nil {
		return w.err
	}
	w.events = append(w.events, evt)
	return nil
}

func TestDownloadAuditHandler(t *testing.T) {
	evt := audit.Event{
		EventID:    uuid.New(),
		Action:     audit.ActionDownloadRedeemed,
		DownloadID: uuid.New(),
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}

	task, err := NewDownloadAuditTask(evt)
	require.NoError(t, err)

	var p DownloadAuditPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, evt.EventID, p.Event.EventID)

	w := &recordingWriter{}
	require.NoError(t, NewDownloadAuditHandler(w, zap.NewNop()).ProcessTask(context.Background(), task))
	require.Len(t, w.events, 1)
	assert.Equal(t, evt.DownloadID, w.events[0].DownloadID)
	assert.True(t, evt.CreatedAt.Equal(w.events[0].CreatedAt))

	failing := &recordingWriter{err: errors.New("db down")}
	assert.Error(t, NewDownloadAuditHandler(failing, zap.NewNop()).ProcessTask(context.Background(), task))
}
