package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/audit"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/storage/memstorage"
	"github.com/templatestore/license-service/internal/tasks"
	"go.uber.org/zap"
)

type countingWriter struct{ n int }

func (w *countingWriter) WriteEvent(context.Context, audit.Event) error {
	w.n++
	return nil
}

func TestNewServeMux_Routes(t *testing.T) {
	ctx := context.Background()
	store := memstorage.NewStore()
	writer := &countingWriter{}

	mux := NewServeMux(Handlers{
		Expire: tasks.NewLicenseExpireHandler(store.Licenses(), zap.NewNop()),
		Audit:  tasks.NewDownloadAuditHandler(writer, zap.NewNop()),
	})

	id := store.PutLicense(&license.License{Status: license.StatusActive, ValidUntil: time.Now().Add(-time.Minute)})
	expireTask, err := tasks.NewLicenseExpireTask(id)
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(ctx, expireTask))

	lic, _ := store.Licenses().FindByID(ctx, id)
	assert.Equal(t, license.StatusExpired, lic.Status)

	auditTask, err := tasks.NewDownloadAuditTask(audit.Event{EventID: uuid.New(), Action: audit.ActionDownloadCreated})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(ctx, auditTask))
	assert.Equal(t, 1, writer.n)
}

func TestNewServeMux_UnknownType(t *testing.T) {
	mux := NewServeMux(Handlers{})
	err := mux.ProcessTask(context.Background(), asynq.NewTask("unknown:type", nil))
	assert.Error(t, err)
}

func TestIsFailure(t *testing.T) {
	assert.False(t, isFailure(context.Canceled))
	assert.True(t, isFailure(assert.AnError))
}
