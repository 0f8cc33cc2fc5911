package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/audit"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/domain/download"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/domain/order"
	"github.com/templatestore/license-service/internal/filestore"
	"github.com/templatestore/license-service/internal/metrics"
	"github.com/templatestore/license-service/internal/storage/memstorage"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	mu      sync.Mutex
	expired []uuid.UUID
	events  []audit.Event
}

func (d *fakeDispatcher) EnqueueLicenseExpire(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expired = append(d.expired, id)
	return nil
}

func (d *fakeDispatcher) EnqueueDownloadAudit(_ context.Context, evt audit.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
	return nil
}

func (d *fakeDispatcher) actions() []audit.Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]audit.Action, len(d.events))
	for i, e := range d.events {
		out[i] = e.Action
	}
	return out
}

// countingDownloads records how often the token lookup is hit.
type countingDownloads struct {
	download.Repository
	mu      sync.Mutex
	lookups int
}

func (r *countingDownloads) FindByToken(ctx context.Context, token string) (*download.Download, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return r.Repository.FindByToken(ctx, token)
}

type fixture struct {
	store       *memstorage.Store
	tasks       *fakeDispatcher
	metrics     *metrics.Metrics
	downloads   *countingDownloads
	entitlement *EntitlementService
	licenses    *LicenseService
	dl          *DownloadService
	orders      *OrderService

	userID   uuid.UUID
	template *catalog.Template
}

const testTokenTTL = 24 * time.Hour

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstorage.NewStore()
	tasks := &fakeDispatcher{}
	m := metrics.NewNop()
	logger := zap.NewNop()

	tpl := &catalog.Template{
		ID:         uuid.New(),
		Title:      "Aurora Landing",
		Slug:       "aurora-landing",
		Price:      8999,
		FileSize:   ptr("5 MB"),
		CategoryID: uuid.New(),
	}
	store.PutTemplate(tpl)

	files := filestore.NewDriveResolver(map[string]string{tpl.Slug: "drive-file-1"}, logger)
	downloads := &countingDownloads{Repository: store.Downloads()}

	ent := NewEntitlementService(store.Licenses(), tasks, m, logger)
	return &fixture{
		store:       store,
		tasks:       tasks,
		metrics:     m,
		downloads:   downloads,
		entitlement: ent,
		licenses:    NewLicenseService(store.Licenses(), store.Orders(), store.Templates(), "stripe", m, logger),
		dl: NewDownloadService(ent, store.Licenses(), downloads, store.Templates(), files, tasks, m,
			DownloadServiceConfig{TokenTTL: testTokenTTL, MaxTokenAttempts: 5}, logger),
		orders:   NewOrderService(store.Orders(), store.Templates(), logger),
		userID:   uuid.New(),
		template: tpl,
	}
}

func (f *fixture) paidOrder(items ...uuid.UUID) *order.Order {
	o := &order.Order{
		ID:               uuid.New(),
		UserID:           f.userID,
		PaymentSessionID: "cs_test_" + uuid.NewString(),
		Amount:           8999,
		Currency:         "eur",
		Status:           order.StatusCompleted,
		PaymentStatus:    order.PaymentSucceeded,
		CreatedAt:        time.Now(),
	}
	for _, id := range items {
		o.Items = append(o.Items, order.Item{ID: uuid.New(), OrderID: o.ID, TemplateID: id, Quantity: 1, UnitPrice: 8999, TotalPrice: 8999})
	}
	f.store.PutOrder(o)
	return o
}

// seedLicense stores an ACTIVE license on the fixture template.
func (f *fixture) seedLicense(maxDownloads, count int, validUntil time.Time) uuid.UUID {
	return f.store.PutLicense(&license.License{
		UserID:         f.userID,
		TemplateID:     f.template.ID,
		OrderID:        uuid.New(),
		Tier:           license.TierPersonal,
		Status:         license.StatusActive,
		DownloadsCount: count,
		MaxDownloads:   maxDownloads,
		DownloadLimit:  1,
		ValidFrom:      validUntil.Add(-365 * 24 * time.Hour),
		ValidUntil:     validUntil,
	})
}

func (f *fixture) downloadRequest() DownloadRequest {
	return DownloadRequest{UserID: f.userID, TemplateID: f.template.ID, ClientIP: "203.0.113.7", UserAgent: "go-test"}
}

func (f *fixture) mustLicense(t *testing.T, id uuid.UUID) *license.License {
	t.Helper()
	lic, err := f.store.Licenses().FindByID(context.Background(), id)
	require.NoError(t, err)
	return lic
}

func ptr[T any](v T) *T {
	return &v
}
