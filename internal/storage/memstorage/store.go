package memstorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/apikey"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/domain/download"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/domain/order"
)

// Store keeps every repository in process memory behind a single mutex, so
// the read-check-write sequences below are atomic with respect to each other.
type Store struct {
	mu        sync.Mutex
	seq       int64
	licenses  map[uuid.UUID]*license.License
	order     map[uuid.UUID]int64
	downloads map[uuid.UUID]*download.Download
	tokens    map[string]uuid.UUID
	orders    map[uuid.UUID]*order.Order
	templates map[uuid.UUID]*catalog.Template
	apiKeys   map[uuid.UUID]*apikey.APIKey
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		licenses:  make(map[uuid.UUID]*license.License),
		order:     make(map[uuid.UUID]int64),
		downloads: make(map[uuid.UUID]*download.Download),
		tokens:    make(map[string]uuid.UUID),
		orders:    make(map[uuid.UUID]*order.Order),
		templates: make(map[uuid.UUID]*catalog.Template),
		apiKeys:   make(map[uuid.UUID]*apikey.APIKey),
		now:       time.Now,
	}
}

func (s *Store) Licenses() *LicenseRepository   { return &LicenseRepository{s: s} }
func (s *Store) Downloads() *DownloadRepository { return &DownloadRepository{s: s} }
func (s *Store) Orders() *OrderRepository       { return &OrderRepository{s: s} }
func (s *Store) Templates() *TemplateRepository { return &TemplateRepository{s: s} }
func (s *Store) APIKeys() *APIKeyRepository     { return &APIKeyRepository{s: s} }

// PutOrder inserts or replaces an order.
func (s *Store) PutOrder(o *order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	s.orders[o.ID] = &cp
}

// PutTemplate inserts or replaces a catalog entry.
func (s *Store) PutTemplate(t *catalog.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.templates[t.ID] = &cp
}

// PutLicense stores a license as given, bypassing issuance rules. A nil ID
// is replaced with a fresh one, which is returned.
func (s *Store) PutLicense(l *license.License) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	s.insertLicenseLocked(&cp)
	return cp.ID
}

func (s *Store) insertLicenseLocked(l *license.License) {
	now := s.now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}
	s.seq++
	s.licenses[l.ID] = l
	s.order[l.ID] = s.seq
}

type LicenseRepository struct {
	s *Store
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(_ context.Context, lic *license.License) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.licenses {
		if existing.UserID == lic.UserID && existing.OrderID == lic.OrderID && existing.TemplateID == lic.TemplateID {
			return uuid.Nil, license.ErrDuplicate
		}
	}

	cp := *lic
	cp.ID = uuid.New()
	cp.CreatedAt = time.Time{}
	cp.UpdatedAt = time.Time{}
	r.s.insertLicenseLocked(&cp)
	return cp.ID, nil
}

func (r *LicenseRepository) FindByID(_ context.Context, id uuid.UUID) (*license.License, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.licenses[id]
	if !ok {
		return nil, license.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *LicenseRepository) FindLatestActive(_ context.Context, userID, templateID uuid.UUID) (*license.License, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var latest *license.License
	for _, l := range r.s.licenses {
		if l.UserID != userID || l.TemplateID != templateID || l.Status != license.StatusActive {
			continue
		}
		if latest == nil || r.s.newer(l, latest) {
			latest = l
		}
	}
	if latest == nil {
		return nil, license.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *LicenseRepository) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*license.License, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*license.License, 0)
	for _, l := range r.s.licenses {
		if l.UserID == userID && l.Status == license.StatusActive {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.newer(out[i], out[j]) })
	return out, nil
}

func (r *LicenseRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to license.LicenseStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.licenses[id]
	if !ok {
		return license.ErrNotFound
	}
	if l.Status != from {
		return license.ErrStatusChanged
	}
	l.Status = to
	l.UpdatedAt = r.s.now()
	return nil
}

func (r *LicenseRepository) ExpireIfLapsed(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.licenses[id]
	if !ok || l.Status != license.StatusActive || !l.ExpiredAt(now) {
		return false, nil
	}
	l.Status = license.StatusExpired
	l.UpdatedAt = r.s.now()
	return true, nil
}

// newer orders by creation time, then by insertion order.
func (s *Store) newer(a, b *license.License) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return s.order[a.ID] > s.order[b.ID]
}

type DownloadRepository struct {
	s *Store
}

var _ download.Repository = (*DownloadRepository)(nil)

func (r *DownloadRepository) CreateWithQuota(_ context.Context, d *download.Download, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.licenses[d.LicenseID]
	if !ok || l.Status != license.StatusActive || l.ExpiredAt(now) || l.QuotaReached() {
		return 0, license.ErrQuotaUnavailable
	}
	if _, taken := r.s.tokens[d.DownloadToken]; taken {
		return 0, download.ErrTokenConflict
	}

	l.DownloadsCount++
	l.UpdatedAt = r.s.now()

	d.ID = uuid.New()
	cp := *d
	r.s.downloads[cp.ID] = &cp
	r.s.tokens[cp.DownloadToken] = cp.ID
	return l.DownloadsCount, nil
}

func (r *DownloadRepository) FindByToken(_ context.Context, token string) (*download.Download, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.tokens[token]
	if !ok {
		return nil, download.ErrNotFound
	}
	cp := *r.s.downloads[id]
	return &cp, nil
}

func (r *DownloadRepository) MarkExpired(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.downloads[id]
	if !ok || d.IsExpired {
		return false, nil
	}
	d.IsExpired = true
	return true, nil
}

func (r *DownloadRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*download.Download, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*download.Download, 0)
	for _, d := range r.s.downloads {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DownloadedAt.After(out[j].DownloadedAt) })
	return out, nil
}

type OrderRepository struct {
	s *Store
}

var _ order.Repository = (*OrderRepository)(nil)

func (r *OrderRepository) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *OrderRepository) FindBySessionID(_ context.Context, userID uuid.UUID, sessionID string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orders {
		if o.UserID == userID && o.PaymentSessionID == sessionID {
			return copyOrder(o), nil
		}
	}
	return nil, order.ErrNotFound
}

func copyOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	return &cp
}

type TemplateRepository struct {
	s *Store
}

var _ catalog.Repository = (*TemplateRepository)(nil)

func (r *TemplateRepository) FindTemplateByID(_ context.Context, id uuid.UUID) (*catalog.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.templates[id]
	if !ok {
		return nil, catalog.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

type APIKeyRepository struct {
	s *Store
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

func (r *APIKeyRepository) FindByPrefix(_ context.Context, prefix string) (*apikey.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, k := range r.s.apiKeys {
		if k.Prefix == prefix && k.IsEnabled {
			cp := *k
			return &cp, nil
		}
	}
	return nil, apikey.ErrAPIKeyNotFound
}

func (r *APIKeyRepository) Create(_ context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key.ID = uuid.New()
	key.CreatedAt = r.s.now()
	cp := *key
	r.s.apiKeys[cp.ID] = &cp
	return cp.ID, nil
}

func (r *APIKeyRepository) List(_ context.Context) ([]*apikey.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*apikey.APIKey, 0, len(r.s.apiKeys))
	for _, k := range r.s.apiKeys {
		cp := *k
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *APIKeyRepository) Disable(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k, ok := r.s.apiKeys[id]
	if !ok {
		return apikey.ErrAPIKeyNotFound
	}
	k.IsEnabled = false
	return nil
}

func (r *APIKeyRepository) UpdateLastUsed(_ context.Context, id uuid.UUID, lastUsed time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if k, ok := r.s.apiKeys[id]; ok && (k.LastUsedAt == nil || k.LastUsedAt.Before(lastUsed)) {
		t := lastUsed
		k.LastUsedAt = &t
	}
	return nil
}
