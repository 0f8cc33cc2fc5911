package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/audit"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/domain/download"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/filestore"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/metrics"
	"go.uber.org/zap"
)

const RedeemMessage = "Download authorized. Use the provided URL to fetch the file."

type DownloadRequest struct {
	UserID     uuid.UUID
	TemplateID uuid.UUID
	ClientIP   string
	UserAgent  string
}

type DownloadResult struct {
	DownloadID         uuid.UUID
	Token              string
	DownloadURL        string
	ExpiresAt          time.Time
	Template           *catalog.Template
	RemainingDownloads int
}

type RedeemRequest struct {
	Token     string
	ClientIP  string
	UserAgent string
}

type RedeemResult struct {
	Template    *catalog.Template
	DownloadURL string
	ExpiresAt   time.Time
	Message     string
}

type DownloadServiceConfig struct {
	TokenTTL         time.Duration
	MaxTokenAttempts int
}

type DownloadService struct {
	entitlement *EntitlementService
	licenses    license.Repository
	downloads   download.Repository
	templates   catalog.Repository
	files       filestore.Resolver
	tasks       TaskDispatcher
	metrics     *metrics.Metrics
	cfg         DownloadServiceConfig
	newToken    download.TokenGenerator
	now         func() time.Time
	logger      *zap.Logger
}

func NewDownloadService(
	entitlement *EntitlementService,
	licenses license.Repository,
	downloads download.Repository,
	templates catalog.Repository,
	files filestore.Resolver,
	tasks TaskDispatcher,
	m *metrics.Metrics,
	cfg DownloadServiceConfig,
	logger *zap.Logger,
) *DownloadService {
	if cfg.MaxTokenAttempts <= 0 {
		cfg.MaxTokenAttempts = 1
	}
	return &DownloadService{
		entitlement: entitlement,
		licenses:    licenses,
		downloads:   downloads,
		templates:   templates,
		files:       files,
		tasks:       tasks,
		metrics:     m,
		cfg:         cfg,
		newToken:    download.GenerateToken,
		now:         time.Now,
		logger:      logger.Named("DownloadService"),
	}
}

// CreateDownload mints a single-use download token for a template the user
// holds an entitling license on, consuming one slot of the license quota.
func (s *DownloadService) CreateDownload(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	log := s.logger.With(
		zap.String("user_id", req.UserID.String()),
		zap.String("template_id", req.TemplateID.String()),
	)

	lic, err := s.entitlement.CheckEntitlement(ctx, req.UserID, req.TemplateID)
	if err != nil {
		s.auditDenial(ctx, req, err)
		return nil, err
	}

	tpl, err := s.templates.FindTemplateByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			log.Warn("Licensed template missing from catalog")
			return nil, ierr.ErrNoActiveLicense
		}
		log.Error("Failed to load template", zap.Error(err))
		return nil, fmt.Errorf("repository error loading template: %w", err)
	}

	fileURL, err := s.files.Resolve(ctx, tpl.Slug)
	if err != nil || fileURL == "" {
		if err == nil || errors.Is(err, filestore.ErrFileUnavailable) {
			return nil, ierr.ErrFileUnavailable
		}
		log.Error("Failed to resolve template file", zap.String("slug", tpl.Slug), zap.Error(err))
		return nil, fmt.Errorf("file resolver error: %w", err)
	}

	now := s.now().UTC()
	for attempt := 1; attempt <= s.cfg.MaxTokenAttempts; attempt++ {
		token, err := s.newToken(now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
		}

		d := &download.Download{
			LicenseID:     lic.ID,
			UserID:        req.UserID,
			TemplateID:    req.TemplateID,
			DownloadToken: token,
			DownloadURL:   fileURL,
			IPAddress:     req.ClientIP,
			UserAgent:     req.UserAgent,
			ExpiresAt:     now.Add(s.cfg.TokenTTL),
			IsExpired:     false,
			DownloadedAt:  now,
		}

		count, err := s.downloads.CreateWithQuota(ctx, d, now)
		switch {
		case err == nil:
			s.metrics.DownloadsCreated.Inc()
			s.dispatchAudit(ctx, audit.Event{
				Action:     audit.ActionDownloadCreated,
				DownloadID: d.ID,
				LicenseID:  lic.ID,
				UserID:     req.UserID,
				TemplateID: req.TemplateID,
				ClientIP:   req.ClientIP,
				UserAgent:  req.UserAgent,
				CreatedAt:  now,
			})
			log.Info("Download created", zap.String("download_id", d.ID.String()), zap.Int("attempt", attempt))

			remaining := license.Unlimited
			if !lic.IsUnlimited() {
				remaining = max(lic.MaxDownloads-count, 0)
			}
			return &DownloadResult{
				DownloadID:         d.ID,
				Token:              d.DownloadToken,
				DownloadURL:        d.DownloadURL,
				ExpiresAt:          d.ExpiresAt,
				Template:           tpl,
				RemainingDownloads: remaining,
			}, nil

		case errors.Is(err, download.ErrTokenConflict):
			s.metrics.TokenCollisions.Inc()
			log.Warn("Download token collision, retrying", zap.Int("attempt", attempt))
			continue

		case errors.Is(err, license.ErrQuotaUnavailable):
			denial := s.explainUnavailable(ctx, lic.ID, now)
			s.auditDenial(ctx, req, denial)
			return nil, denial

		default:
			log.Error("Failed to create download", zap.Error(err))
			return nil, fmt.Errorf("repository error creating download: %w", err)
		}
	}

	log.Error("Exhausted download token attempts", zap.Int("attempts", s.cfg.MaxTokenAttempts))
	return nil, fmt.Errorf("%w: could not allocate a unique download token", ierr.ErrInternalServer)
}

// explainUnavailable re-reads a license whose reservation was refused so the
// caller sees the precise denial.
func (s *DownloadService) explainUnavailable(ctx context.Context, licenseID uuid.UUID, now time.Time) error {
	fresh, err := s.licenses.FindByID(ctx, licenseID)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return ierr.ErrNoActiveLicense
		}
		return fmt.Errorf("repository error reloading license: %w", err)
	}
	if denial := Evaluate(fresh, now); denial != nil {
		return denial
	}
	return ierr.ErrQuotaExceeded
}

// RedeemToken exchanges a download token for the file location. A token is
// honored at most once.
func (s *DownloadService) RedeemToken(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	result, err := s.redeem(ctx, req)
	if err != nil {
		label := "error"
		if d, ok := ierr.AsDenial(err); ok {
			label = d.Code
		}
		s.metrics.Redemptions.WithLabelValues(label).Inc()
		return nil, err
	}
	s.metrics.Redemptions.WithLabelValues(metrics.ResultOK).Inc()
	return result, nil
}

func (s *DownloadService) redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	if !download.VerifyToken(req.Token) {
		return nil, ierr.ErrMalformedToken
	}

	d, err := s.downloads.FindByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, download.ErrNotFound) {
			return nil, ierr.ErrTokenNotFound
		}
		s.logger.Error("Failed to look up download token", zap.Error(err))
		return nil, fmt.Errorf("repository error loading download: %w", err)
	}

	log := s.logger.With(zap.String("download_id", d.ID.String()), zap.String("license_id", d.LicenseID.String()))
	now := s.now().UTC()

	if d.LapsedAt(now) {
		if issuedAt, ok := download.TokenIssuedAt(d.DownloadToken); ok {
			log.Info("Rejected lapsed download token",
				zap.Duration("token_age", now.Sub(issuedAt)),
				zap.Bool("consumed", d.IsExpired),
			)
		}
		if !d.IsExpired {
			if _, err := s.downloads.MarkExpired(ctx, d.ID); err != nil {
				log.Warn("Failed to mark lapsed download expired", zap.Error(err))
			}
		}
		return nil, ierr.ErrTokenExpired
	}

	lic, err := s.licenses.FindByID(ctx, d.LicenseID)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return nil, ierr.ErrLicenseInactive
		}
		log.Error("Failed to load license for redemption", zap.Error(err))
		return nil, fmt.Errorf("repository error loading license: %w", err)
	}
	if lic.Status != license.StatusActive || lic.ExpiredAt(now) {
		if lic.Status == license.StatusActive {
			s.entitlement.scheduleExpiry(ctx, lic.ID)
		}
		return nil, ierr.ErrLicenseInactive
	}
	if lic.QuotaExceeded() {
		return nil, ierr.ErrQuotaExceeded
	}

	tpl, err := s.templates.FindTemplateByID(ctx, d.TemplateID)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			return nil, ierr.ErrFileUnavailable
		}
		return nil, fmt.Errorf("repository error loading template: %w", err)
	}

	// Resolved again so short-lived locations (presigned URLs) are fresh.
	fileURL, err := s.files.Resolve(ctx, tpl.Slug)
	if err != nil || fileURL == "" {
		if err == nil || errors.Is(err, filestore.ErrFileUnavailable) {
			return nil, ierr.ErrFileUnavailable
		}
		log.Error("Failed to resolve template file", zap.String("slug", tpl.Slug), zap.Error(err))
		return nil, fmt.Errorf("file resolver error: %w", err)
	}

	consumed, err := s.downloads.MarkExpired(ctx, d.ID)
	if err != nil {
		log.Error("Failed to consume download token", zap.Error(err))
		return nil, fmt.Errorf("repository error consuming download: %w", err)
	}
	if !consumed {
		log.Info("Download token consumed concurrently")
		return nil, ierr.ErrTokenExpired
	}

	s.dispatchAudit(ctx, audit.Event{
		Action:     audit.ActionDownloadRedeemed,
		DownloadID: d.ID,
		LicenseID:  d.LicenseID,
		UserID:     d.UserID,
		TemplateID: d.TemplateID,
		ClientIP:   req.ClientIP,
		UserAgent:  req.UserAgent,
		CreatedAt:  now,
	})
	log.Info("Download token redeemed")

	return &RedeemResult{
		Template:    tpl,
		DownloadURL: fileURL,
		ExpiresAt:   d.ExpiresAt,
		Message:     RedeemMessage,
	}, nil
}

// ListDownloads returns the caller's download history, newest first.
func (s *DownloadService) ListDownloads(ctx context.Context, userID uuid.UUID) ([]*download.Download, error) {
	downloads, err := s.downloads.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list downloads", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("repository error listing downloads: %w", err)
	}
	return downloads, nil
}

func (s *DownloadService) auditDenial(ctx context.Context, req DownloadRequest, err error) {
	d, ok := ierr.AsDenial(err)
	if !ok {
		return
	}
	s.dispatchAudit(ctx, audit.Event{
		Action:     audit.ActionDownloadDenied,
		UserID:     req.UserID,
		TemplateID: req.TemplateID,
		Reason:     string(d.Reason),
		ClientIP:   req.ClientIP,
		UserAgent:  req.UserAgent,
		CreatedAt:  s.now().UTC(),
	})
}

func (s *DownloadService) dispatchAudit(ctx context.Context, evt audit.Event) {
	if evt.EventID == uuid.Nil {
		evt.EventID = uuid.New()
	}
	if err := s.tasks.EnqueueDownloadAudit(ctx, evt); err != nil {
		s.logger.Warn("Failed to enqueue download audit event",
			zap.String("action", string(evt.Action)),
			zap.Error(err),
		)
	}
}
