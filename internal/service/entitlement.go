package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/metrics"
	"go.uber.org/zap"
)

// Evaluate decides whether lic currently permits minting a download. A nil
// license or one that is not ACTIVE yields NoActiveLicense.
func Evaluate(lic *license.License, now time.Time) error {
	switch {
	case lic == nil || lic.Status != license.StatusActive:
		return ierr.ErrNoActiveLicense
	case lic.ExpiredAt(now):
		return ierr.ErrLicenseExpired
	case lic.QuotaReached():
		return ierr.ErrQuotaExceeded
	}
	return nil
}

type EntitlementService struct {
	licenses license.Repository
	tasks    TaskDispatcher
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *zap.Logger
}

func NewEntitlementService(licenses license.Repository, tasks TaskDispatcher, m *metrics.Metrics, logger *zap.Logger) *EntitlementService {
	return &EntitlementService{
		licenses: licenses,
		tasks:    tasks,
		metrics:  m,
		now:      time.Now,
		logger:   logger.Named("EntitlementService"),
	}
}

// CheckEntitlement returns the license that authorizes userID to download
// templateID, or the Denial explaining why none does. It never writes to
// the license.
func (s *EntitlementService) CheckEntitlement(ctx context.Context, userID, templateID uuid.UUID) (*license.License, error) {
	lic, err := s.licenses.FindLatestActive(ctx, userID, templateID)
	if err != nil && !errors.Is(err, license.ErrNotFound) {
		s.logger.Error("Failed to load license for entitlement check",
			zap.String("user_id", userID.String()),
			zap.String("template_id", templateID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("repository error loading license: %w", err)
	}
	if err != nil {
		lic = nil
	}

	now := s.now()
	if denial := Evaluate(lic, now); denial != nil {
		s.record(denial)
		s.logger.Info("Entitlement denied",
			zap.String("user_id", userID.String()),
			zap.String("template_id", templateID.String()),
			zap.Error(denial),
		)
		if errors.Is(denial, ierr.ErrLicenseExpired) {
			s.scheduleExpiry(ctx, lic.ID)
		}
		return nil, denial
	}

	s.record(nil)
	return lic, nil
}

func (s *EntitlementService) scheduleExpiry(ctx context.Context, licenseID uuid.UUID) {
	if err := s.tasks.EnqueueLicenseExpire(ctx, licenseID); err != nil {
		s.logger.Warn("Failed to enqueue license expiry", zap.String("license_id", licenseID.String()), zap.Error(err))
	}
}

func (s *EntitlementService) record(denial error) {
	result := metrics.ResultOK
	if d, ok := ierr.AsDenial(denial); ok {
		result = d.Code
	}
	s.metrics.Entitlements.WithLabelValues(result).Inc()
}
