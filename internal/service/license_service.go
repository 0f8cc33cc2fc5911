package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/templatestore/license-service/internal/domain/catalog"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/domain/order"
	"github.com/templatestore/license-service/internal/ierr"
	"github.com/templatestore/license-service/internal/metrics"
	"go.uber.org/zap"
)

type IssueLicenseInput struct {
	UserID     uuid.UUID
	OrderID    uuid.UUID
	TemplateID uuid.UUID
	Tier       string
}

// LicenseView pairs a license with the catalog entry it covers. Template is
// nil when the catalog no longer lists it.
type LicenseView struct {
	License  *license.License
	Template *catalog.Template
}

type LicenseService struct {
	licenses       license.Repository
	orders         order.Repository
	templates      catalog.Repository
	purchaseMethod string
	metrics        *metrics.Metrics
	now            func() time.Time
	logger         *zap.Logger
}

func NewLicenseService(
	licenses license.Repository,
	orders order.Repository,
	templates catalog.Repository,
	purchaseMethod string,
	m *metrics.Metrics,
	logger *zap.Logger,
) *LicenseService {
	return &LicenseService{
		licenses:       licenses,
		orders:         orders,
		templates:      templates,
		purchaseMethod: purchaseMethod,
		metrics:        m,
		now:            time.Now,
		logger:         logger.Named("LicenseService"),
	}
}

// IssueLicense grants in.UserID a license on in.TemplateID backed by a paid
// order. The order is checked before anything else.
func (s *LicenseService) IssueLicense(ctx context.Context, in IssueLicenseInput) (*license.License, error) {
	log := s.logger.With(
		zap.String("user_id", in.UserID.String()),
		zap.String("order_id", in.OrderID.String()),
		zap.String("template_id", in.TemplateID.String()),
	)
	log.Info("Attempting to issue license", zap.String("tier", in.Tier))

	ord, err := s.orders.FindByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, ierr.ErrInvalidOrder
		}
		log.Error("Failed to load order", zap.Error(err))
		return nil, fmt.Errorf("repository error loading order: %w", err)
	}
	if ord.UserID != in.UserID || !ord.IsPaid() {
		log.Warn("Order cannot back a license",
			zap.String("status", string(ord.Status)),
			zap.String("payment_status", string(ord.PaymentStatus)),
		)
		return nil, ierr.ErrInvalidOrder
	}
	if !ord.Covers(in.TemplateID) {
		log.Warn("Order does not contain template")
		return nil, ierr.ErrInvalidOrder
	}

	tpl, err := s.templates.FindTemplateByID(ctx, in.TemplateID)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			return nil, ierr.ErrInvalidOrder
		}
		log.Error("Failed to load template", zap.Error(err))
		return nil, fmt.Errorf("repository error loading template: %w", err)
	}

	tier, ok := license.ParseTier(in.Tier)
	if !ok {
		return nil, ierr.ErrInvalidTier
	}
	policy, _ := license.PolicyFor(tier)

	now := s.now().UTC()
	newLicense := &license.License{
		UserID:         in.UserID,
		TemplateID:     in.TemplateID,
		OrderID:        in.OrderID,
		Tier:           tier,
		Status:         license.StatusActive,
		DownloadsCount: 0,
		MaxDownloads:   policy.MaxDownloads,
		DownloadLimit:  policy.DownloadLimit,
		ValidFrom:      now,
		ValidUntil:     now.Add(policy.Validity()),
		Metadata: license.Metadata{
			PurchaseMethod:          s.purchaseMethod,
			OriginalPriceAtIssuance: catalog.FormatMinorUnits(tpl.EffectivePrice()),
			Tier:                    tier,
		},
	}

	insertedID, err := s.licenses.Create(ctx, newLicense)
	if err != nil {
		if errors.Is(err, license.ErrDuplicate) {
			return nil, ierr.ErrDuplicateLicense
		}
		log.Error("Failed to create license via repository", zap.Error(err))
		return nil, fmt.Errorf("repository error during license creation: %w", err)
	}

	created, err := s.licenses.FindByID(ctx, insertedID)
	if err != nil {
		log.Error("Failed to find newly created license by ID", zap.String("id", insertedID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve created license (id: %s): %w", insertedID, err)
	}

	s.metrics.LicensesIssued.WithLabelValues(string(tier)).Inc()
	log.Info("License issued", zap.String("id", created.ID.String()), zap.String("tier", string(tier)))
	return created, nil
}

// ListLicenses returns the caller's ACTIVE licenses, newest first.
func (s *LicenseService) ListLicenses(ctx context.Context, userID uuid.UUID) ([]LicenseView, error) {
	licenses, err := s.licenses.ListActiveByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list licenses", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("repository error listing licenses: %w", err)
	}

	views := make([]LicenseView, 0, len(licenses))
	for _, lic := range licenses {
		view := LicenseView{License: lic}
		tpl, err := s.templates.FindTemplateByID(ctx, lic.TemplateID)
		switch {
		case err == nil:
			view.Template = tpl
		case errors.Is(err, catalog.ErrTemplateNotFound):
		default:
			return nil, fmt.Errorf("repository error loading template: %w", err)
		}
		views = append(views, view)
	}
	return views, nil
}

// UpdateLicenseStatus applies an administrative status change.
func (s *LicenseService) UpdateLicenseStatus(ctx context.Context, id uuid.UUID, status license.LicenseStatus) (*license.License, error) {
	if !license.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown license status %q", ierr.ErrValidation, status)
	}

	current, err := s.licenses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return nil, fmt.Errorf("%w: license %s", ierr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("repository error loading license: %w", err)
	}

	if !license.CanTransition(current.Status, status) {
		s.logger.Warn("Rejected license status transition",
			zap.String("id", id.String()),
			zap.String("from", string(current.Status)),
			zap.String("to", string(status)),
		)
		return nil, fmt.Errorf("%w: %w: %s -> %s", ierr.ErrConflict, license.ErrInvalidTransition, current.Status, status)
	}

	if err := s.licenses.UpdateStatus(ctx, id, current.Status, status); err != nil {
		if errors.Is(err, license.ErrNotFound) {
			return nil, fmt.Errorf("%w: license %s", ierr.ErrNotFound, id)
		}
		if errors.Is(err, license.ErrStatusChanged) {
			return nil, fmt.Errorf("%w: %w", ierr.ErrConflict, err)
		}
		return nil, fmt.Errorf("repository error updating license status: %w", err)
	}

	updated, err := s.licenses.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload license (id: %s): %w", id, err)
	}

	s.logger.Info("License status updated",
		zap.String("id", id.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
	)
	return updated, nil
}
