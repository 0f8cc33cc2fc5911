package ierr

import (
	"errors"
	"net/http"
)

// Reason is the discriminator returned to clients when a licensing or
// download request is refused.
type Reason string

const (
	ReasonInvalidOrder     Reason = "InvalidOrder"
	ReasonInvalidTier      Reason = "InvalidTier"
	ReasonDuplicateLicense Reason = "DuplicateLicense"
	ReasonNoActiveLicense  Reason = "NoActiveLicense"
	ReasonLicenseExpired   Reason = "LicenseExpired"
	ReasonQuotaExceeded    Reason = "QuotaExceeded"
	ReasonFileUnavailable  Reason = "FileUnavailable"
	ReasonTokenNotFound    Reason = "TokenNotFound"
	ReasonMalformedToken   Reason = "MalformedToken"
	ReasonTokenExpired     Reason = "TokenExpired"
	ReasonLicenseInactive  Reason = "LicenseInactive"
)

// Denial is an expected, user-facing refusal. Denials are never retried.
type Denial struct {
	Reason  Reason
	Message string
	Status  int
	Code    string
}

func (d *Denial) Error() string {
	return string(d.Reason) + ": " + d.Message
}

var (
	ErrInvalidOrder = &Denial{
		Reason:  ReasonInvalidOrder,
		Message: "Order is invalid, unpaid or does not belong to you.",
		Status:  http.StatusBadRequest,
		Code:    "INVALID_ORDER",
	}
	ErrInvalidTier = &Denial{
		Reason:  ReasonInvalidTier,
		Message: "Unknown license tier.",
		Status:  http.StatusBadRequest,
		Code:    "INVALID_TIER",
	}
	ErrDuplicateLicense = &Denial{
		Reason:  ReasonDuplicateLicense,
		Message: "A license was already issued for this order and template.",
		Status:  http.StatusConflict,
		Code:    "DUPLICATE_LICENSE",
	}
	ErrNoActiveLicense = &Denial{
		Reason:  ReasonNoActiveLicense,
		Message: "No active license found for this template.",
		Status:  http.StatusForbidden,
		Code:    "NO_ACTIVE_LICENSE",
	}
	ErrLicenseExpired = &Denial{
		Reason:  ReasonLicenseExpired,
		Message: "Your license for this template has expired.",
		Status:  http.StatusForbidden,
		Code:    "LICENSE_EXPIRED",
	}
	ErrQuotaExceeded = &Denial{
		Reason:  ReasonQuotaExceeded,
		Message: "Download limit reached for this license.",
		Status:  http.StatusForbidden,
		Code:    "QUOTA_EXCEEDED",
	}
	ErrFileUnavailable = &Denial{
		Reason:  ReasonFileUnavailable,
		Message: "The template file is not available right now.",
		Status:  http.StatusNotFound,
		Code:    "FILE_UNAVAILABLE",
	}
	ErrTokenNotFound = &Denial{
		Reason:  ReasonTokenNotFound,
		Message: "Invalid download token.",
		Status:  http.StatusNotFound,
		Code:    "TOKEN_NOT_FOUND",
	}
	ErrMalformedToken = &Denial{
		Reason:  ReasonMalformedToken,
		Message: "Malformed download token.",
		Status:  http.StatusBadRequest,
		Code:    "MALFORMED_TOKEN",
	}
	ErrTokenExpired = &Denial{
		Reason:  ReasonTokenExpired,
		Message: "Download link expired or already used.",
		Status:  http.StatusGone,
		Code:    "TOKEN_EXPIRED",
	}
	ErrLicenseInactive = &Denial{
		Reason:  ReasonLicenseInactive,
		Message: "License expired or inactive.",
		Status:  http.StatusForbidden,
		Code:    "LICENSE_INACTIVE",
	}
)

// AsDenial reports whether err carries a Denial anywhere in its chain.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
