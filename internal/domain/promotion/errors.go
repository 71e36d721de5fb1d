package promotion

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Rejection reasons. Every failed eligibility predicate maps to exactly one
// of these; callers match with errors.Is.
var (
	ErrCouponNotFound        = errors.New("coupon not found")
	ErrInvalidGolfer         = errors.New("invalid golfer")
	ErrChannelNotAllowed     = errors.New("channel not allowed")
	ErrNotYetActive          = errors.New("promotion not yet active")
	ErrExpired               = errors.New("promotion expired")
	ErrGlobalLimitReached    = errors.New("global redemption limit reached")
	ErrPerGolferLimitReached = errors.New("per-golfer redemption limit reached")
	ErrAudienceMismatch      = errors.New("golfer not in target audience")
	ErrProductTypeMismatch   = errors.New("product type mismatch")
	ErrProductFilterMismatch = errors.New("product does not match promotion filters")

	// errNotAutoApply only surfaces on the passive pricing path.
	errNotAutoApply = errors.New("promotion requires code entry")
)

var taxonomy = []error{
	ErrCouponNotFound,
	ErrInvalidGolfer,
	ErrChannelNotAllowed,
	ErrNotYetActive,
	ErrExpired,
	ErrGlobalLimitReached,
	ErrPerGolferLimitReached,
	ErrAudienceMismatch,
	ErrProductTypeMismatch,
	ErrProductFilterMismatch,
	errNotAutoApply,
}

// Configuration errors. These indicate malformed data, not ineligibility.
var (
	ErrMalformedDefinition = errors.New("malformed promotion definition")
	ErrDefinitionNotFound  = errors.New("promotion definition not found")
	ErrDuplicateCode       = errors.New("coupon code already in use")
	ErrInvalidRequest      = errors.New("invalid request")
)

// RejectionError carries the reason a definition was rejected along with
// the offending definition and a human-readable detail.
type RejectionError struct {
	Reason       error
	DefinitionID string
	Detail       string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

func reject(def *Definition, reason error, format string, args ...any) error {
	return &RejectionError{
		Reason:       reason,
		DefinitionID: def.ID,
		Detail:       fmt.Sprintf(format, args...),
	}
}

// IsRejection reports whether err is an expected "no" rather than a
// configuration or infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range taxonomy {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
