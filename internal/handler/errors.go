package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
	"github.com/xenking/fairway-promos/internal/wire"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{promotion.ErrCouponNotFound, http.StatusNotFound, "COUPON_NOT_FOUND"},
	{promotion.ErrInvalidGolfer, http.StatusNotFound, "INVALID_GOLFER"},
	{promotion.ErrChannelNotAllowed, http.StatusUnprocessableEntity, "CHANNEL_NOT_ALLOWED"},
	{promotion.ErrNotYetActive, http.StatusUnprocessableEntity, "NOT_YET_ACTIVE"},
	{promotion.ErrExpired, http.StatusUnprocessableEntity, "EXPIRED"},
	{promotion.ErrGlobalLimitReached, http.StatusUnprocessableEntity, "GLOBAL_LIMIT_REACHED"},
	{promotion.ErrPerGolferLimitReached, http.StatusUnprocessableEntity, "PER_GOLFER_LIMIT_REACHED"},
	{promotion.ErrAudienceMismatch, http.StatusUnprocessableEntity, "AUDIENCE_MISMATCH"},
	{promotion.ErrProductTypeMismatch, http.StatusUnprocessableEntity, "PRODUCT_TYPE_MISMATCH"},
	{promotion.ErrProductFilterMismatch, http.StatusUnprocessableEntity, "PRODUCT_FILTER_MISMATCH"},
	{promotion.ErrDefinitionNotFound, http.StatusNotFound, "DEFINITION_NOT_FOUND"},
	{promotion.ErrDuplicateCode, http.StatusBadRequest, "DUPLICATE_CODE"},
	{promotion.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
}

// errorStatus maps err to an HTTP status and machine code. Anything outside
// the known taxonomy is an internal error.
func errorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	if errors.Is(err, promotion.ErrMalformedDefinition) {
		return http.StatusInternalServerError, "MALFORMED_DEFINITION"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// respondError writes err as the error envelope. Internal errors are logged
// and their details hidden from the client.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		zctx.From(ctx).Error("Request failed", zap.String("error_code", code), zap.Error(err))
		message = "internal server error"
	}
	writeError(w, status, code, message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		wire.EncodeError(e, status, code, message)
	})
}
