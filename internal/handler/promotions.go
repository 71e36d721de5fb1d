package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
	"github.com/xenking/fairway-promos/internal/wire"
)

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	listings, err := h.admin.List(r.Context())
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeListings(e, listings)
	})
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	def, err := decodeBody(w, r, wire.DecodeDefinition)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	created, err := h.admin.Create(ctx, def)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	zctx.From(ctx).Info("Promotion created",
		zap.String("promotion_id", created.ID),
		zap.String("code", created.Code),
	)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		wire.EncodeDefinition(e, *created)
	})
}

func (h *Handler) getPromotion(w http.ResponseWriter, r *http.Request) {
	def, err := h.admin.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeDefinition(e, *def)
	})
}

func (h *Handler) updatePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	def, err := decodeBody(w, r, wire.DecodeDefinition)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	// The path is authoritative for the id.
	def.ID = chi.URLParam(r, "id")
	updated, err := h.admin.Update(ctx, def)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	zctx.From(ctx).Info("Promotion updated", zap.String("promotion_id", updated.ID))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeDefinition(e, *updated)
	})
}

func (h *Handler) wallet(w http.ResponseWriter, r *http.Request) {
	defs, err := h.admin.Wallet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeDefinitions(e, defs)
	})
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeBody(w, r, wire.DecodeQuoteRequest)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	q, err := h.resolver.Quote(ctx, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeQuote(e, q)
	})
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeBody(w, r, wire.DecodeRedeemRequest)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	lg := zctx.From(ctx).With(
		zap.String("code", req.Code),
		zap.String("golfer_id", req.GolferID),
	)
	red, err := h.ledger.Redeem(ctx, req)
	if err != nil {
		if promotion.IsRejection(err) {
			lg.Debug("Redemption rejected", zap.Error(err))
		}
		respondError(ctx, w, err)
		return
	}
	lg.Info("Coupon redeemed",
		zap.String("promotion_id", red.Definition.ID),
		zap.Int("total_used", red.Definition.TotalUsed),
	)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeRedemption(e, *red)
	})
}
