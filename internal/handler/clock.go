package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fairway-promos/internal/wire"
)

func (h *Handler) clockState() wire.ClockState {
	return wire.ClockState{Now: h.clock.Now(), Pinned: h.clock.Pinned()}
}

func (h *Handler) getClock(w http.ResponseWriter, _ *http.Request) {
	state := h.clockState()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeClock(e, state)
	})
}

// setClock pins, advances or releases the simulation clock.
func (h *Handler) setClock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := decodeBody(w, r, wire.DecodeClockUpdate)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	switch {
	case u.Reset:
		h.clock.Reset()
	case u.Now != nil:
		h.clock.Set(*u.Now)
	default:
		h.clock.Advance(u.Advance)
	}

	state := h.clockState()
	zctx.From(ctx).Info("Clock changed",
		zap.Time("now", state.Now),
		zap.Bool("pinned", state.Pinned),
	)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		wire.EncodeClock(e, state)
	})
}
