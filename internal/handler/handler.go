// Package handler exposes the promotion engine over HTTP.
package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/fairway-promos/internal/clock"
	"github.com/xenking/fairway-promos/internal/domain/promotion"
	"github.com/xenking/fairway-promos/pkg/httpmiddleware"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Handler serves the admin, pricing and redemption endpoints.
type Handler struct {
	admin    *promotion.Admin
	resolver *promotion.Resolver
	ledger   *promotion.Ledger
	clock    *clock.Simulation
}

// New constructs a Handler. clk backs the /api/clock endpoints and must be
// the clock the domain services read.
func New(
	admin *promotion.Admin,
	resolver *promotion.Resolver,
	ledger *promotion.Ledger,
	clk *clock.Simulation,
) *Handler {
	return &Handler{
		admin:    admin,
		resolver: resolver,
		ledger:   ledger,
		clock:    clk,
	}
}

// Routes builds the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", h.listPromotions)
			r.Post("/", h.createPromotion)
			r.Get("/{id}", h.getPromotion)
			r.Put("/{id}", h.updatePromotion)
		})
		r.Get("/golfers/{id}/wallet", h.wallet)
		r.Post("/quotes", h.quote)
		r.Post("/redemptions", h.redeem)
		r.Get("/clock", h.getClock)
		r.Put("/clock", h.setClock)
	})
	return r
}

// RouteFinder resolves request paths to chi route patterns for logging and
// span names.
func RouteFinder(routes chi.Routes) httpmiddleware.RouteFinder {
	return func(r *http.Request) (string, bool) {
		rctx := chi.NewRouteContext()
		if !routes.Match(rctx, r.Method, r.URL.Path) {
			return "", false
		}
		return rctx.RoutePattern(), true
	}
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// decodeBody reads the request body with decode. Malformed input is
// reported as promotion.ErrInvalidRequest.
func decodeBody[T any](w http.ResponseWriter, r *http.Request, decode func(d *jx.Decoder) (T, error)) (T, error) {
	var zero T
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return zero, errors.Errorf("%w: read body: %s", promotion.ErrInvalidRequest, err)
	}
	if len(body) == 0 {
		return zero, errors.Errorf("%w: empty body", promotion.ErrInvalidRequest)
	}
	v, err := decode(jx.DecodeBytes(body))
	if err != nil {
		return zero, errors.Errorf("%w: %s", promotion.ErrInvalidRequest, err)
	}
	return v, nil
}
