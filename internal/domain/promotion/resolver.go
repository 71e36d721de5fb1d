package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/fairway-promos/internal/clock"
)

// Applied identifies the definition behind a quoted price, for display.
type Applied struct {
	ID       string
	Code     string
	Headline string
	Discount decimal.Decimal
}

// Quote is the outcome of passive pricing.
type Quote struct {
	Baseline   decimal.Decimal
	FinalPrice decimal.Decimal
	Applied    *Applied
}

// ResolveBestPrice picks the auto-apply definition yielding the lowest price
// for s at now. A candidate wins only if it is strictly below the current
// best, which starts at the product's baseline, so ties keep the earlier
// definition and a fixed price above the baseline never applies. Nothing is
// mutated.
func ResolveBestPrice(catalog []Definition, s Subject, now time.Time) (Quote, error) {
	baseline := s.Product.Baseline().Round(2)
	q := Quote{Baseline: baseline, FinalPrice: baseline}

	for i := range catalog {
		def := &catalog[i]
		if err := check(def, s, now, ModePassive); err != nil {
			if IsRejection(err) {
				continue
			}
			return Quote{}, err
		}

		price, err := CandidatePrice(def.Mechanism, baseline)
		if err != nil {
			return Quote{}, errors.Wrapf(err, "price definition %s", def.ID)
		}
		if price.LessThan(q.FinalPrice) {
			q.FinalPrice = price
			q.Applied = &Applied{
				ID:       def.ID,
				Code:     def.Code,
				Headline: def.Headline,
				Discount: baseline.Sub(price),
			}
		}
	}
	return q, nil
}

// QuoteRequest asks for the best passive price of a product. An empty
// GolferID prices for an anonymous guest.
type QuoteRequest struct {
	GolferID string
	Channel  Channel
	Product  Product
}

// Resolver prices products against the stored catalog.
type Resolver struct {
	catalog Catalog
	golfers Golfers
	clock   clock.Clock
	quotes  metric.Int64Counter
}

// NewResolver creates a Resolver reading from the given stores.
func NewResolver(catalog Catalog, golfers Golfers, clk clock.Clock, opts ...Option) (*Resolver, error) {
	o := buildOptions(opts)
	quotes, err := o.meter().Int64Counter("promotions.quotes",
		metric.WithDescription("Passive price quotes served"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create quotes counter")
	}
	return &Resolver{catalog: catalog, golfers: golfers, clock: clk, quotes: quotes}, nil
}

// Quote resolves the best auto-apply price for req.
func (r *Resolver) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if !req.Channel.Valid() {
		return Quote{}, errors.Wrapf(ErrInvalidRequest, "unknown channel %q", req.Channel)
	}

	var golfer *Golfer
	if req.GolferID != "" {
		g, err := r.golfers.GetGolfer(ctx, req.GolferID)
		if err != nil {
			if errors.Is(err, ErrInvalidGolfer) {
				return Quote{}, &RejectionError{Reason: ErrInvalidGolfer, Detail: req.GolferID}
			}
			return Quote{}, errors.Wrap(err, "lookup golfer")
		}
		golfer = g
	}

	defs, err := r.catalog.ListDefinitions(ctx)
	if err != nil {
		return Quote{}, errors.Wrap(err, "list definitions")
	}

	q, err := ResolveBestPrice(defs, Subject{Product: req.Product, Golfer: golfer, Channel: req.Channel}, r.clock.Now())
	if err != nil {
		return Quote{}, err
	}
	r.quotes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("applied", q.Applied != nil)))
	return q, nil
}
