package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/fairway-promos/internal/clock"
)

// RedeemRequest is an explicit coupon-code redemption. Product is the item
// the code is being applied to.
type RedeemRequest struct {
	Code     string
	Channel  Channel
	GolferID string
	Product  Product
}

// Redemption is a committed redemption. Definition reflects the counter
// after the increment.
type Redemption struct {
	Definition  Definition
	GolferID    string
	Baseline    decimal.Decimal
	FinalPrice  decimal.Decimal
	GolferCount int
	RedeemedAt  time.Time
}

// Ledger validates and commits coupon-code redemptions. It is the only
// component that mutates redemption counters.
type Ledger struct {
	store       LedgerStore
	clock       clock.Clock
	tracer      trace.Tracer
	redemptions metric.Int64Counter
}

// NewLedger creates a Ledger backed by store.
func NewLedger(store LedgerStore, clk clock.Clock, opts ...Option) (*Ledger, error) {
	o := buildOptions(opts)
	redemptions, err := o.meter().Int64Counter("promotions.redemptions",
		metric.WithDescription("Coupon redemption attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create redemptions counter")
	}
	return &Ledger{
		store:       store,
		clock:       clk,
		tracer:      o.tracer(),
		redemptions: redemptions,
	}, nil
}

// Redeem looks up req.Code, resolves the golfer, runs the eligibility chain
// without the auto-apply gate and, on success, increments the definition's
// total and the golfer's count in one transaction. Either both counters
// move or neither does.
func (l *Ledger) Redeem(ctx context.Context, req RedeemRequest) (_ *Redemption, rerr error) {
	ctx, span := l.tracer.Start(ctx, "promotion.Redeem",
		trace.WithAttributes(
			attribute.String("promotion.channel", string(req.Channel)),
			attribute.String("golfer.id", req.GolferID),
		),
	)
	defer func() {
		l.redemptions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(rerr))))
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, &RejectionError{Reason: ErrCouponNotFound, Detail: "empty code"}
	}
	if !req.Channel.Valid() {
		return nil, errors.Wrapf(ErrInvalidRequest, "unknown channel %q", req.Channel)
	}

	var result *Redemption
	err := l.store.WithTx(ctx, func(ctx context.Context) error {
		def, err := l.store.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrCouponNotFound) {
				return &RejectionError{Reason: ErrCouponNotFound, Detail: code}
			}
			return errors.Wrap(err, "lookup coupon")
		}
		span.SetAttributes(attribute.String("promotion.id", def.ID))

		golfer, err := l.store.GetGolfer(ctx, req.GolferID)
		if err != nil {
			if errors.Is(err, ErrInvalidGolfer) {
				return &RejectionError{Reason: ErrInvalidGolfer, DefinitionID: def.ID, Detail: req.GolferID}
			}
			return errors.Wrap(err, "lookup golfer")
		}

		now := l.clock.Now()
		s := Subject{Product: req.Product, Golfer: golfer, Channel: req.Channel}
		if err := Check(def, s, now); err != nil {
			return err
		}

		baseline := req.Product.Baseline().Round(2)
		price, err := CandidatePrice(def.Mechanism, baseline)
		if err != nil {
			return errors.Wrapf(err, "price definition %s", def.ID)
		}

		if err := l.store.RecordRedemption(ctx, def.ID, golfer.ID); err != nil {
			return errors.Wrap(err, "record redemption")
		}

		committed := def.Clone()
		committed.TotalUsed++
		result = &Redemption{
			Definition:  committed,
			GolferID:    golfer.ID,
			Baseline:    baseline,
			FinalPrice:  price,
			GolferCount: golfer.Redemptions.Count(def.ID) + 1,
			RedeemedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func outcome(err error) string {
	if err == nil {
		return "redeemed"
	}
	var rej *RejectionError
	if errors.As(err, &rej) {
		return "rejected"
	}
	return "error"
}
