package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
)

// DecodeQuoteRequest reads {"golferId", "channel", "product"}.
func DecodeQuoteRequest(d *jx.Decoder) (promotion.QuoteRequest, error) {
	var (
		req        promotion.QuoteRequest
		hasProduct bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "golferId":
			req.GolferID, err = d.Str()
		case "channel":
			var s string
			s, err = d.Str()
			req.Channel = promotion.Channel(s)
		case "product":
			req.Product, err = DecodeProduct(d)
			hasProduct = err == nil
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return req, errors.Wrap(err, "decode quote request")
	}
	if !hasProduct {
		return req, errors.New("decode quote request: product is required")
	}
	return req, nil
}

// DecodeRedeemRequest reads {"couponCode", "channel", "golferId", "product"}.
// "code" is accepted as an alias of "couponCode".
func DecodeRedeemRequest(d *jx.Decoder) (promotion.RedeemRequest, error) {
	var (
		req        promotion.RedeemRequest
		hasProduct bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "couponCode", "code":
			req.Code, err = d.Str()
		case "channel":
			var s string
			s, err = d.Str()
			req.Channel = promotion.Channel(s)
		case "golferId":
			req.GolferID, err = d.Str()
		case "product":
			req.Product, err = DecodeProduct(d)
			hasProduct = err == nil
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return req, errors.Wrap(err, "decode redeem request")
	}
	if !hasProduct {
		return req, errors.New("decode redeem request: product is required")
	}
	return req, nil
}

// EncodeQuote writes the best price for a product.
func EncodeQuote(e *jx.Encoder, q promotion.Quote) {
	e.ObjStart()
	e.FieldStart("baseline")
	encodeDecimal(e, q.Baseline)
	e.FieldStart("finalPrice")
	encodeDecimal(e, q.FinalPrice)
	e.FieldStart("discount")
	encodeDecimal(e, savings(q.Baseline, q.FinalPrice))
	e.FieldStart("applied")
	if q.Applied == nil {
		e.Null()
	} else {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(q.Applied.ID)
		e.FieldStart("code")
		e.Str(q.Applied.Code)
		e.FieldStart("headline")
		e.Str(q.Applied.Headline)
		e.FieldStart("discount")
		encodeDecimal(e, q.Applied.Discount)
		e.ObjEnd()
	}
	e.ObjEnd()
}

// EncodeRedemption writes a committed redemption.
func EncodeRedemption(e *jx.Encoder, r promotion.Redemption) {
	e.ObjStart()
	e.FieldStart("promotionId")
	e.Str(r.Definition.ID)
	e.FieldStart("code")
	e.Str(r.Definition.Code)
	e.FieldStart("golferId")
	e.Str(r.GolferID)
	e.FieldStart("baseline")
	encodeDecimal(e, r.Baseline)
	e.FieldStart("finalPrice")
	encodeDecimal(e, r.FinalPrice)
	e.FieldStart("discount")
	encodeDecimal(e, savings(r.Baseline, r.FinalPrice))
	e.FieldStart("golferRedemptions")
	e.Int(r.GolferCount)
	e.FieldStart("totalUsed")
	e.Int(r.Definition.TotalUsed)
	e.FieldStart("redeemedAt")
	encodeTime(e, r.RedeemedAt)
	e.ObjEnd()
}

func savings(baseline, final decimal.Decimal) decimal.Decimal {
	if final.GreaterThan(baseline) {
		return decimal.Zero
	}
	return baseline.Sub(final)
}

// EncodeError writes the error envelope shared by every endpoint.
func EncodeError(e *jx.Encoder, status int, code, message string) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("error")
	e.Str(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
}

// ClockState is the simulation clock as exposed over HTTP.
type ClockState struct {
	Now    time.Time
	Pinned bool
}

// EncodeClock writes the clock state.
func EncodeClock(e *jx.Encoder, s ClockState) {
	e.ObjStart()
	e.FieldStart("now")
	encodeTime(e, s.Now)
	e.FieldStart("pinned")
	e.Bool(s.Pinned)
	e.ObjEnd()
}

// ClockUpdate is a request to move the simulation clock. Exactly one of the
// fields is expected to be set.
type ClockUpdate struct {
	Now     *time.Time
	Advance time.Duration
	Reset   bool
}

// DecodeClockUpdate reads {"now"}, {"advance"} or {"reset": true}.
func DecodeClockUpdate(d *jx.Decoder) (ClockUpdate, error) {
	var u ClockUpdate
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "now":
			var t time.Time
			if t, err = decodeTime(d); err == nil {
				u.Now = &t
			}
		case "advance":
			var s string
			if s, err = d.Str(); err == nil {
				u.Advance, err = time.ParseDuration(s)
			}
		case "reset":
			u.Reset, err = d.Bool()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return u, errors.Wrap(err, "decode clock update")
	}
	set := 0
	if u.Now != nil {
		set++
	}
	if u.Advance != 0 {
		set++
	}
	if u.Reset {
		set++
	}
	if set != 1 {
		return u, errors.New("decode clock update: set exactly one of now, advance, reset")
	}
	return u, nil
}
