package promotion

import (
	"time"

	"github.com/go-faster/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// InvalidDefinitionError reports field-level validation failures. It
// matches ErrInvalidRequest with errors.Is.
type InvalidDefinitionError struct {
	Err error
}

func (e *InvalidDefinitionError) Error() string {
	return "invalid promotion definition: " + e.Err.Error()
}

func (e *InvalidDefinitionError) Unwrap() error {
	return e.Err
}

func (e *InvalidDefinitionError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Validate checks that d is well formed: one usable mechanism, known enums,
// consistent dates and counters, and filters that fit the product type.
// Amounts carry at most two decimal places.
func (d Definition) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Code, validation.Required, validation.Length(3, 64)),
		validation.Field(&d.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&d.Mechanism),
		validation.Field(&d.ProductType,
			validation.Required,
			validation.In(ProductTeeTimes, ProductProShop, ProductMembershipTiers, ProductTournamentPass),
		),
		validation.Field(&d.Filters, validation.By(filtersFor(d.ProductType))),
		validation.Field(&d.Audience,
			validation.Required,
			validation.In(AudienceAll, AudienceNewCustomers, AudienceSpecificTiers, AudienceDormant, AudienceBirthday),
		),
		validation.Field(&d.TargetTiers,
			validation.When(d.Audience == AudienceSpecificTiers, validation.Required.Error("required for tier audiences")),
		),
		validation.Field(&d.Channels,
			validation.Required,
			validation.Each(validation.In(ChannelOnline, ChannelPOS)),
		),
		validation.Field(&d.ValidFrom, validation.Required),
		validation.Field(&d.ValidUntil, validation.Required, validation.By(notBefore(d.ValidFrom, "valid from"))),
		validation.Field(&d.ActivationDate, validation.By(notAfter(d.ValidFrom, "valid from"))),
		validation.Field(&d.TotalLimit, validation.Min(0)),
		validation.Field(&d.TotalUsed, validation.Min(0), validation.By(withinLimit(d.TotalLimit))),
		validation.Field(&d.PerGolferLimit, validation.Min(0)),
		validation.Field(&d.MinPurchase, validation.By(nonNegative), validation.By(atMostCents)),
	)
}

// Validate checks that the amount fits the mechanism kind.
func (m Mechanism) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Kind,
			validation.Required,
			validation.In(KindFixedPrice, KindFlatAmount, KindPercentage),
		),
		validation.Field(&m.Amount, validation.By(amountFor(m.Kind)), validation.By(atMostCents)),
		validation.Field(&m.Cap,
			validation.When(m.Kind != KindPercentage, validation.Nil.Error("only percentage discounts have a cap")),
			validation.By(positive),
			validation.By(atMostCents),
		),
	)
}

func amountFor(kind MechanismKind) validation.RuleFunc {
	return func(value any) error {
		v, _ := value.(decimal.Decimal)
		switch kind {
		case KindFixedPrice:
			if v.IsNegative() {
				return errors.New("must not be negative")
			}
		case KindFlatAmount:
			if !v.IsPositive() {
				return errors.New("must be greater than zero")
			}
		case KindPercentage:
			if !v.IsPositive() || v.GreaterThan(hundred) {
				return errors.New("must be greater than 0 and at most 100")
			}
		}
		return nil
	}
}

func filtersFor(t ProductType) validation.RuleFunc {
	return func(value any) error {
		f, _ := value.(Filters)
		if t != ProductTeeTimes {
			return nil
		}
		return validation.ValidateStruct(&f,
			validation.Field(&f.Courses, validation.Required.Error("tee time promotions need at least one course")),
			validation.Field(&f.Days, validation.Each(validation.Min(int(time.Sunday)), validation.Max(int(time.Saturday)))),
			validation.Field(&f.StartTime, validation.By(validTimeOfDay)),
			validation.Field(&f.EndTime, validation.By(validTimeOfDay), validation.By(endAfterStart(f.StartTime))),
		)
	}
}

func validTimeOfDay(value any) error {
	t, _ := value.(*TimeOfDay)
	if t != nil && !t.valid() {
		return errors.New("must be a valid HH:MM time")
	}
	return nil
}

func endAfterStart(start *TimeOfDay) validation.RuleFunc {
	return func(value any) error {
		end, _ := value.(*TimeOfDay)
		if start != nil && end != nil && end.minutes() < start.minutes() {
			return errors.Errorf("must not be before start time %s", start)
		}
		return nil
	}
}

func notBefore(ref time.Time, name string) validation.RuleFunc {
	return func(value any) error {
		t, _ := value.(time.Time)
		if !ref.IsZero() && startOfDay(t).Before(startOfDay(ref)) {
			return errors.Errorf("must not be before %s", name)
		}
		return nil
	}
}

func notAfter(ref time.Time, name string) validation.RuleFunc {
	return func(value any) error {
		t, _ := value.(*time.Time)
		if t != nil && !ref.IsZero() && startOfDay(*t).After(startOfDay(ref)) {
			return errors.Errorf("must not be after %s", name)
		}
		return nil
	}
}

func withinLimit(limit *int) validation.RuleFunc {
	return func(value any) error {
		used, _ := value.(int)
		if limit != nil && used > *limit {
			return errors.Errorf("must not exceed the total limit %d", *limit)
		}
		return nil
	}
}

func nonNegative(value any) error {
	v, _ := value.(*decimal.Decimal)
	if v != nil && v.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func positive(value any) error {
	v, _ := value.(*decimal.Decimal)
	if v != nil && !v.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func atMostCents(value any) error {
	var v decimal.Decimal
	switch x := value.(type) {
	case decimal.Decimal:
		v = x
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		v = *x
	}
	if !v.Equal(v.Round(2)) {
		return errors.New("must have at most two decimal places")
	}
	return nil
}
