package promotion

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(def *Definition)
		wantField string
	}{
		{name: "valid"},
		{name: "missing id", mutate: func(def *Definition) { def.ID = "" }, wantField: "ID"},
		{name: "short code", mutate: func(def *Definition) { def.Code = "AB" }, wantField: "Code"},
		{name: "missing name", mutate: func(def *Definition) { def.Name = "" }, wantField: "Name"},
		{name: "missing mechanism", mutate: func(def *Definition) { def.Mechanism = Mechanism{} }, wantField: "Mechanism"},
		{name: "negative fixed price", mutate: func(def *Definition) { def.Mechanism = FixedPrice(d("-1")) }, wantField: "Mechanism"},
		{name: "zero flat amount", mutate: func(def *Definition) { def.Mechanism = FlatAmount(d("0")) }, wantField: "Mechanism"},
		{name: "percentage over 100", mutate: func(def *Definition) { def.Mechanism = Percentage(d("101"), nil) }, wantField: "Mechanism"},
		{name: "zero cap", mutate: func(def *Definition) { def.Mechanism = Percentage(d("10"), dp("0")) }, wantField: "Mechanism"},
		{name: "cap on fixed price", mutate: func(def *Definition) { def.Mechanism = Mechanism{Kind: KindFixedPrice, Amount: d("49"), Cap: dp("5")} }, wantField: "Mechanism"},
		{name: "unknown product type", mutate: func(def *Definition) { def.ProductType = "gift_cards" }, wantField: "ProductType"},
		{name: "tee times without courses", mutate: func(def *Definition) { def.Filters.Courses = nil }, wantField: "Filters"},
		{name: "end before start", mutate: func(def *Definition) { def.Filters.StartTime = tod(18, 0); def.Filters.EndTime = tod(8, 0) }, wantField: "Filters"},
		{name: "bad time of day", mutate: func(def *Definition) { def.Filters.StartTime = tod(25, 0) }, wantField: "Filters"},
		{name: "bad weekday", mutate: func(def *Definition) { def.Filters.Days = []time.Weekday{9} }, wantField: "Filters"},
		{name: "pro shop without courses", mutate: func(def *Definition) { def.ProductType = ProductProShop; def.Filters = Filters{} }},
		{name: "unknown audience", mutate: func(def *Definition) { def.Audience = "vip" }, wantField: "Audience"},
		{name: "tier audience without tiers", mutate: func(def *Definition) { def.Audience = AudienceSpecificTiers }, wantField: "TargetTiers"},
		{name: "no channels", mutate: func(def *Definition) { def.Channels = nil }, wantField: "Channels"},
		{name: "unknown channel", mutate: func(def *Definition) { def.Channels = []Channel{"Fax"} }, wantField: "Channels"},
		{name: "valid until before valid from", mutate: func(def *Definition) { def.ValidUntil = date(2025, 5, 1) }, wantField: "ValidUntil"},
		{name: "same day window", mutate: func(def *Definition) { def.ValidUntil = def.ValidFrom }},
		{name: "activation after valid from", mutate: func(def *Definition) { def.ActivationDate = ptrTime(date(2025, 6, 2)) }, wantField: "ActivationDate"},
		{name: "activation on valid from", mutate: func(def *Definition) { def.ActivationDate = ptrTime(date(2025, 6, 1)) }},
		{name: "used over limit", mutate: func(def *Definition) { def.TotalUsed = 101 }, wantField: "TotalUsed"},
		{name: "negative limit", mutate: func(def *Definition) { def.TotalLimit = intp(-1) }, wantField: "TotalLimit"},
		{name: "negative per golfer", mutate: func(def *Definition) { def.PerGolferLimit = -1 }, wantField: "PerGolferLimit"},
		{name: "negative minimum purchase", mutate: func(def *Definition) { def.MinPurchase = dp("-5") }, wantField: "MinPurchase"},
		{name: "fractional percentage", mutate: func(def *Definition) { def.Mechanism = Percentage(d("12.5"), dp("20.25")) }},
		{name: "sub-cent percentage", mutate: func(def *Definition) { def.Mechanism = Percentage(d("12.345"), nil) }, wantField: "Mechanism"},
		{name: "sub-cent cap", mutate: func(def *Definition) { def.Mechanism = Percentage(d("10"), dp("4.999")) }, wantField: "Mechanism"},
		{name: "sub-cent minimum purchase", mutate: func(def *Definition) { def.MinPurchase = dp("49.995") }, wantField: "MinPurchase"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := twilight()
			if tt.mutate != nil {
				tt.mutate(&def)
			}

			err := def.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var fields validation.Errors
			require.True(t, errors.As(err, &fields), "expected validation.Errors, got %T", err)
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestInvalidDefinitionError(t *testing.T) {
	def := twilight()
	def.Name = ""
	err := error(&InvalidDefinitionError{Err: def.Validate()})

	require.ErrorIs(t, err, ErrInvalidRequest)
	var fields validation.Errors
	require.True(t, errors.As(err, &fields))
	assert.Contains(t, err.Error(), "invalid promotion definition")
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("08:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 30}, got)
	assert.Equal(t, "08:30", got.String())

	_, err = ParseTimeOfDay("8.30pm")
	require.Error(t, err)
}

func TestStatusAt(t *testing.T) {
	def := twilight()

	assert.Equal(t, StatusScheduled, def.StatusAt(date(2025, 5, 31)))
	assert.Equal(t, StatusActive, def.StatusAt(wednesday14))
	assert.Equal(t, StatusExpired, def.StatusAt(date(2025, 9, 1)))

	def.TotalUsed = 100
	assert.Equal(t, StatusEnded, def.StatusAt(wednesday14))

	def.ActivationDate = ptrTime(date(2025, 5, 1))
	def.TotalUsed = 0
	assert.Equal(t, StatusScheduled, def.StatusAt(date(2025, 5, 15)))
}
