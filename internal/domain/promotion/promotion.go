// Package promotion implements the golf-course promotion engine: the
// eligibility filter, the passive best-price resolver, the coupon
// redemption ledger and the admin catalog operations built on them.
package promotion

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Channel identifies where a price is requested or a code is redeemed.
type Channel string

const (
	ChannelOnline Channel = "Online"
	ChannelPOS    Channel = "POS"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelOnline || c == ChannelPOS
}

// Audience enumerates the golfer groups a definition can target.
type Audience string

const (
	AudienceAll           Audience = "all"
	AudienceNewCustomers  Audience = "new_customers"
	AudienceSpecificTiers Audience = "specific_tiers"
	// AudienceDormant and AudienceBirthday are accepted but not evaluated:
	// they admit every golfer until their matching rules are defined.
	AudienceDormant  Audience = "dormant"
	AudienceBirthday Audience = "birthday"
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	switch a {
	case AudienceAll, AudienceNewCustomers, AudienceSpecificTiers, AudienceDormant, AudienceBirthday:
		return true
	}
	return false
}

// ProductType selects which product category a definition applies to.
type ProductType string

const (
	ProductTeeTimes        ProductType = "tee_times"
	ProductProShop         ProductType = "pro_shop"
	ProductMembershipTiers ProductType = "membership_tiers"
	ProductTournamentPass  ProductType = "tournament_passes"
)

// Valid reports whether t is a known product type.
func (t ProductType) Valid() bool {
	switch t {
	case ProductTeeTimes, ProductProShop, ProductMembershipTiers, ProductTournamentPass:
		return true
	}
	return false
}

// MechanismKind enumerates the supported discount strategies.
type MechanismKind string

const (
	// KindFixedPrice replaces the price with an absolute amount.
	KindFixedPrice MechanismKind = "fixed_price"
	// KindFlatAmount subtracts an amount, never going below zero.
	KindFlatAmount MechanismKind = "flat_amount"
	// KindPercentage subtracts a percentage of the price, optionally capped.
	KindPercentage MechanismKind = "percentage"
)

// Mechanism is the single discount a definition grants. Amount holds the
// replacement price, the subtracted amount or the percentage points
// depending on Kind. Cap is only meaningful for KindPercentage.
type Mechanism struct {
	Kind   MechanismKind
	Amount decimal.Decimal
	Cap    *decimal.Decimal
}

// FixedPrice returns a mechanism replacing the price with p.
func FixedPrice(p decimal.Decimal) Mechanism {
	return Mechanism{Kind: KindFixedPrice, Amount: p}
}

// FlatAmount returns a mechanism subtracting amount from the price.
func FlatAmount(amount decimal.Decimal) Mechanism {
	return Mechanism{Kind: KindFlatAmount, Amount: amount}
}

// Percentage returns a mechanism subtracting pct percent of the price. A nil
// maxDiscount leaves the discount uncapped.
func Percentage(pct decimal.Decimal, maxDiscount *decimal.Decimal) Mechanism {
	return Mechanism{Kind: KindPercentage, Amount: pct, Cap: maxDiscount}
}

// TimeOfDay is a wall-clock time in UTC at minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, errors.Wrapf(err, "parse time of day %q", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// Filters holds the type-specific applicability rules. Only the fields
// relevant to the definition's ProductType are consulted.
type Filters struct {
	// Tee times.
	Courses         []string
	ExcludedCourses []string
	Days            []time.Weekday
	StartTime       *TimeOfDay
	EndTime         *TimeOfDay

	// Pro shop.
	Categories         []string
	ExcludedCategories []string
	Items              []string
	ExcludedItems      []string

	// Memberships.
	Tiers []string

	// Tournaments.
	Tournaments []string
}

// Definition is a promotion or coupon configured by an admin. TotalUsed is
// the only field mutated after creation, and only by the Ledger.
type Definition struct {
	ID          string
	Code        string
	Name        string
	Headline    string
	Description string

	Mechanism   Mechanism
	ProductType ProductType
	Filters     Filters

	// ValidFrom and ValidUntil are compared at UTC day granularity:
	// the window opens at the start of ValidFrom's day and closes at the
	// end of ValidUntil's day.
	ValidFrom      time.Time
	ValidUntil     time.Time
	ActivationDate *time.Time

	Audience    Audience
	TargetTiers []string

	// TotalLimit nil means unlimited.
	TotalLimit *int
	TotalUsed  int
	// PerGolferLimit 0 means unlimited.
	PerGolferLimit int

	Channels      []Channel
	AutoApply     bool
	Stackable     bool
	FullPriceOnly bool
	MinPurchase   *decimal.Decimal
}

// Clone returns a deep copy of d.
func (d Definition) Clone() Definition {
	c := d
	if d.Mechanism.Cap != nil {
		v := *d.Mechanism.Cap
		c.Mechanism.Cap = &v
	}
	if d.ActivationDate != nil {
		v := *d.ActivationDate
		c.ActivationDate = &v
	}
	if d.TotalLimit != nil {
		v := *d.TotalLimit
		c.TotalLimit = &v
	}
	if d.MinPurchase != nil {
		v := *d.MinPurchase
		c.MinPurchase = &v
	}
	if d.Filters.StartTime != nil {
		v := *d.Filters.StartTime
		c.Filters.StartTime = &v
	}
	if d.Filters.EndTime != nil {
		v := *d.Filters.EndTime
		c.Filters.EndTime = &v
	}
	c.TargetTiers = slices.Clone(d.TargetTiers)
	c.Channels = slices.Clone(d.Channels)
	c.Filters.Courses = slices.Clone(d.Filters.Courses)
	c.Filters.ExcludedCourses = slices.Clone(d.Filters.ExcludedCourses)
	c.Filters.Days = slices.Clone(d.Filters.Days)
	c.Filters.Categories = slices.Clone(d.Filters.Categories)
	c.Filters.ExcludedCategories = slices.Clone(d.Filters.ExcludedCategories)
	c.Filters.Items = slices.Clone(d.Filters.Items)
	c.Filters.ExcludedItems = slices.Clone(d.Filters.ExcludedItems)
	c.Filters.Tiers = slices.Clone(d.Filters.Tiers)
	c.Filters.Tournaments = slices.Clone(d.Filters.Tournaments)
	return c
}

// MatchesCode reports whether code equals the definition's coupon code,
// ignoring case.
func (d *Definition) MatchesCode(code string) bool {
	return d.Code != "" && strings.EqualFold(strings.TrimSpace(code), d.Code)
}

// Status is the admin-facing lifecycle state derived from the clock.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusActive    Status = "Active"
	StatusExpired   Status = "Expired"
	StatusEnded     Status = "Ended"
)

// StatusAt derives the status of d at now. It is never stored.
func (d *Definition) StatusAt(now time.Time) Status {
	switch {
	case now.Before(d.opensAt()):
		return StatusScheduled
	case now.After(endOfDay(d.ValidUntil)):
		return StatusExpired
	case d.globalLimitReached():
		return StatusEnded
	}
	return StatusActive
}

// opensAt is the earliest instant the definition can be used.
func (d *Definition) opensAt() time.Time {
	from := startOfDay(d.ValidFrom)
	if d.ActivationDate != nil {
		if act := startOfDay(*d.ActivationDate); act.After(from) {
			return act
		}
	}
	return from
}

func (d *Definition) globalLimitReached() bool {
	return d.TotalLimit != nil && d.TotalUsed >= *d.TotalLimit
}

func (d *Definition) allowsChannel(c Channel) bool {
	return slices.Contains(d.Channels, c)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
