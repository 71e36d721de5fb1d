package promotion

import (
	"slices"
	"time"

	"github.com/go-faster/errors"
)

// Mode selects which predicate chain applies.
type Mode int

const (
	// ModeRedeem is explicit code entry: the auto-apply gate is skipped.
	ModeRedeem Mode = iota
	// ModePassive is automatic best-price selection: only auto-apply
	// definitions qualify.
	ModePassive
)

// Subject is the (product, golfer, channel) triple a definition is checked
// against. A nil Golfer is treated as an anonymous guest with no history.
type Subject struct {
	Product Product
	Golfer  *Golfer
	Channel Channel
}

var guest = &Golfer{}

func (s Subject) golfer() *Golfer {
	if s.Golfer == nil {
		return guest
	}
	return s.Golfer
}

// Check evaluates def against s at now for an explicit redemption and
// returns the first failing predicate as a *RejectionError. The order is
// fixed: channel, activation and validity window, global limit, full-price
// and minimum-purchase rules, per-golfer limit, audience, product type,
// type-specific filters.
//
// Errors wrapping ErrMalformedDefinition signal configuration the engine
// cannot interpret.
func Check(def *Definition, s Subject, now time.Time) error {
	return check(def, s, now, ModeRedeem)
}

// IsEligible reports whether def applies to s at now under mode. Malformed
// definitions are never eligible.
func IsEligible(def *Definition, s Subject, now time.Time, mode Mode) bool {
	return check(def, s, now, mode) == nil
}

// FilterEligible returns the definitions from catalog that apply to s at
// now, preserving catalog order.
func FilterEligible(catalog []Definition, s Subject, now time.Time, mode Mode) []Definition {
	var out []Definition
	for i := range catalog {
		if IsEligible(&catalog[i], s, now, mode) {
			out = append(out, catalog[i])
		}
	}
	return out
}

func check(def *Definition, s Subject, now time.Time, mode Mode) error {
	now = now.UTC()
	g := s.golfer()

	if !def.allowsChannel(s.Channel) {
		return reject(def, ErrChannelNotAllowed, "channel %q not accepted", s.Channel)
	}
	if mode == ModePassive && !def.AutoApply {
		return reject(def, errNotAutoApply, "")
	}
	if err := checkWindow(def, now); err != nil {
		return err
	}
	if def.globalLimitReached() {
		return reject(def, ErrGlobalLimitReached, "%d of %d used", def.TotalUsed, *def.TotalLimit)
	}
	if def.FullPriceOnly && s.Product.OnSale() {
		return reject(def, ErrProductFilterMismatch, "full-price items only")
	}
	if def.MinPurchase != nil && s.Product.Baseline().LessThan(*def.MinPurchase) {
		return reject(def, ErrProductFilterMismatch, "minimum purchase %s", def.MinPurchase.StringFixed(2))
	}
	if def.PerGolferLimit > 0 {
		if n := g.Redemptions.Count(def.ID); n >= def.PerGolferLimit {
			return reject(def, ErrPerGolferLimitReached, "%d of %d used", n, def.PerGolferLimit)
		}
	}
	if err := checkAudience(def, g); err != nil {
		return err
	}

	if !def.ProductType.Valid() {
		return errors.Wrapf(ErrMalformedDefinition, "definition %s: unknown product type %q", def.ID, def.ProductType)
	}
	if s.Product.Item == nil {
		return errors.Wrapf(ErrInvalidRequest, "product %s has no variant", s.Product.ID)
	}
	if got := s.Product.Type(); got != def.ProductType {
		return reject(def, ErrProductTypeMismatch, "applies to %s, not %s", def.ProductType, got)
	}
	return matchFilters(def, s.Product.Item)
}

func checkWindow(def *Definition, now time.Time) error {
	if def.ActivationDate != nil && now.Before(startOfDay(*def.ActivationDate)) {
		return reject(def, ErrNotYetActive, "activates on %s", def.ActivationDate.UTC().Format(time.DateOnly))
	}
	if now.Before(startOfDay(def.ValidFrom)) {
		return reject(def, ErrNotYetActive, "valid from %s", def.ValidFrom.UTC().Format(time.DateOnly))
	}
	if now.After(endOfDay(def.ValidUntil)) {
		return reject(def, ErrExpired, "valid until %s", def.ValidUntil.UTC().Format(time.DateOnly))
	}
	return nil
}

func checkAudience(def *Definition, g *Golfer) error {
	switch def.Audience {
	case AudienceSpecificTiers:
		if !slices.Contains(def.TargetTiers, g.MembershipTier) {
			return reject(def, ErrAudienceMismatch, "tier %q not targeted", g.MembershipTier)
		}
	case AudienceNewCustomers:
		if !g.IsNew {
			return reject(def, ErrAudienceMismatch, "new customers only")
		}
	}
	return nil
}

func matchFilters(def *Definition, item Item) error {
	f := &def.Filters
	switch it := item.(type) {
	case TeeTimeSlot:
		return matchTeeTime(def, it)
	case ProShopItem:
		switch {
		case slices.Contains(f.ExcludedItems, it.SKU):
			return reject(def, ErrProductFilterMismatch, "item %q excluded", it.SKU)
		case slices.Contains(f.ExcludedCategories, it.Category):
			return reject(def, ErrProductFilterMismatch, "category %q excluded", it.Category)
		case len(f.Categories) > 0 && !slices.Contains(f.Categories, it.Category):
			return reject(def, ErrProductFilterMismatch, "category %q not included", it.Category)
		case len(f.Items) > 0 && !slices.Contains(f.Items, it.SKU):
			return reject(def, ErrProductFilterMismatch, "item %q not included", it.SKU)
		}
	case MembershipTier:
		if len(f.Tiers) > 0 && !slices.Contains(f.Tiers, it.TierID) {
			return reject(def, ErrProductFilterMismatch, "tier %q not included", it.TierID)
		}
	case TournamentPass:
		if len(f.Tournaments) > 0 && !slices.Contains(f.Tournaments, it.TournamentID) {
			return reject(def, ErrProductFilterMismatch, "tournament %q not included", it.TournamentID)
		}
	default:
		return errors.Wrapf(ErrInvalidRequest, "unsupported product variant %T", item)
	}
	return nil
}

func matchTeeTime(def *Definition, slot TeeTimeSlot) error {
	f := &def.Filters
	if !slices.Contains(f.Courses, slot.Course) {
		return reject(def, ErrProductFilterMismatch, "course %q not included", slot.Course)
	}
	if slices.Contains(f.ExcludedCourses, slot.Course) {
		return reject(def, ErrProductFilterMismatch, "course %q excluded", slot.Course)
	}

	at := slot.StartsAt.UTC()
	if len(f.Days) > 0 && !slices.Contains(f.Days, at.Weekday()) {
		return reject(def, ErrProductFilterMismatch, "%s not included", at.Weekday())
	}
	minutes := at.Hour()*60 + at.Minute()
	if f.StartTime != nil && minutes < f.StartTime.minutes() {
		return reject(def, ErrProductFilterMismatch, "tee time before %s", f.StartTime)
	}
	if f.EndTime != nil && minutes > f.EndTime.minutes() {
		return reject(def, ErrProductFilterMismatch, "tee time after %s", f.EndTime)
	}
	return nil
}
