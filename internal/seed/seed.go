// Package seed holds the demo catalog, golfers and products used by the
// in-memory server and the seed-db command.
package seed

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
)

// DemoTime is a Wednesday afternoon inside every demo validity window.
var DemoTime = time.Date(2025, 7, 23, 14, 0, 0, 0, time.UTC)

// Store is what Load writes to.
type Store interface {
	PutGolfer(ctx context.Context, g promotion.Golfer) error
	ImportDefinitions(ctx context.Context, defs []promotion.Definition) (int, error)
}

// Load writes the demo definitions and golfers to s. Definitions that
// already exist are left untouched, so Load can be re-run. Definitions go
// first since golfer redemption counts reference them.
func Load(ctx context.Context, s Store) (int, error) {
	defs := Definitions()
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return 0, errors.Wrapf(err, "definition %s", defs[i].ID)
		}
	}
	n, err := s.ImportDefinitions(ctx, defs)
	if err != nil {
		return 0, errors.Wrap(err, "import definitions")
	}
	for _, g := range Golfers() {
		if err := s.PutGolfer(ctx, g); err != nil {
			return 0, errors.Wrapf(err, "put golfer %s", g.ID)
		}
	}
	return n, nil
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func moneyPtr(v int64) *decimal.Decimal {
	d := money(v)
	return &d
}

func limit(v int) *int {
	return &v
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	weekdays     = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	bothChannels = []promotion.Channel{promotion.ChannelOnline, promotion.ChannelPOS}
)

// Definitions returns the demo catalog in catalog order.
func Definitions() []promotion.Definition {
	return []promotion.Definition{
		{
			ID:          "promo-twilight",
			Code:        "TWILIGHT49",
			Name:        "Weekday Golf Special",
			Headline:    "Play a Round for a Flat $49 on Weekdays!",
			Description: "Afternoon tee times at Westchase and Fox Hollow for $49.",
			Mechanism:   promotion.FixedPrice(money(49)),
			ProductType: promotion.ProductTeeTimes,
			Filters: promotion.Filters{
				Courses:   []string{"Westchase GC", "Fox Hollow GC"},
				Days:      weekdays,
				StartTime: &promotion.TimeOfDay{Hour: 12},
				EndTime:   &promotion.TimeOfDay{Hour: 18},
			},
			ValidFrom:      day(2025, 6, 1),
			ValidUntil:     day(2025, 8, 31),
			Audience:       promotion.AudienceAll,
			TotalLimit:     limit(100),
			TotalUsed:      25,
			PerGolferLimit: 3,
			Channels:       bothChannels,
			AutoApply:      true,
		},
		{
			ID:          "promo-apparel",
			Code:        "APPARELDEAL",
			Name:        "Summer Apparel Event",
			Headline:    "20% off full-price apparel",
			Mechanism:   promotion.Percentage(money(20), moneyPtr(25)),
			ProductType: promotion.ProductProShop,
			Filters: promotion.Filters{
				Categories:    []string{"Apparel"},
				ExcludedItems: []string{"gift-card-100"},
			},
			ValidFrom:     day(2025, 7, 1),
			ValidUntil:    day(2025, 7, 31),
			Audience:      promotion.AudienceAll,
			Channels:      bothChannels,
			AutoApply:     true,
			FullPriceOnly: true,
		},
		{
			ID:          "promo-provisional",
			Code:        "MEMBERPROV1",
			Name:        "Provisional Membership Offer",
			Headline:    "Try a provisional membership for $199",
			Mechanism:   promotion.FixedPrice(money(199)),
			ProductType: promotion.ProductMembershipTiers,
			Filters: promotion.Filters{
				Tiers: []string{"provisional"},
			},
			ValidFrom:      day(2025, 5, 1),
			ValidUntil:     day(2025, 12, 31),
			Audience:       promotion.AudienceNewCustomers,
			PerGolferLimit: 1,
			Channels:       []promotion.Channel{promotion.ChannelOnline},
		},
		{
			ID:          "promo-summer-upgrade",
			Code:        "SUMMER500",
			Name:        "Summer Gold Upgrade",
			Headline:    "$500 off a Gold membership for Silver members",
			Mechanism:   promotion.FlatAmount(money(500)),
			ProductType: promotion.ProductMembershipTiers,
			Filters: promotion.Filters{
				Tiers: []string{"gold"},
			},
			ValidFrom:      day(2025, 6, 21),
			ValidUntil:     day(2025, 9, 22),
			Audience:       promotion.AudienceSpecificTiers,
			TargetTiers:    []string{"silver"},
			TotalLimit:     limit(50),
			PerGolferLimit: 1,
			Channels:       bothChannels,
			MinPurchase:    moneyPtr(1000),
		},
		{
			ID:          "promo-fl-classic",
			Code:        "FLCLASSIC200",
			Name:        "Florida Classic Early Entry",
			Headline:    "$200 off Florida Classic passes",
			Mechanism:   promotion.FlatAmount(money(200)),
			ProductType: promotion.ProductTournamentPass,
			Filters: promotion.Filters{
				Tournaments: []string{"fl-classic-2025"},
			},
			ValidFrom:      day(2025, 7, 1),
			ValidUntil:     day(2025, 8, 15),
			Audience:       promotion.AudienceAll,
			TotalLimit:     limit(20),
			PerGolferLimit: 1,
			Channels:       bothChannels,
		},
		{
			ID:          "promo-shop-10",
			Code:        "PGT-DISCOUNT-8Z4K2M",
			Name:        "Pro Shop 10%",
			Headline:    "10% off in the pro shop",
			Mechanism:   promotion.Percentage(money(10), nil),
			ProductType: promotion.ProductProShop,
			Filters: promotion.Filters{
				ExcludedCategories: []string{"Clubs"},
			},
			ValidFrom:   day(2025, 1, 1),
			ValidUntil:  day(2025, 12, 31),
			Audience:    promotion.AudienceAll,
			Channels:    []promotion.Channel{promotion.ChannelOnline},
			MinPurchase: moneyPtr(50),
		},
		{
			ID:          "promo-member-tee",
			Code:        "PGT-DISCOUNT-Q7R1T5",
			Name:        "Member Tee Time Credit",
			Headline:    "$15 off any tee time for Gold and Platinum members",
			Mechanism:   promotion.FlatAmount(money(15)),
			ProductType: promotion.ProductTeeTimes,
			Filters: promotion.Filters{
				Courses: []string{"Westchase GC", "Fox Hollow GC", "Bayou Links"},
			},
			ValidFrom:      day(2025, 1, 1),
			ValidUntil:     day(2025, 12, 31),
			Audience:       promotion.AudienceSpecificTiers,
			TargetTiers:    []string{"gold", "platinum"},
			PerGolferLimit: 10,
			Channels:       []promotion.Channel{promotion.ChannelPOS},
		},
	}
}

// Golfers returns the demo golfers.
func Golfers() []promotion.Golfer {
	goldUntil := day(2026, 3, 31)
	return []promotion.Golfer{
		{
			ID:                   "golfer-01",
			Name:                 "John Doe",
			Email:                "john.doe@example.com",
			MembershipTier:       "gold",
			Redemptions:          promotion.Redemptions{"promo-twilight": 1},
			MembershipValidUntil: &goldUntil,
		},
		{
			ID:    "golfer-02",
			Name:  "Jane Smith",
			Email: "jane.smith@example.com",
			IsNew: true,
		},
		{
			ID:             "golfer-03",
			Name:           "Sam Carter",
			Email:          "sam.carter@example.com",
			MembershipTier: "silver",
			Redemptions:    promotion.Redemptions{"promo-twilight": 3},
		},
	}
}

// Products returns a demo product of every type, keyed by product id.
func Products() map[string]promotion.Product {
	products := []promotion.Product{
		{
			ID:            "tt-westchase-wed",
			Name:          "Westchase GC, Wednesday 15:30",
			OriginalPrice: money(79),
			Item:          promotion.TeeTimeSlot{Course: "Westchase GC", StartsAt: time.Date(2025, 7, 23, 15, 30, 0, 0, time.UTC)},
		},
		{
			ID:            "tt-foxhollow-sat",
			Name:          "Fox Hollow GC, Saturday 09:00",
			OriginalPrice: money(95),
			Item:          promotion.TeeTimeSlot{Course: "Fox Hollow GC", StartsAt: time.Date(2025, 7, 26, 9, 0, 0, 0, time.UTC)},
		},
		{
			ID:            "polo-01",
			Name:          "Titleist Performance Polo",
			OriginalPrice: money(85),
			Item:          promotion.ProShopItem{SKU: "polo-01", Category: "Apparel"},
		},
		{
			ID:            "rain-jacket",
			Name:          "FootJoy HydroLite Rain Jacket",
			OriginalPrice: money(140),
			SalePrice:     moneyPtr(99),
			Item:          promotion.ProShopItem{SKU: "rain-jacket", Category: "Apparel"},
		},
		{
			ID:            "driver-01",
			Name:          "TaylorMade Qi10 Driver",
			OriginalPrice: money(549),
			Item:          promotion.ProShopItem{SKU: "driver-01", Category: "Clubs"},
		},
		{
			ID:            "membership-provisional",
			Name:          "Provisional Membership",
			OriginalPrice: money(399),
			Item:          promotion.MembershipTier{TierID: "provisional"},
		},
		{
			ID:            "membership-gold",
			Name:          "Gold Membership",
			OriginalPrice: money(1800),
			Item:          promotion.MembershipTier{TierID: "gold"},
		},
		{
			ID:            "pass-fl-classic",
			Name:          "Florida Classic 2025 Weekly Pass",
			OriginalPrice: money(450),
			Item:          promotion.TournamentPass{TournamentID: "fl-classic-2025"},
		},
	}
	out := make(map[string]promotion.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out
}
