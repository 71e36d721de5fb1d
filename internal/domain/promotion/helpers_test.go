package promotion

import (
	"time"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func intp(v int) *int {
	return &v
}

func tod(h, m int) *TimeOfDay {
	return &TimeOfDay{Hour: h, Minute: m}
}

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// twilight is a fixed-price weekday tee-time promotion at Westchase GC.
func twilight() Definition {
	return Definition{
		ID:          "promo-01",
		Code:        "TWILIGHT49",
		Name:        "Weekday Golf Special",
		Headline:    "Play a Round for a Flat $49 on Weekdays!",
		Mechanism:   FixedPrice(d("49")),
		ProductType: ProductTeeTimes,
		Filters: Filters{
			Courses:   []string{"Westchase GC", "Fox Hollow GC"},
			Days:      []time.Weekday{time.Wednesday},
			StartTime: tod(8, 0),
			EndTime:   tod(18, 0),
		},
		ValidFrom:      date(2025, 6, 1),
		ValidUntil:     date(2025, 8, 31),
		Audience:       AudienceAll,
		TotalLimit:     intp(100),
		TotalUsed:      25,
		PerGolferLimit: 3,
		Channels:       []Channel{ChannelOnline, ChannelPOS},
		AutoApply:      true,
	}
}

// wednesday14 is a Wednesday, 2025-07-23 at 14:00 UTC.
var wednesday14 = time.Date(2025, 7, 23, 14, 0, 0, 0, time.UTC)

func teeTime(course string, at time.Time, price string) Product {
	return Product{
		ID:            "tt1",
		Name:          course,
		OriginalPrice: d(price),
		Item:          TeeTimeSlot{Course: course, StartsAt: at},
	}
}

func proShop(sku, category, price string, sale *decimal.Decimal) Product {
	return Product{
		ID:            sku,
		Name:          sku,
		OriginalPrice: d(price),
		SalePrice:     sale,
		Item:          ProShopItem{SKU: sku, Category: category},
	}
}
