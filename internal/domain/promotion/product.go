package promotion

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// Item is the variant-specific part of a Product. The set of variants is
// closed: TeeTimeSlot, ProShopItem, MembershipTier and TournamentPass.
type Item interface {
	ProductType() ProductType
	item()
}

// TeeTimeSlot is a bookable round at a course.
type TeeTimeSlot struct {
	Course   string
	StartsAt time.Time
}

// ProShopItem is merchandise sold in the pro shop.
type ProShopItem struct {
	SKU      string
	Category string
}

// MembershipTier is a purchasable membership.
type MembershipTier struct {
	TierID string
}

// TournamentPass is an entry to a tournament.
type TournamentPass struct {
	TournamentID string
}

func (TeeTimeSlot) ProductType() ProductType    { return ProductTeeTimes }
func (ProShopItem) ProductType() ProductType    { return ProductProShop }
func (MembershipTier) ProductType() ProductType { return ProductMembershipTiers }
func (TournamentPass) ProductType() ProductType { return ProductTournamentPass }

func (TeeTimeSlot) item()    {}
func (ProShopItem) item()    {}
func (MembershipTier) item() {}
func (TournamentPass) item() {}

// Product is something a golfer can buy.
type Product struct {
	ID            string
	Name          string
	OriginalPrice decimal.Decimal
	SalePrice     *decimal.Decimal
	Item          Item
}

// OnSale reports whether the product carries an active sale price.
func (p Product) OnSale() bool {
	return p.SalePrice != nil && p.SalePrice.IsPositive()
}

// Baseline is the price before any promotion: the sale price when active,
// the original price otherwise.
func (p Product) Baseline() decimal.Decimal {
	if p.OnSale() {
		return *p.SalePrice
	}
	return p.OriginalPrice
}

// Type returns the product type of the item, or "" if the item is unset.
func (p Product) Type() ProductType {
	if p.Item == nil {
		return ""
	}
	return p.Item.ProductType()
}

// Redemptions counts successful redemptions per definition ID.
type Redemptions map[string]int

// Count returns the number of redemptions for id; missing entries count as zero.
func (r Redemptions) Count(id string) int {
	return r[id]
}

// Golfer is a customer whose history gates per-golfer limits and audiences.
type Golfer struct {
	ID                   string
	Name                 string
	Email                string
	MembershipTier       string
	IsNew                bool
	Redemptions          Redemptions
	MembershipValidUntil *time.Time
}

// Clone returns a deep copy of g.
func (g Golfer) Clone() Golfer {
	c := g
	c.Redemptions = maps.Clone(g.Redemptions)
	if g.MembershipValidUntil != nil {
		v := *g.MembershipValidUntil
		c.MembershipValidUntil = &v
	}
	return c
}
