package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
)

// EncodeProduct writes p with its variant fields flattened next to a
// "type" discriminator.
func EncodeProduct(e *jx.Encoder, p promotion.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("type")
	e.Str(string(p.Type()))
	e.FieldStart("originalPrice")
	encodeDecimal(e, p.OriginalPrice)
	if p.SalePrice != nil {
		e.FieldStart("salePrice")
		encodeDecimal(e, *p.SalePrice)
	}
	switch item := p.Item.(type) {
	case promotion.TeeTimeSlot:
		e.FieldStart("course")
		e.Str(item.Course)
		e.FieldStart("startsAt")
		encodeTime(e, item.StartsAt)
	case promotion.ProShopItem:
		e.FieldStart("sku")
		e.Str(item.SKU)
		e.FieldStart("category")
		e.Str(item.Category)
	case promotion.MembershipTier:
		e.FieldStart("tierId")
		e.Str(item.TierID)
	case promotion.TournamentPass:
		e.FieldStart("tournamentId")
		e.Str(item.TournamentID)
	}
	e.ObjEnd()
}

type productFields struct {
	id, name, typ         string
	originalPrice         decimal.Decimal
	hasPrice              bool
	salePrice             *decimal.Decimal
	course, sku, category string
	tierID, tournamentID  string
	startsAt              time.Time
}

// DecodeProduct reads a product object and builds the variant named by its
// "type" field.
func DecodeProduct(d *jx.Decoder) (promotion.Product, error) {
	var f productFields
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			f.id, err = d.Str()
		case "name":
			f.name, err = d.Str()
		case "type":
			f.typ, err = d.Str()
		case "originalPrice":
			f.originalPrice, err = decodeDecimal(d)
			f.hasPrice = err == nil
		case "salePrice":
			f.salePrice, err = decodeDecimalPtr(d)
		case "course":
			f.course, err = d.Str()
		case "startsAt":
			f.startsAt, err = decodeTime(d)
		case "sku":
			f.sku, err = d.Str()
		case "category":
			f.category, err = d.Str()
		case "tierId":
			f.tierID, err = d.Str()
		case "tournamentId":
			f.tournamentID, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return promotion.Product{}, errors.Wrap(err, "decode product")
	}
	if !f.hasPrice {
		return promotion.Product{}, errors.New("decode product: originalPrice is required")
	}

	p := promotion.Product{
		ID:            f.id,
		Name:          f.name,
		OriginalPrice: f.originalPrice,
		SalePrice:     f.salePrice,
	}
	switch promotion.ProductType(f.typ) {
	case promotion.ProductTeeTimes:
		if f.startsAt.IsZero() {
			return promotion.Product{}, errors.New("decode product: startsAt is required for tee times")
		}
		p.Item = promotion.TeeTimeSlot{Course: f.course, StartsAt: f.startsAt}
	case promotion.ProductProShop:
		sku := f.sku
		if sku == "" {
			sku = f.id
		}
		p.Item = promotion.ProShopItem{SKU: sku, Category: f.category}
	case promotion.ProductMembershipTiers:
		p.Item = promotion.MembershipTier{TierID: f.tierID}
	case promotion.ProductTournamentPass:
		p.Item = promotion.TournamentPass{TournamentID: f.tournamentID}
	default:
		return promotion.Product{}, errors.Errorf("decode product: unknown type %q", f.typ)
	}
	return p, nil
}
