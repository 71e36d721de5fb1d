package wire

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
)

// EncodeDefinition writes def as a JSON object.
func EncodeDefinition(e *jx.Encoder, def promotion.Definition) {
	e.ObjStart()
	encodeDefinitionFields(e, def)
	e.ObjEnd()
}

// EncodeDefinitions writes defs as a JSON array.
func EncodeDefinitions(e *jx.Encoder, defs []promotion.Definition) {
	e.ArrStart()
	for _, def := range defs {
		EncodeDefinition(e, def)
	}
	e.ArrEnd()
}

// EncodeListings writes definitions with their derived status.
func EncodeListings(e *jx.Encoder, listings []promotion.Listing) {
	e.ArrStart()
	for _, l := range listings {
		e.ObjStart()
		encodeDefinitionFields(e, l.Definition)
		e.FieldStart("status")
		e.Str(string(l.Status))
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeDefinitionFields(e *jx.Encoder, def promotion.Definition) {
	e.FieldStart("id")
	e.Str(def.ID)
	e.FieldStart("code")
	e.Str(def.Code)
	e.FieldStart("name")
	e.Str(def.Name)
	e.FieldStart("headline")
	e.Str(def.Headline)
	e.FieldStart("description")
	e.Str(def.Description)

	e.FieldStart("mechanism")
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(string(def.Mechanism.Kind))
	e.FieldStart("amount")
	encodeDecimal(e, def.Mechanism.Amount)
	if def.Mechanism.Cap != nil {
		e.FieldStart("cap")
		encodeDecimal(e, *def.Mechanism.Cap)
	}
	e.ObjEnd()

	e.FieldStart("productType")
	e.Str(string(def.ProductType))
	e.FieldStart("filters")
	EncodeFilters(e, def.Filters)

	e.FieldStart("validFrom")
	encodeDate(e, def.ValidFrom)
	e.FieldStart("validUntil")
	encodeDate(e, def.ValidUntil)
	if def.ActivationDate != nil {
		e.FieldStart("activationDate")
		encodeDate(e, *def.ActivationDate)
	}

	e.FieldStart("audience")
	e.Str(string(def.Audience))
	if len(def.TargetTiers) > 0 {
		e.FieldStart("targetTiers")
		encodeStrings(e, def.TargetTiers)
	}

	e.FieldStart("totalLimit")
	if def.TotalLimit != nil {
		e.Int(*def.TotalLimit)
	} else {
		e.Null()
	}
	e.FieldStart("totalUsed")
	e.Int(def.TotalUsed)
	e.FieldStart("perGolferLimit")
	e.Int(def.PerGolferLimit)

	e.FieldStart("channels")
	e.ArrStart()
	for _, c := range def.Channels {
		e.Str(string(c))
	}
	e.ArrEnd()

	e.FieldStart("autoApply")
	e.Bool(def.AutoApply)
	e.FieldStart("stackable")
	e.Bool(def.Stackable)
	e.FieldStart("fullPriceOnly")
	e.Bool(def.FullPriceOnly)
	if def.MinPurchase != nil {
		e.FieldStart("minPurchase")
		encodeDecimal(e, *def.MinPurchase)
	}
}

// DecodeDefinition reads a definition object. Unknown keys are skipped, a
// zero totalLimit becomes unlimited and semantic checks are left to
// promotion.Definition.Validate.
func DecodeDefinition(d *jx.Decoder) (promotion.Definition, error) {
	var def promotion.Definition
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			def.ID, err = d.Str()
		case "code":
			def.Code, err = d.Str()
		case "name":
			def.Name, err = d.Str()
		case "headline":
			def.Headline, err = d.Str()
		case "description":
			def.Description, err = d.Str()
		case "mechanism":
			def.Mechanism, err = decodeMechanism(d)
		case "productType":
			var s string
			s, err = d.Str()
			def.ProductType = promotion.ProductType(s)
		case "filters":
			def.Filters, err = DecodeFilters(d)
		case "validFrom":
			def.ValidFrom, err = decodeDate(d)
		case "validUntil":
			def.ValidUntil, err = decodeDate(d)
		case "activationDate":
			def.ActivationDate, err = decodeDatePtr(d)
		case "audience":
			var s string
			s, err = d.Str()
			def.Audience = promotion.Audience(s)
		case "targetTiers":
			def.TargetTiers, err = decodeStrings(d)
		case "totalLimit":
			// 0 and null both mean unlimited.
			def.TotalLimit, err = decodeIntPtr(d)
			if def.TotalLimit != nil && *def.TotalLimit == 0 {
				def.TotalLimit = nil
			}
		case "totalUsed":
			def.TotalUsed, err = d.Int()
		case "perGolferLimit":
			def.PerGolferLimit, err = d.Int()
		case "channels":
			var channels []string
			channels, err = decodeStrings(d)
			def.Channels = make([]promotion.Channel, 0, len(channels))
			for _, c := range channels {
				def.Channels = append(def.Channels, promotion.Channel(c))
			}
		case "autoApply":
			def.AutoApply, err = d.Bool()
		case "stackable":
			def.Stackable, err = d.Bool()
		case "fullPriceOnly":
			def.FullPriceOnly, err = d.Bool()
		case "minPurchase":
			def.MinPurchase, err = decodeDecimalPtr(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return promotion.Definition{}, errors.Wrap(err, "decode definition")
	}
	return def, nil
}

func decodeMechanism(d *jx.Decoder) (promotion.Mechanism, error) {
	var m promotion.Mechanism
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "kind":
			var s string
			s, err = d.Str()
			m.Kind = promotion.MechanismKind(s)
		case "amount":
			m.Amount, err = decodeDecimal(d)
		case "cap":
			m.Cap, err = decodeDecimalPtr(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return m, err
}

// EncodeFilters writes f, omitting empty rules.
func EncodeFilters(e *jx.Encoder, f promotion.Filters) {
	e.ObjStart()
	lists := []struct {
		name   string
		values []string
	}{
		{"courses", f.Courses},
		{"excludedCourses", f.ExcludedCourses},
		{"categories", f.Categories},
		{"excludedCategories", f.ExcludedCategories},
		{"items", f.Items},
		{"excludedItems", f.ExcludedItems},
		{"tiers", f.Tiers},
		{"tournaments", f.Tournaments},
	}
	for _, l := range lists {
		if len(l.values) == 0 {
			continue
		}
		e.FieldStart(l.name)
		encodeStrings(e, l.values)
	}
	if len(f.Days) > 0 {
		e.FieldStart("days")
		e.ArrStart()
		for _, day := range f.Days {
			e.Str(day.String())
		}
		e.ArrEnd()
	}
	if f.StartTime != nil {
		e.FieldStart("startTime")
		e.Str(f.StartTime.String())
	}
	if f.EndTime != nil {
		e.FieldStart("endTime")
		e.Str(f.EndTime.String())
	}
	e.ObjEnd()
}

// DecodeFilters reads a filters object.
func DecodeFilters(d *jx.Decoder) (promotion.Filters, error) {
	var f promotion.Filters
	if d.Next() == jx.Null {
		return f, d.Null()
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "courses":
			f.Courses, err = decodeStrings(d)
		case "excludedCourses":
			f.ExcludedCourses, err = decodeStrings(d)
		case "categories":
			f.Categories, err = decodeStrings(d)
		case "excludedCategories":
			f.ExcludedCategories, err = decodeStrings(d)
		case "items":
			f.Items, err = decodeStrings(d)
		case "excludedItems":
			f.ExcludedItems, err = decodeStrings(d)
		case "tiers":
			f.Tiers, err = decodeStrings(d)
		case "tournaments":
			f.Tournaments, err = decodeStrings(d)
		case "days":
			var names []string
			if names, err = decodeStrings(d); err == nil {
				f.Days, err = parseWeekdays(names)
			}
		case "startTime":
			f.StartTime, err = decodeTimeOfDay(d)
		case "endTime":
			f.EndTime, err = decodeTimeOfDay(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return f, err
}

// MarshalFilters encodes f for storage.
func MarshalFilters(f promotion.Filters) []byte {
	var e jx.Encoder
	EncodeFilters(&e, f)
	return e.Bytes()
}

// UnmarshalFilters decodes filters produced by MarshalFilters.
func UnmarshalFilters(data []byte) (promotion.Filters, error) {
	if len(data) == 0 {
		return promotion.Filters{}, nil
	}
	return DecodeFilters(jx.DecodeBytes(data))
}

func decodeTimeOfDay(d *jx.Decoder) (*promotion.TimeOfDay, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	t, err := promotion.ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var weekdayNames = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		m[strings.ToLower(day.String())] = day
		m[strings.ToLower(day.String()[:3])] = day
	}
	return m
}()

func parseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Errorf("unknown weekday %q", name)
		}
		days = append(days, day)
	}
	return days, nil
}
