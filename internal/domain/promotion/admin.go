package promotion

import (
	"context"
	"crypto/rand"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/fairway-promos/internal/clock"
)

const (
	codePrefix   = "PGT-DISCOUNT-"
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	codeAttempts = 5
)

// Listing is a definition with its status at the time of listing.
type Listing struct {
	Definition
	Status Status
}

// Admin manages the promotion catalog and the golfer-facing wallet.
type Admin struct {
	store   AdminStore
	clock   clock.Clock
	newID   func() string
	newCode func() string
}

// NewAdmin creates an Admin backed by store.
func NewAdmin(store AdminStore, clk clock.Clock) *Admin {
	return &Admin{
		store:   store,
		clock:   clk,
		newID:   uuid.NewString,
		newCode: GenerateCode,
	}
}

// GenerateCode returns a random coupon code such as PGT-DISCOUNT-7Q2K9X.
func GenerateCode() string {
	buf := make([]byte, codeLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return codePrefix + string(buf)
}

// Create stores a new definition. The ID is always assigned here, the
// redemption counter starts at zero and an empty code is generated.
func (a *Admin) Create(ctx context.Context, def Definition) (*Definition, error) {
	def.ID = a.newID()
	def.TotalUsed = 0
	normalize(&def)

	generated := def.Code == ""
	for attempt := 0; ; attempt++ {
		if generated {
			def.Code = a.newCode()
		}
		if err := def.Validate(); err != nil {
			return nil, &InvalidDefinitionError{Err: err}
		}
		err := a.store.CreateDefinition(ctx, &def)
		if err == nil {
			return &def, nil
		}
		if !generated || !errors.Is(err, ErrDuplicateCode) || attempt+1 >= codeAttempts {
			return nil, errors.Wrap(err, "create definition")
		}
	}
}

// Update replaces a stored definition. The redemption counter is kept from
// the stored row; an empty code keeps the stored code. The row is read,
// validated and written in one transaction.
func (a *Admin) Update(ctx context.Context, def Definition) (*Definition, error) {
	normalize(&def)
	err := a.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := a.store.GetDefinition(ctx, def.ID)
		if err != nil {
			return errors.Wrap(err, "get definition")
		}
		def.TotalUsed = existing.TotalUsed
		if def.Code == "" {
			def.Code = existing.Code
		}
		if err := def.Validate(); err != nil {
			return &InvalidDefinitionError{Err: err}
		}
		if err := a.store.UpdateDefinition(ctx, &def); err != nil {
			return errors.Wrap(err, "update definition")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// Get returns a single definition.
func (a *Admin) Get(ctx context.Context, id string) (*Definition, error) {
	def, err := a.store.GetDefinition(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get definition")
	}
	return def, nil
}

// List returns every definition with its current status.
func (a *Admin) List(ctx context.Context) ([]Listing, error) {
	defs, err := a.store.ListDefinitions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list definitions")
	}
	now := a.clock.Now()
	out := make([]Listing, len(defs))
	for i := range defs {
		out[i] = Listing{Definition: defs[i], Status: defs[i].StatusAt(now)}
	}
	return out, nil
}

// Wallet returns the promotions a golfer can currently claim: offered on at
// least one channel, inside the validity window, with global and personal
// capacity left, and targeting the golfer's audience. Product filters are
// not applied since no product is in context.
func (a *Admin) Wallet(ctx context.Context, golferID string) ([]Definition, error) {
	golfer, err := a.store.GetGolfer(ctx, golferID)
	if err != nil {
		if errors.Is(err, ErrInvalidGolfer) {
			return nil, &RejectionError{Reason: ErrInvalidGolfer, Detail: golferID}
		}
		return nil, errors.Wrap(err, "lookup golfer")
	}
	defs, err := a.store.ListDefinitions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list definitions")
	}

	now := a.clock.Now().UTC()
	var out []Definition
	for i := range defs {
		def := &defs[i]
		switch {
		case len(def.Channels) == 0,
			checkWindow(def, now) != nil,
			def.globalLimitReached(),
			def.PerGolferLimit > 0 && golfer.Redemptions.Count(def.ID) >= def.PerGolferLimit,
			checkAudience(def, golfer) != nil:
			continue
		}
		out = append(out, *def)
	}
	return out, nil
}

// normalize applies the admin-form conventions: trimmed code and a zero
// total limit meaning unlimited.
func normalize(def *Definition) {
	def.Code = strings.TrimSpace(def.Code)
	if def.TotalLimit != nil && *def.TotalLimit == 0 {
		def.TotalLimit = nil
	}
}
