package promotion

import "context"

// Catalog lists promotion definitions in catalog order.
type Catalog interface {
	ListDefinitions(ctx context.Context) ([]Definition, error)
}

// Golfers resolves golfer records. GetGolfer returns ErrInvalidGolfer when
// the id is unknown. Inside a transaction the row is locked until commit.
type Golfers interface {
	GetGolfer(ctx context.Context, id string) (*Golfer, error)
}

// LedgerStore is the storage the Ledger needs. Calls made with the context
// passed to the WithTx callback belong to one transaction, and concurrent
// transactions touching the same definition or golfer are serialized.
type LedgerStore interface {
	Golfers

	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// FindByCode looks up a definition by coupon code, ignoring case.
	// Returns ErrCouponNotFound when no definition matches.
	FindByCode(ctx context.Context, code string) (*Definition, error)
	// RecordRedemption increments the definition's TotalUsed and the
	// golfer's count for it by one.
	RecordRedemption(ctx context.Context, definitionID, golferID string) error
}

// AdminStore is the storage behind catalog administration. WithTx has the
// same contract as in LedgerStore.
type AdminStore interface {
	Catalog
	Golfers

	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// GetDefinition returns ErrDefinitionNotFound when the id is unknown.
	// Inside a transaction the row is locked until commit.
	GetDefinition(ctx context.Context, id string) (*Definition, error)
	// CreateDefinition returns ErrDuplicateCode when the code is taken.
	CreateDefinition(ctx context.Context, def *Definition) error
	// UpdateDefinition replaces everything except the redemption counter.
	UpdateDefinition(ctx context.Context, def *Definition) error
}
