package postgres

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
	"github.com/xenking/fairway-promos/internal/wire"
)

const (
	definitionColumns = `id, coupon_code, name, headline, description,
		mechanism_kind, mechanism_amount, mechanism_cap, product_type, filters,
		valid_from, valid_until, activation_date, audience, target_tiers,
		total_limit, total_used, per_golfer_limit, channels,
		auto_apply, stackable, full_price_only, min_purchase`

	listDefinitionsSQL = `SELECT ` + definitionColumns + ` FROM promotions ORDER BY position`

	getDefinitionSQL = `SELECT ` + definitionColumns + ` FROM promotions WHERE id = $1`

	findByCodeSQL = `SELECT ` + definitionColumns + ` FROM promotions WHERE UPPER(coupon_code) = UPPER($1)`

	insertDefinitionSQL = `INSERT INTO promotions (` + definitionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`

	updateDefinitionSQL = `UPDATE promotions SET
		coupon_code = $2, name = $3, headline = $4, description = $5,
		mechanism_kind = $6, mechanism_amount = $7, mechanism_cap = $8, product_type = $9, filters = $10,
		valid_from = $11, valid_until = $12, activation_date = $13, audience = $14, target_tiers = $15,
		total_limit = $16, per_golfer_limit = $17, channels = $18,
		auto_apply = $19, stackable = $20, full_price_only = $21, min_purchase = $22,
		updated_at = NOW()
		WHERE id = $1`

	incrementUsedSQL = `UPDATE promotions SET total_used = total_used + 1, updated_at = NOW() WHERE id = $1`

	codeIndex = "promotions_coupon_code_upper_idx"

	// totalUsedArg is the position of total_used in definitionArgs.
	totalUsedArg = 16
)

var (
	_ promotion.LedgerStore = (*Store)(nil)
	_ promotion.AdminStore  = (*Store)(nil)
)

// Store implements the promotion catalog, golfer records and the
// redemption ledger on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store that uses the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn in a transaction. Nested calls join the outer one.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, fn)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ListDefinitions returns every definition in creation order.
func (s *Store) ListDefinitions(ctx context.Context) ([]promotion.Definition, error) {
	rows, err := s.conn(ctx).Query(ctx, listDefinitionsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list definitions")
	}
	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (promotion.Definition, error) {
		return scanDefinition(row)
	})
	if err != nil {
		return nil, errors.Wrap(err, "list definitions")
	}
	return defs, nil
}

// GetDefinition returns the definition with the given id. Inside a
// transaction the row stays locked until commit.
func (s *Store) GetDefinition(ctx context.Context, id string) (*promotion.Definition, error) {
	query := getDefinitionSQL
	if txFromContext(ctx) != nil {
		query += ` FOR UPDATE`
	}
	def, err := scanDefinition(s.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(promotion.ErrDefinitionNotFound, "id %q", id)
		}
		return nil, errors.Wrapf(err, "get definition %q", id)
	}
	return &def, nil
}

// FindByCode looks up a definition by coupon code, ignoring case. Inside a
// transaction the row stays locked until commit so concurrent redemptions
// of the same code serialize.
func (s *Store) FindByCode(ctx context.Context, code string) (*promotion.Definition, error) {
	query := findByCodeSQL
	if txFromContext(ctx) != nil {
		query += ` FOR UPDATE`
	}
	def, err := scanDefinition(s.conn(ctx).QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrCouponNotFound
		}
		return nil, errors.Wrapf(err, "find definition by code %q", code)
	}
	return &def, nil
}

// CreateDefinition inserts def, keeping its counter as given.
func (s *Store) CreateDefinition(ctx context.Context, def *promotion.Definition) error {
	if _, err := s.conn(ctx).Exec(ctx, insertDefinitionSQL, definitionArgs(def)...); err != nil {
		return definitionWriteError(err, def)
	}
	return nil
}

// UpdateDefinition replaces every admin-editable column of def. The stored
// total_used is never overwritten.
func (s *Store) UpdateDefinition(ctx context.Context, def *promotion.Definition) error {
	args := slices.Delete(definitionArgs(def), totalUsedArg, totalUsedArg+1)
	tag, err := s.conn(ctx).Exec(ctx, updateDefinitionSQL, args...)
	if err != nil {
		return definitionWriteError(err, def)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(promotion.ErrDefinitionNotFound, "id %q", def.ID)
	}
	return nil
}

// ImportDefinitions inserts defs in one batch, skipping any that collide
// with an existing id or code. It returns the number of rows inserted.
func (s *Store) ImportDefinitions(ctx context.Context, defs []promotion.Definition) (int, error) {
	if len(defs) == 0 {
		return 0, nil
	}
	var inserted int
	err := s.WithTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for i := range defs {
			batch.Queue(insertDefinitionSQL+` ON CONFLICT DO NOTHING`, definitionArgs(&defs[i])...)
		}
		results := s.conn(ctx).SendBatch(ctx, batch)
		for i := range defs {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return errors.Wrapf(err, "insert definition %q", defs[i].ID)
			}
			inserted += int(tag.RowsAffected())
		}
		return results.Close()
	})
	if err != nil {
		return 0, errors.Wrap(err, "import definitions")
	}
	return inserted, nil
}

// RecordRedemption increments the definition's total and the golfer's
// personal counter in one transaction.
func (s *Store) RecordRedemption(ctx context.Context, definitionID, golferID string) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		tag, err := s.conn(ctx).Exec(ctx, incrementUsedSQL, definitionID)
		if err != nil {
			return errors.Wrapf(err, "increment total for %q", definitionID)
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrapf(promotion.ErrDefinitionNotFound, "id %q", definitionID)
		}
		if _, err := s.conn(ctx).Exec(ctx, incrementGolferSQL, golferID, definitionID); err != nil {
			if isForeignKeyViolation(err) {
				return promotion.ErrInvalidGolfer
			}
			return errors.Wrapf(err, "increment golfer %q counter", golferID)
		}
		return nil
	})
}

func definitionWriteError(err error, def *promotion.Definition) error {
	switch uniqueViolation(err) {
	case "":
		return errors.Wrapf(err, "write definition %q", def.ID)
	case codeIndex:
		return errors.Wrapf(promotion.ErrDuplicateCode, "code %q", def.Code)
	default:
		return errors.Errorf("definition %q already exists", def.ID)
	}
}

func definitionArgs(def *promotion.Definition) []any {
	channels := make([]string, len(def.Channels))
	for i, c := range def.Channels {
		channels[i] = string(c)
	}
	tiers := def.TargetTiers
	if tiers == nil {
		tiers = []string{}
	}
	return []any{
		def.ID, def.Code, def.Name, def.Headline, def.Description,
		string(def.Mechanism.Kind), def.Mechanism.Amount, def.Mechanism.Cap,
		string(def.ProductType), wire.MarshalFilters(def.Filters),
		dateOnly(def.ValidFrom), dateOnly(def.ValidUntil), dateOnlyPtr(def.ActivationDate),
		string(def.Audience), tiers,
		def.TotalLimit, def.TotalUsed, def.PerGolferLimit, channels,
		def.AutoApply, def.Stackable, def.FullPriceOnly, def.MinPurchase,
	}
}

func scanDefinition(row pgx.Row) (promotion.Definition, error) {
	var (
		def          promotion.Definition
		kind         string
		productType  string
		filters      []byte
		audience     string
		channels     []string
		totalLimit   *int32
		totalUsed    int32
		perGolferMax int32
	)
	err := row.Scan(
		&def.ID, &def.Code, &def.Name, &def.Headline, &def.Description,
		&kind, &def.Mechanism.Amount, &def.Mechanism.Cap, &productType, &filters,
		&def.ValidFrom, &def.ValidUntil, &def.ActivationDate, &audience, &def.TargetTiers,
		&totalLimit, &totalUsed, &perGolferMax, &channels,
		&def.AutoApply, &def.Stackable, &def.FullPriceOnly, &def.MinPurchase,
	)
	if err != nil {
		return promotion.Definition{}, err
	}

	def.Mechanism.Kind = promotion.MechanismKind(kind)
	def.ProductType = promotion.ProductType(productType)
	def.Audience = promotion.Audience(audience)
	if def.Filters, err = wire.UnmarshalFilters(filters); err != nil {
		return promotion.Definition{}, errors.Wrapf(err, "decode filters of %q", def.ID)
	}
	if totalLimit != nil {
		limit := int(*totalLimit)
		def.TotalLimit = &limit
	}
	def.TotalUsed = int(totalUsed)
	def.PerGolferLimit = int(perGolferMax)
	def.Channels = make([]promotion.Channel, len(channels))
	for i, c := range channels {
		def.Channels[i] = promotion.Channel(c)
	}
	if len(def.TargetTiers) == 0 {
		def.TargetTiers = nil
	}
	return def, nil
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := dateOnly(*t)
	return &d
}
