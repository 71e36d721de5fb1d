package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
)

const (
	getGolferSQL = `SELECT id, name, email, membership_tier, is_new, membership_valid_until
		FROM golfers WHERE id = $1`

	listGolferRedemptionsSQL = `SELECT promotion_id, count FROM golfer_redemptions WHERE golfer_id = $1`

	upsertGolferSQL = `INSERT INTO golfers (id, name, email, membership_tier, is_new, membership_valid_until)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			membership_tier = EXCLUDED.membership_tier,
			is_new = EXCLUDED.is_new,
			membership_valid_until = EXCLUDED.membership_valid_until`

	deleteGolferRedemptionsSQL = `DELETE FROM golfer_redemptions WHERE golfer_id = $1`

	insertGolferRedemptionSQL = `INSERT INTO golfer_redemptions (golfer_id, promotion_id, count) VALUES ($1, $2, $3)`

	incrementGolferSQL = `INSERT INTO golfer_redemptions (golfer_id, promotion_id, count) VALUES ($1, $2, 1)
		ON CONFLICT (golfer_id, promotion_id) DO UPDATE SET count = golfer_redemptions.count + 1`
)

// GetGolfer returns the golfer with their redemption counts, or
// promotion.ErrInvalidGolfer. Inside a transaction the golfer row is locked.
func (s *Store) GetGolfer(ctx context.Context, id string) (*promotion.Golfer, error) {
	query := getGolferSQL
	if txFromContext(ctx) != nil {
		query += ` FOR UPDATE`
	}

	var g promotion.Golfer
	err := s.conn(ctx).QueryRow(ctx, query, id).
		Scan(&g.ID, &g.Name, &g.Email, &g.MembershipTier, &g.IsNew, &g.MembershipValidUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrInvalidGolfer
		}
		return nil, errors.Wrapf(err, "get golfer %q", id)
	}

	rows, err := s.conn(ctx).Query(ctx, listGolferRedemptionsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list redemptions of %q", id)
	}
	defer rows.Close()

	g.Redemptions = make(promotion.Redemptions)
	for rows.Next() {
		var (
			promotionID string
			count       int32
		)
		if err := rows.Scan(&promotionID, &count); err != nil {
			return nil, errors.Wrapf(err, "scan redemptions of %q", id)
		}
		g.Redemptions[promotionID] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "list redemptions of %q", id)
	}
	return &g, nil
}

// PutGolfer inserts or replaces a golfer together with their redemption
// counts.
func (s *Store) PutGolfer(ctx context.Context, g promotion.Golfer) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		c := s.conn(ctx)
		if _, err := c.Exec(ctx, upsertGolferSQL,
			g.ID, g.Name, g.Email, g.MembershipTier, g.IsNew, g.MembershipValidUntil,
		); err != nil {
			return errors.Wrapf(err, "upsert golfer %q", g.ID)
		}
		if _, err := c.Exec(ctx, deleteGolferRedemptionsSQL, g.ID); err != nil {
			return errors.Wrapf(err, "reset redemptions of %q", g.ID)
		}
		for promotionID, count := range g.Redemptions {
			if count <= 0 {
				continue
			}
			if _, err := c.Exec(ctx, insertGolferRedemptionSQL, g.ID, promotionID, count); err != nil {
				if isForeignKeyViolation(err) {
					return errors.Wrapf(promotion.ErrDefinitionNotFound, "id %q", promotionID)
				}
				return errors.Wrapf(err, "insert redemptions of %q", g.ID)
			}
		}
		return nil
	})
}
