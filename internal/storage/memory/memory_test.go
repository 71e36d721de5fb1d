package memory

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
)

func testDefinition(id, code string) promotion.Definition {
	return promotion.Definition{
		ID:          id,
		Code:        code,
		Name:        "Test " + id,
		Mechanism:   promotion.FlatAmount(decimal.NewFromInt(10)),
		ProductType: promotion.ProductProShop,
		ValidFrom:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:  time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Audience:    promotion.AudienceAll,
		Channels:    []promotion.Channel{promotion.ChannelOnline},
	}
}

func seeded(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := New()
	d1 := testDefinition("d1", "SAVE10")
	d2 := testDefinition("d2", "TWILIGHT49")
	require.NoError(t, s.CreateDefinition(ctx, &d1))
	require.NoError(t, s.CreateDefinition(ctx, &d2))
	require.NoError(t, s.PutGolfer(ctx, promotion.Golfer{ID: "g1", Name: "John Doe"}))
	return s
}

func TestStore_FindByCodeIgnoresCase(t *testing.T) {
	s := seeded(t)

	def, err := s.FindByCode(context.Background(), "twilight49")
	require.NoError(t, err)
	assert.Equal(t, "d2", def.ID)

	_, err = s.FindByCode(context.Background(), "NOPE")
	require.ErrorIs(t, err, promotion.ErrCouponNotFound)
}

func TestStore_CreateRejectsDuplicateCode(t *testing.T) {
	s := seeded(t)

	dup := testDefinition("d3", "save10")
	err := s.CreateDefinition(context.Background(), &dup)
	require.ErrorIs(t, err, promotion.ErrDuplicateCode)
}

func TestStore_UpdateKeepsCounter(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	require.NoError(t, s.RecordRedemption(ctx, "d1", "g1"))

	upd := testDefinition("d1", "SAVE10")
	upd.Name = "Renamed"
	upd.TotalUsed = 42
	require.NoError(t, s.UpdateDefinition(ctx, &upd))

	got, err := s.GetDefinition(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 1, got.TotalUsed)

	other := testDefinition("d1", "TWILIGHT49")
	require.ErrorIs(t, s.UpdateDefinition(ctx, &other), promotion.ErrDuplicateCode)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	g, err := s.GetGolfer(ctx, "g1")
	require.NoError(t, err)
	g.Redemptions = promotion.Redemptions{"d1": 99}

	again, err := s.GetGolfer(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Redemptions.Count("d1"))

	defs, err := s.ListDefinitions(ctx)
	require.NoError(t, err)
	defs[0].Channels[0] = promotion.ChannelPOS

	def, err := s.GetDefinition(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, promotion.ChannelOnline, def.Channels[0])
}

func TestStore_RecordRedemption(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	require.NoError(t, s.RecordRedemption(ctx, "d1", "g1"))
	require.NoError(t, s.RecordRedemption(ctx, "d1", "g1"))

	def, err := s.GetDefinition(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, def.TotalUsed)

	g, err := s.GetGolfer(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Redemptions.Count("d1"))

	require.ErrorIs(t, s.RecordRedemption(ctx, "d1", "ghost"), promotion.ErrInvalidGolfer)
	require.ErrorIs(t, s.RecordRedemption(ctx, "ghost", "g1"), promotion.ErrDefinitionNotFound)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.RecordRedemption(ctx, "d1", "g1"))
		d3 := testDefinition("d3", "NEWCODE")
		require.NoError(t, s.CreateDefinition(ctx, &d3))
		require.NoError(t, s.PutGolfer(ctx, promotion.Golfer{ID: "g2"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	def, err := s.GetDefinition(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 0, def.TotalUsed)

	g, err := s.GetGolfer(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, g.Redemptions.Count("d1"))

	_, err = s.GetDefinition(ctx, "d3")
	require.ErrorIs(t, err, promotion.ErrDefinitionNotFound)
	_, err = s.GetGolfer(ctx, "g2")
	require.ErrorIs(t, err, promotion.ErrInvalidGolfer)
}

func TestStore_WithTxNested(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	err := s.WithTx(ctx, func(ctx context.Context) error {
		return s.WithTx(ctx, func(ctx context.Context) error {
			_, err := s.FindByCode(ctx, "SAVE10")
			if err != nil {
				return err
			}
			return s.RecordRedemption(ctx, "d1", "g1")
		})
	})
	require.NoError(t, err)

	def, err := s.GetDefinition(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, def.TotalUsed)
}

func TestStore_ImportDefinitionsSkipsConflicts(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	n, err := s.ImportDefinitions(ctx, []promotion.Definition{
		testDefinition("d1", "OTHER"),
		testDefinition("d3", "save10"),
		testDefinition("d4", "FRESH"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	defs, err := s.ListDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "d4", defs[2].ID)
}
