package promotion_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/fairway-promos/internal/clock"
	"github.com/xenking/fairway-promos/internal/domain/promotion"
	"github.com/xenking/fairway-promos/internal/storage/memory"
)

var redeemAt = time.Date(2025, 7, 23, 14, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func apparelCoupon() promotion.Definition {
	return promotion.Definition{
		ID:             "promo-apparel",
		Code:           "APPAREL15",
		Name:           "Apparel $15 off",
		Mechanism:      promotion.FlatAmount(decimal.NewFromInt(15)),
		ProductType:    promotion.ProductProShop,
		Filters:        promotion.Filters{Categories: []string{"Apparel"}},
		ValidFrom:      time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:     time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
		Audience:       promotion.AudienceAll,
		PerGolferLimit: 0,
		Channels:       []promotion.Channel{promotion.ChannelOnline, promotion.ChannelPOS},
	}
}

var polo = promotion.Product{
	ID:            "polo-01",
	Name:          "Titleist Performance Polo",
	OriginalPrice: decimal.NewFromInt(85),
	Item:          promotion.ProShopItem{SKU: "polo-01", Category: "Apparel"},
}

type fixture struct {
	store  *memory.Store
	ledger *promotion.Ledger
}

func newFixture(t *testing.T, def promotion.Definition, golfers ...promotion.Golfer) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateDefinition(ctx, &def))
	for _, g := range golfers {
		require.NoError(t, store.PutGolfer(ctx, g))
	}
	ledger, err := promotion.NewLedger(store, clock.NewFixed(redeemAt))
	require.NoError(t, err)
	return &fixture{store: store, ledger: ledger}
}

func (f *fixture) redeem(golferID string) (*promotion.Redemption, error) {
	return f.ledger.Redeem(context.Background(), promotion.RedeemRequest{
		Code:     "apparel15",
		Channel:  promotion.ChannelPOS,
		GolferID: golferID,
		Product:  polo,
	})
}

func (f *fixture) counters(t *testing.T, golferID string) (total, personal int) {
	t.Helper()
	def, err := f.store.GetDefinition(context.Background(), "promo-apparel")
	require.NoError(t, err)
	g, err := f.store.GetGolfer(context.Background(), golferID)
	require.NoError(t, err)
	return def.TotalUsed, g.Redemptions.Count("promo-apparel")
}

func TestLedger_RedeemSuccess(t *testing.T) {
	def := apparelCoupon()
	def.AutoApply = false
	f := newFixture(t, def, promotion.Golfer{ID: "golfer-01"})

	got, err := f.redeem("golfer-01")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(70).Equal(got.FinalPrice), "got %s", got.FinalPrice)
	assert.True(t, decimal.NewFromInt(85).Equal(got.Baseline))
	assert.Equal(t, "promo-apparel", got.Definition.ID)
	assert.Equal(t, 1, got.Definition.TotalUsed)
	assert.Equal(t, 1, got.GolferCount)
	assert.Equal(t, redeemAt, got.RedeemedAt)

	total, personal := f.counters(t, "golfer-01")
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, personal)
}

func TestLedger_RedeemRejections(t *testing.T) {
	tests := []struct {
		name    string
		req     promotion.RedeemRequest
		wantErr error
	}{
		{
			name:    "unknown code",
			req:     promotion.RedeemRequest{Code: "NOPE", Channel: promotion.ChannelPOS, GolferID: "golfer-01", Product: polo},
			wantErr: promotion.ErrCouponNotFound,
		},
		{
			name:    "empty code",
			req:     promotion.RedeemRequest{Code: "  ", Channel: promotion.ChannelPOS, GolferID: "golfer-01", Product: polo},
			wantErr: promotion.ErrCouponNotFound,
		},
		{
			name:    "unknown code is reported before unknown golfer",
			req:     promotion.RedeemRequest{Code: "NOPE", Channel: promotion.ChannelPOS, GolferID: "ghost", Product: polo},
			wantErr: promotion.ErrCouponNotFound,
		},
		{
			name:    "unknown golfer",
			req:     promotion.RedeemRequest{Code: "APPAREL15", Channel: promotion.ChannelPOS, GolferID: "ghost", Product: polo},
			wantErr: promotion.ErrInvalidGolfer,
		},
		{
			name: "filter mismatch",
			req: promotion.RedeemRequest{Code: "APPAREL15", Channel: promotion.ChannelPOS, GolferID: "golfer-01", Product: promotion.Product{
				ID: "glove-01", OriginalPrice: decimal.NewFromInt(32), Item: promotion.ProShopItem{SKU: "glove-01", Category: "Accessories"},
			}},
			wantErr: promotion.ErrProductFilterMismatch,
		},
		{
			name:    "unknown channel",
			req:     promotion.RedeemRequest{Code: "APPAREL15", Channel: "Kiosk", GolferID: "golfer-01", Product: polo},
			wantErr: promotion.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, apparelCoupon(), promotion.Golfer{ID: "golfer-01"})

			_, err := f.ledger.Redeem(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)

			total, personal := f.counters(t, "golfer-01")
			assert.Zero(t, total)
			assert.Zero(t, personal)
		})
	}
}

func TestLedger_MonotonicUntilGlobalLimit(t *testing.T) {
	for _, n := range []int{0, 1, 3, 10} {
		def := apparelCoupon()
		def.TotalLimit = intp(n)
		f := newFixture(t, def, promotion.Golfer{ID: "golfer-01"})

		for i := 1; i <= n; i++ {
			got, err := f.redeem("golfer-01")
			require.NoError(t, err, "limit %d attempt %d", n, i)
			assert.Equal(t, i, got.Definition.TotalUsed)
		}

		_, err := f.redeem("golfer-01")
		require.ErrorIs(t, err, promotion.ErrGlobalLimitReached, "limit %d", n)

		total, _ := f.counters(t, "golfer-01")
		assert.Equal(t, n, total)
	}
}

func TestLedger_PerGolferLimit(t *testing.T) {
	def := apparelCoupon()
	def.PerGolferLimit = 5
	def.TotalLimit = intp(100)
	f := newFixture(t, def,
		promotion.Golfer{ID: "golfer-01", Redemptions: promotion.Redemptions{"promo-apparel": 5}},
		promotion.Golfer{ID: "golfer-02"},
	)

	_, err := f.redeem("golfer-01")
	require.ErrorIs(t, err, promotion.ErrPerGolferLimitReached)

	// Global capacity is still there for others.
	_, err = f.redeem("golfer-02")
	require.NoError(t, err)
}

func TestLedger_PerGolferZeroIsUnlimited(t *testing.T) {
	def := apparelCoupon()
	def.PerGolferLimit = 0
	f := newFixture(t, def, promotion.Golfer{ID: "golfer-01", Redemptions: promotion.Redemptions{"promo-apparel": 5}})

	got, err := f.redeem("golfer-01")
	require.NoError(t, err)
	assert.Equal(t, 6, got.GolferCount)
}

func TestLedger_ConcurrentLastRedemption(t *testing.T) {
	const attempts = 16

	def := apparelCoupon()
	def.TotalLimit = intp(1)
	golfers := make([]promotion.Golfer, attempts)
	for i := range golfers {
		golfers[i] = promotion.Golfer{ID: "golfer-" + string(rune('a'+i))}
	}
	f := newFixture(t, def, golfers...)

	var ok, limited atomic.Int32
	g, _ := errgroup.WithContext(context.Background())
	for i := range attempts {
		g.Go(func() error {
			_, err := f.redeem(golfers[i].ID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, promotion.ErrGlobalLimitReached):
				limited.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(attempts-1), limited.Load())

	stored, err := f.store.GetDefinition(context.Background(), "promo-apparel")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalUsed)
}

func TestLedger_ManualCodeSkipsAutoApply(t *testing.T) {
	def := apparelCoupon()
	def.AutoApply = false
	f := newFixture(t, def, promotion.Golfer{ID: "golfer-01"})

	catalog, err := f.store.ListDefinitions(context.Background())
	require.NoError(t, err)
	q, err := promotion.ResolveBestPrice(catalog, promotion.Subject{Product: polo, Channel: promotion.ChannelPOS}, redeemAt)
	require.NoError(t, err)
	assert.Nil(t, q.Applied)

	_, err = f.redeem("golfer-01")
	require.NoError(t, err)
}

func TestLedger_ExpiryFollowsClock(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	def := apparelCoupon()
	require.NoError(t, store.CreateDefinition(ctx, &def))
	require.NoError(t, store.PutGolfer(ctx, promotion.Golfer{ID: "golfer-01"}))

	sim := clock.NewSimulation(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	ledger, err := promotion.NewLedger(store, sim)
	require.NoError(t, err)
	req := promotion.RedeemRequest{Code: "APPAREL15", Channel: promotion.ChannelOnline, GolferID: "golfer-01", Product: polo}

	_, err = ledger.Redeem(ctx, req)
	require.ErrorIs(t, err, promotion.ErrExpired)

	sim.Set(time.Date(2025, 7, 31, 23, 0, 0, 0, time.UTC))
	_, err = ledger.Redeem(ctx, req)
	require.NoError(t, err)
}
