package usecase

import (
	"testing"
	"time"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsEarned(t *testing.T) {
	tests := []struct {
		name      string
		price     int64
		pointRate int64
		tax       domain.TaxClass
		want      int64
	}{
		{"reduced 1000 x1", 1000, 1, domain.TaxReduced, 9},
		{"standard 1000 x1", 1000, 1, domain.TaxStandard, 9},
		{"standard 1100 x10", 1100, 10, domain.TaxStandard, 100},
		{"tie rounds down to even", 54, 1, domain.TaxReduced, 0},
		{"tie rounds up to even", 162, 1, domain.TaxReduced, 2},
		{"tie 2.5 rounds to 2", 270, 1, domain.TaxReduced, 2},
		{"zero rate", 5000, 0, domain.TaxStandard, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PointsEarned(tt.price, tt.pointRate, tt.tax)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, int64(0))
		})
	}
}

func TestPointsEarned_NetPrice(t *testing.T) {
	points, err := PointsEarned(1000, 1, domain.TaxReduced)
	require.NoError(t, err)
	assert.Equal(t, int64(991), NetPrice(1000, points))
}

func TestPointsEarned_Negative(t *testing.T) {
	_, err := PointsEarned(-1, 1, domain.TaxReduced)
	assert.ErrorIs(t, err, domain.ErrType)
}

func TestProfitAmount(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		cost  int64
		tax   domain.TaxClass
		want  int64
	}{
		{"standard", 1000, 500, domain.TaxStandard, 450},
		{"reduced", 1000, 500, domain.TaxReduced, 460},
		{"rounds 7.7 up", 100, 7, domain.TaxStandard, 92},
		{"tie 5.5 to 6", 100, 5, domain.TaxStandard, 94},
		{"tie 16.5 to 16", 100, 15, domain.TaxStandard, 84},
		{"loss", 500, 1000, domain.TaxStandard, -600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProfitAmount(tt.price, tt.cost, tt.tax)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfitRate(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		cost  int64
		want  int64
	}{
		{"normal margin truncates to zero", 1000, 500, 0},
		{"small loss truncates to zero", 1000, 1000, 0},
		{"large loss", 100, 1000, -10},
		{"free cost", 1000, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProfitRate(tt.price, tt.cost, domain.TaxStandard)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfitRate_DivisionByZero(t *testing.T) {
	_, err := ProfitRate(0, 500, domain.TaxStandard)
	assert.ErrorIs(t, err, domain.ErrDivisionByZero)
}

func TestChangedProfit(t *testing.T) {
	amount, err := ChangedProfitAmount(1000, 123, domain.TaxReduced)
	require.NoError(t, err)
	assert.Equal(t, "867.16", amount.String())

	rate, err := ChangedProfitRate(1000, 123, domain.TaxReduced)
	require.NoError(t, err)
	assert.Equal(t, "0.86", rate.StringFixed(2))

	rate, err = ChangedProfitRate(1000, 500, domain.TaxStandard)
	require.NoError(t, err)
	assert.Equal(t, "0.45", rate.StringFixed(2))

	_, err = ChangedProfitRate(0, 500, domain.TaxStandard)
	assert.ErrorIs(t, err, domain.ErrDivisionByZero)
}

func TestTierPoints(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		tax   domain.TaxClass
		tier  Tier
		want  int64
	}{
		{"base standard", 1100, domain.TaxStandard, Tiers[0], 10},
		{"silver matches base", 1100, domain.TaxStandard, Tiers[1], 10},
		{"gold doubles", 1100, domain.TaxStandard, Tiers[2], 20},
		{"platinum triples", 1100, domain.TaxStandard, Tiers[3], 30},
		{"base reduced truncates", 1000, domain.TaxReduced, Tiers[0], 9},
		{"platinum reduced truncates", 1000, domain.TaxReduced, Tiers[3], 27},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TierPoints(tt.price, tt.tax, tt.tier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTiersOrder(t *testing.T) {
	names := make([]string, 0, len(Tiers))
	for _, tier := range Tiers {
		names = append(names, tier.Name)
	}
	assert.Equal(t, []string{"base", "silver", "gold", "platinum"}, names)
}

func TestSaleWindow(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	now := time.Date(2026, time.January, 5, 15, 30, 0, 0, time.UTC)

	start, end := SaleWindow(now, jst)

	assert.Equal(t, "2026/1/6 00:00", start)
	assert.Equal(t, "2050/12/31 23:59", end)

	start, _ = SaleWindow(now, nil)
	assert.Equal(t, "2026/1/5 00:00", start)
}

func TestReconcileRow(t *testing.T) {
	item := &domain.CatalogItem{
		ProductCode:  "A-001",
		PurchaseCost: 500,
		ListPrice:    1200,
		TaxClass:     domain.TaxStandard,
	}
	offer := domain.MarketOffer{ShopName: "A", Price: 1000, PointRate: 1}

	row := ReconcileRow(item, offer, domain.TaxReduced)

	assert.Empty(t, row.MarginErr)
	assert.Equal(t, int64(9), row.PointsEarned)
	assert.Equal(t, int64(991), row.NetPrice)
	require.NotNil(t, row.PriceDelta)
	assert.Equal(t, int64(200), *row.PriceDelta)
	require.NotNil(t, row.ProfitAmount)
	assert.Equal(t, int64(450), *row.ProfitAmount)
	require.NotNil(t, row.ProfitRate)
	assert.Equal(t, int64(0), *row.ProfitRate)
	assert.Nil(t, row.ChangedPrice)
}

func TestReconcileRow_ZeroPriceFlagsMargin(t *testing.T) {
	item := &domain.CatalogItem{ProductCode: "A-001", PurchaseCost: 500, ListPrice: 1200, TaxClass: domain.TaxStandard}

	row := ReconcileRow(item, domain.MarketOffer{Price: 0, PointRate: 1}, domain.TaxStandard)

	assert.Nil(t, row.ProfitRate)
	assert.NotEmpty(t, row.MarginErr)
	assert.Contains(t, row.MarginErr, domain.ErrDivisionByZero.Error())
	assert.Equal(t, "A-001", row.Item.ProductCode)
}

func TestReconcileRow_IndividualUsesCallerTax(t *testing.T) {
	row := ReconcileRow(nil, domain.MarketOffer{Price: 1000, PointRate: 1}, domain.TaxReduced)

	assert.Equal(t, int64(9), row.PointsEarned)
	assert.Nil(t, row.PriceDelta)
	assert.Nil(t, row.ProfitAmount)
}

func TestApplyChangedPrice(t *testing.T) {
	item := &domain.CatalogItem{ProductCode: "A-001", PurchaseCost: 500, TaxClass: domain.TaxStandard}
	row := ReconcileRow(item, domain.MarketOffer{Price: 1000, PointRate: 1}, domain.TaxStandard)

	require.NoError(t, ApplyChangedPrice(&row, 1100))

	assert.Equal(t, int64(1100), *row.ChangedPrice)
	assert.Equal(t, "550", *row.ChangedProfitAmount)
	assert.Equal(t, "0.50", *row.ChangedProfitRate)

	err := ApplyChangedPrice(&row, 0)
	assert.ErrorIs(t, err, domain.ErrDivisionByZero)

	individual := ReconcileRow(nil, domain.MarketOffer{Price: 1000}, domain.TaxStandard)
	assert.ErrorIs(t, ApplyChangedPrice(&individual, 1000), domain.ErrInvalidRequest)
}
