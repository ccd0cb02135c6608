package usecase

import (
	"fmt"
	"time"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	divisorReduced   = decimal.RequireFromString("1.08")
	divisorStandard  = decimal.RequireFromString("1.10")
	pointCoefficient = decimal.RequireFromString("0.01")
	one              = decimal.NewFromInt(1)
)

// SaleWindowEnd closes every in-house sale window
const SaleWindowEnd = "2050/12/31 23:59"

// Tier is an in-house membership level
type Tier struct {
	Name       string
	Label      string
	Multiplier int64
}

// Tiers lists membership levels in export column order
var Tiers = []Tier{
	{Name: "base", Label: "通常会員", Multiplier: 1},
	{Name: "silver", Label: "シルバー会員", Multiplier: 1},
	{Name: "gold", Label: "ゴールド会員", Multiplier: 2},
	{Name: "platinum", Label: "プラチナ会員", Multiplier: 3},
}

// TaxDivisor returns the tax-inclusive multiplier for a tax class
func TaxDivisor(tax domain.TaxClass) decimal.Decimal {
	if tax == domain.TaxReduced {
		return divisorReduced
	}
	return divisorStandard
}

func requireNonNegative(values ...int64) error {
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("%w: negative input %d", domain.ErrType, v)
		}
	}
	return nil
}

// PointsEarned is round(price / divisor * 0.01 * pointRate), ties to even
func PointsEarned(price, pointRate int64, tax domain.TaxClass) (int64, error) {
	if err := requireNonNegative(price, pointRate); err != nil {
		return 0, err
	}
	points := decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(pointRate)).
		Mul(pointCoefficient).
		Div(TaxDivisor(tax))
	return points.RoundBank(0).IntPart(), nil
}

// NetPrice is the price after subtracting earned points
func NetPrice(price, pointsEarned int64) int64 {
	return price - pointsEarned
}

// ProfitAmount is price - round(cost * divisor)
func ProfitAmount(price, cost int64, tax domain.TaxClass) (int64, error) {
	if err := requireNonNegative(price, cost); err != nil {
		return 0, err
	}
	taxedCost := decimal.NewFromInt(cost).Mul(TaxDivisor(tax)).RoundBank(0)
	return price - taxedCost.IntPart(), nil
}

// ProfitRate is truncate(1 - cost * divisor / price).
// The whole-number truncation matches the legacy sheet and drops the fractional margin.
func ProfitRate(price, cost int64, tax domain.TaxClass) (int64, error) {
	if err := requireNonNegative(price, cost); err != nil {
		return 0, err
	}
	if price == 0 {
		return 0, fmt.Errorf("%w: profit rate at price 0", domain.ErrDivisionByZero)
	}
	ratio := decimal.NewFromInt(cost).Mul(TaxDivisor(tax)).Div(decimal.NewFromInt(price))
	return one.Sub(ratio).Truncate(0).IntPart(), nil
}

// ChangedProfitAmount is changed - cost * divisor, unrounded
func ChangedProfitAmount(changed, cost int64, tax domain.TaxClass) (decimal.Decimal, error) {
	if err := requireNonNegative(changed, cost); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(changed).Sub(decimal.NewFromInt(cost).Mul(TaxDivisor(tax))), nil
}

// ChangedProfitRate is 1 - cost * divisor / changed, truncated to two decimals
func ChangedProfitRate(changed, cost int64, tax domain.TaxClass) (decimal.Decimal, error) {
	if err := requireNonNegative(changed, cost); err != nil {
		return decimal.Zero, err
	}
	if changed == 0 {
		return decimal.Zero, fmt.Errorf("%w: profit rate at changed price 0", domain.ErrDivisionByZero)
	}
	ratio := decimal.NewFromInt(cost).Mul(TaxDivisor(tax)).Div(decimal.NewFromInt(changed))
	return one.Sub(ratio).Truncate(2), nil
}

// TierPoints is truncate(price / divisor * 0.01 * multiplier)
func TierPoints(price int64, tax domain.TaxClass, tier Tier) (int64, error) {
	if err := requireNonNegative(price); err != nil {
		return 0, err
	}
	points := decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(tier.Multiplier)).
		Mul(pointCoefficient).
		Div(TaxDivisor(tax))
	return points.Truncate(0).IntPart(), nil
}

// SaleWindow returns the open-ended sale window starting today in loc
func SaleWindow(now time.Time, loc *time.Location) (start, end string) {
	if loc != nil {
		now = now.In(loc)
	}
	start = fmt.Sprintf("%d/%d/%d 00:00", now.Year(), int(now.Month()), now.Day())
	return start, SaleWindowEnd
}

// ReconcileRow derives points and margins for an offer. item is nil for individual searches;
// tax then comes from the caller. Arithmetic failures null the affected fields and set MarginErr.
func ReconcileRow(item *domain.CatalogItem, offer domain.MarketOffer, tax domain.TaxClass) domain.ReconciledRow {
	row := domain.ReconciledRow{Item: item, Offer: offer}
	if item != nil {
		tax = item.TaxClass
	}

	points, err := PointsEarned(offer.Price, offer.PointRate, tax)
	if err != nil {
		row.MarginErr = err.Error()
		return row
	}
	row.PointsEarned = points
	row.NetPrice = NetPrice(offer.Price, points)

	if item == nil {
		return row
	}

	delta := item.ListPrice - offer.Price
	row.PriceDelta = &delta

	if amount, err := ProfitAmount(offer.Price, item.PurchaseCost, tax); err != nil {
		row.MarginErr = err.Error()
	} else {
		row.ProfitAmount = &amount
	}
	if rate, err := ProfitRate(offer.Price, item.PurchaseCost, tax); err != nil {
		row.MarginErr = err.Error()
	} else {
		row.ProfitRate = &rate
	}
	return row
}

// ApplyChangedPrice records an operator price override and its margins
func ApplyChangedPrice(row *domain.ReconciledRow, changed int64) error {
	if row.Item == nil {
		return fmt.Errorf("%w: changed price needs a catalog row", domain.ErrInvalidRequest)
	}
	amount, err := ChangedProfitAmount(changed, row.Item.PurchaseCost, row.Item.TaxClass)
	if err != nil {
		return err
	}
	rate, err := ChangedProfitRate(changed, row.Item.PurchaseCost, row.Item.TaxClass)
	if err != nil {
		return err
	}

	amountText := amount.String()
	rateText := rate.StringFixed(2)
	row.ChangedPrice = &changed
	row.ChangedProfitAmount = &amountText
	row.ChangedProfitRate = &rateText
	return nil
}
