package usecase

import (
	"fmt"
	"html"
	"sort"
	"strconv"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
)

// Result table headers
var (
	IndividualColumns = []string{
		"画像", "ショップ", "商品名", "商品価格", "送料", "ポイント数",
		"価格-ポイント", "レビュー件数", "レビュー平均点", "SALE終了",
	}
	BulkColumns = []string{
		"商品コード", "画像", "ショップ", "商品名", "商品価格", "変更価格", "送料",
		"仕入単価", "通販単価", "価格差", "送料区分", "税率区分名",
		"最安時粗利額", "最安時粗利率", "変更後粗利額", "変更後粗利率",
	}
)

// Shipping cell labels
const (
	ShippingIncluded = "送料込"
	ShippingExtra    = "送料別"
)

// TableRules are the presentation rules applied while rendering
type TableRules struct {
	PartnerShop string
	// LegacyFormulas writes spreadsheet formulas into the changed-margin
	// columns instead of computed values
	LegacyFormulas bool
}

// SortByPrice orders rows ascending by offer price, keeping ties in input order
func SortByPrice(rows []domain.ReconciledRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Offer.Price < rows[j].Offer.Price
	})
}

// BuildTable renders reconciled rows for the given mode. Individual mode is
// sorted ascending by price; bulk mode keeps catalog order.
func BuildTable(mode domain.RunMode, rows []domain.ReconciledRow, rules TableRules) domain.Table {
	table := domain.Table{Mode: mode, Rows: make([]domain.TableRow, 0, len(rows))}

	if mode == domain.ModeIndividual {
		sorted := make([]domain.ReconciledRow, len(rows))
		copy(sorted, rows)
		SortByPrice(sorted)
		rows = sorted
		table.Columns = IndividualColumns
	} else {
		table.Columns = BulkColumns
	}

	for i, row := range rows {
		var cells []string
		if mode == domain.ModeIndividual {
			cells = individualCells(row)
		} else {
			cells = bulkCells(row, i+2, rules.LegacyFormulas)
		}
		table.Rows = append(table.Rows, domain.TableRow{
			Cells:     cells,
			Highlight: rules.PartnerShop != "" && row.Offer.ShopName == rules.PartnerShop,
		})
	}
	return table
}

func individualCells(row domain.ReconciledRow) []string {
	o := row.Offer
	return []string{
		ImageLink(o),
		o.ShopName,
		NameLink(o),
		formatInt(o.Price),
		shippingLabel(o.HasFreeShipping),
		formatInt(row.PointsEarned),
		formatInt(row.NetPrice),
		formatIntPtr(o.ReviewCount),
		formatReviewAverage(o.ReviewAverage),
		formatStringPtr(o.SaleEndTime),
	}
}

// bulkCells renders one bulk row; sheetRow is the 1-based spreadsheet row the
// cells will land on, used only by legacy formulas
func bulkCells(row domain.ReconciledRow, sheetRow int, legacyFormulas bool) []string {
	o := row.Offer
	item := row.Item
	if item == nil {
		item = &domain.CatalogItem{}
	}

	changedAmount := formatStringPtr(row.ChangedProfitAmount)
	changedRate := formatStringPtr(row.ChangedProfitRate)
	if legacyFormulas {
		changedAmount, changedRate = legacyChangedFormulas(sheetRow)
	}

	return []string{
		item.ProductCode,
		ImageLink(o),
		o.ShopName,
		NameLink(o),
		formatInt(o.Price),
		formatIntPtr(row.ChangedPrice),
		shippingLabel(o.HasFreeShipping),
		formatInt(item.PurchaseCost),
		formatInt(item.ListPrice),
		formatIntPtr(row.PriceDelta),
		item.ShippingClass,
		taxLabel(item.TaxClass),
		formatIntPtr(row.ProfitAmount),
		formatIntPtr(row.ProfitRate),
		changedAmount,
		changedRate,
	}
}

// legacyChangedFormulas reproduces the spreadsheet template formulas.
// Columns: F changed price, H purchase cost, L tax label.
func legacyChangedFormulas(n int) (amount, rate string) {
	amount = fmt.Sprintf(`=IF(L%[1]d="課税", F%[1]d - H%[1]d*1.1, F%[1]d - H%[1]d*1.08)`, n)
	rate = fmt.Sprintf(`=ROUNDDOWN(IF(L%[1]d="課税", (1-(H%[1]d)*1.1/F%[1]d), (1-(H%[1]d)*1.08/F%[1]d)),2)`, n)
	return amount, rate
}

// ImageLink wraps the offer image in a link to the item, or returns "" without an image
func ImageLink(o domain.MarketOffer) string {
	if o.ImageURL == nil || *o.ImageURL == "" {
		return ""
	}
	return fmt.Sprintf(`<a href="%s" target="_blank"><img src="%s" width="100"></a>`,
		html.EscapeString(o.ItemURL), html.EscapeString(*o.ImageURL))
}

// NameLink wraps the item name in a link to the item
func NameLink(o domain.MarketOffer) string {
	return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`,
		html.EscapeString(o.ItemURL), html.EscapeString(o.ItemName))
}

func shippingLabel(free bool) string {
	if free {
		return ShippingIncluded
	}
	return ShippingExtra
}

func taxLabel(t domain.TaxClass) string {
	if t == "" {
		return ""
	}
	return t.Label()
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatIntPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return formatInt(*v)
}

func formatStringPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatReviewAverage(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
