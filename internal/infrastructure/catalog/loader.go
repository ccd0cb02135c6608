// Package catalog parses operator product catalogs into CatalogItems.
package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/charset"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Product master (schema A) headers
const (
	ColProductCode   = "商品コード"
	ColJANCode       = "JANコード"
	ColPurchaseCost  = "仕入単価"
	ColListPrice     = "通販単価"
	ColTaxClass      = "税率区分名"
	ColShippingClass = "商品分類6名"
	ColExclude       = "除外ワード"
)

// Goods export (schema B) adds the product name
const ColProductName = "商品名"

var (
	masterColumns = []string{ColProductCode, ColJANCode, ColPurchaseCost, ColListPrice, ColTaxClass, ColShippingClass}
	goodsColumns  = []string{ColProductCode, ColProductName, ColJANCode, ColListPrice, ColPurchaseCost}
)

// Source is one uploaded file and its declared encoding
type Source struct {
	Name     string
	Reader   io.Reader
	Encoding string
}

// table is a decoded CSV with a header index
type table struct {
	name    string
	index   map[string]int
	records [][]string
}

func (t *table) value(record []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Load parses the product master and, when goods is non-nil, inner-joins it
// with the goods export on product code. Master order is preserved.
func Load(ctx context.Context, master Source, goods *Source) ([]domain.CatalogItem, error) {
	items, err := loadMaster(ctx, master)
	if err != nil {
		return nil, err
	}
	if goods == nil {
		return items, nil
	}

	names, err := loadGoods(goods)
	if err != nil {
		return nil, err
	}

	joined := lo.FilterMap(items, func(item domain.CatalogItem, _ int) (domain.CatalogItem, bool) {
		name, ok := names[item.ProductCode]
		if !ok {
			return domain.CatalogItem{}, false
		}
		item.ProductName = name
		return item, true
	})

	log.Info().
		Str("master", master.Name).
		Str("goods", goods.Name).
		Int("master_rows", len(items)).
		Int("goods_rows", len(names)).
		Int("joined_rows", len(joined)).
		Msg("catalog joined")

	return joined, nil
}

func loadMaster(ctx context.Context, src Source) ([]domain.CatalogItem, error) {
	t, err := readTable(src, masterColumns)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CatalogItem, 0, len(t.records))
	seen := make(map[string]int, len(t.records))
	for i, record := range t.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := i + 2

		item, err := parseMasterRecord(t, record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", t.name, line, err)
		}
		if prev, dup := seen[item.ProductCode]; dup {
			return nil, fmt.Errorf("%s line %d: %w: product code %q already on line %d",
				t.name, line, domain.ErrParse, item.ProductCode, prev)
		}
		seen[item.ProductCode] = line
		items = append(items, item)
	}

	log.Debug().Str("file", t.name).Int("rows", len(items)).Msg("product master loaded")
	return items, nil
}

func parseMasterRecord(t *table, record []string) (domain.CatalogItem, error) {
	code := t.value(record, ColProductCode)
	if code == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: empty %s", domain.ErrParse, ColProductCode)
	}

	cost, err := ParseAmount(t.value(record, ColPurchaseCost))
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("%s: %w", ColPurchaseCost, err)
	}
	price, err := ParseAmount(t.value(record, ColListPrice))
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("%s: %w", ColListPrice, err)
	}
	tax, err := domain.ParseTaxClass(t.value(record, ColTaxClass))
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("%s: %w", ColTaxClass, err)
	}

	return domain.CatalogItem{
		ProductCode:     code,
		JANCode:         t.value(record, ColJANCode),
		PurchaseCost:    cost,
		ListPrice:       price,
		TaxClass:        tax,
		ShippingClass:   t.value(record, ColShippingClass),
		ExcludeKeywords: splitKeywords(t.value(record, ColExclude)),
	}, nil
}

// loadGoods returns product code -> product name for the goods export
func loadGoods(src *Source) (map[string]string, error) {
	t, err := readTable(*src, goodsColumns)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(t.records))
	for i, record := range t.records {
		code := t.value(record, ColProductCode)
		if code == "" {
			return nil, fmt.Errorf("%s line %d: %w: empty %s", t.name, i+2, domain.ErrParse, ColProductCode)
		}
		if _, dup := names[code]; dup {
			return nil, fmt.Errorf("%s line %d: %w: duplicate product code %q", t.name, i+2, domain.ErrParse, code)
		}
		names[code] = t.value(record, ColProductName)
	}
	return names, nil
}

// readTable decodes the source and checks that every required header exists
func readTable(src Source, required []string) (*table, error) {
	if src.Reader == nil {
		return nil, fmt.Errorf("%w: %s: no file", domain.ErrParse, src.Name)
	}
	raw, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name, err)
	}
	decoded, err := charset.Decode(raw, src.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name, err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, src.Name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: file is empty", domain.ErrParse, src.Name)
	}

	index := make(map[string]int, len(records[0]))
	for i, header := range records[0] {
		index[strings.TrimSpace(header)] = i
	}
	missing := lo.Filter(required, func(col string, _ int) bool {
		_, ok := index[col]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: missing columns %s", domain.ErrParse, src.Name, strings.Join(missing, ", "))
	}

	return &table{name: src.Name, index: index, records: records[1:]}, nil
}

// splitKeywords splits on half- and full-width spaces; nil when empty
func splitKeywords(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ParseAmount parses a non-negative integer currency amount.
// Thousands separators and integral decimals ("1200.0") are accepted.
func ParseAmount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", domain.ErrType)
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrSyntax) {
			return 0, fmt.Errorf("%w: %q", domain.ErrType, s)
		}
		d, derr := decimal.NewFromString(s)
		if derr != nil || !d.IsInteger() {
			return 0, fmt.Errorf("%w: %q is not an integer amount", domain.ErrType, s)
		}
		v = d.IntPart()
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative amount %d", domain.ErrType, v)
	}
	return v, nil
}
