package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/catalog"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/charset"
)

// Result CSV columns read back for exports
const (
	colProductCode  = "商品コード"
	colPrice        = "商品価格"
	colChangedPrice = "変更価格"
	colListPrice    = "通販単価"
	colTaxClass     = "税率区分名"
)

var resultRequired = []string{colProductCode, colPrice, colListPrice, colTaxClass}

// ReadPriceUpdates parses an uploaded result CSV into price updates.
// A filled 変更価格 cell overrides the live 商品価格.
func ReadPriceUpdates(r io.Reader, encoding string) ([]domain.PriceUpdate, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	decoded, err := charset.Decode(raw, encoding)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: result: %v", domain.ErrParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: result: file is empty", domain.ErrParse)
	}

	index := make(map[string]int, len(records[0]))
	for i, header := range records[0] {
		index[strings.TrimSpace(header)] = i
	}
	missing := lo.Filter(resultRequired, func(col string, _ int) bool {
		_, ok := index[col]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: result: missing columns %s", domain.ErrParse, strings.Join(missing, ", "))
	}

	cell := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	updates := make([]domain.PriceUpdate, 0, len(records)-1)
	for n, record := range records[1:] {
		line := n + 2
		code := cell(record, colProductCode)
		if code == "" {
			return nil, fmt.Errorf("%w: result line %d: empty %s", domain.ErrParse, line, colProductCode)
		}

		priceText := cell(record, colPrice)
		if changed := cell(record, colChangedPrice); changed != "" {
			priceText = changed
		}
		price, err := catalog.ParseAmount(priceText)
		if err != nil {
			return nil, fmt.Errorf("result line %d: %w", line, err)
		}
		listPrice, err := catalog.ParseAmount(cell(record, colListPrice))
		if err != nil {
			return nil, fmt.Errorf("result line %d: %w", line, err)
		}
		tax, err := domain.ParseTaxClass(cell(record, colTaxClass))
		if err != nil {
			return nil, fmt.Errorf("result line %d: %w", line, err)
		}

		updates = append(updates, domain.PriceUpdate{
			ProductCode: code,
			ListPrice:   listPrice,
			Price:       price,
			TaxClass:    tax,
		})
	}
	return updates, nil
}
