// Package export renders storefront price-update files and the result table CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/charset"
	"github.com/CoffeeTonya/priceCheck/internal/usecase"
)

// Platform is an export target
type Platform string

const (
	PlatformRakuten Platform = "rakuten"
	PlatformYahoo   Platform = "yahoo"
	PlatformInhouse Platform = "inhouse"
)

// Platforms lists every export target in output order
var Platforms = []Platform{PlatformRakuten, PlatformYahoo, PlatformInhouse}

// ResultFileName is the download name of the result table CSV
const ResultFileName = "result.csv"

var fileNames = map[Platform]string{
	PlatformRakuten: "楽天アップロード用.csv",
	PlatformYahoo:   "Yahooアップロード用.csv",
	PlatformInhouse: "自社アップロード用.csv",
}

// ParsePlatform validates a platform name
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := fileNames[p]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, s)
	}
	return p, nil
}

// FileName is the download name operators upload to the storefront
func (p Platform) FileName() string {
	return fileNames[p]
}

// Rakuten item CSV headers
var RakutenColumns = []string{
	"商品管理番号（商品URL）", "商品番号", "SKU管理番号", "システム連携用SKU番号",
	"バリエーション項目キー1", "バリエーション項目キー2",
	"バリエーション項目選択肢1", "バリエーション項目選択肢2",
	"販売価格", "表示価格", "二重価格文言管理番号",
}

// Yahoo! Shopping price CSV headers
var YahooColumns = []string{"code", "original-price", "price"}

// DoublePriceWordingID selects the "表示価格" wording on Rakuten
const DoublePriceWordingID = "1"

// InhouseColumns returns the in-house CSV headers: 品番3 then six columns per tier
func InhouseColumns() []string {
	columns := []string{"品番3"}
	for _, tier := range usecase.Tiers {
		columns = append(columns,
			"販売価格(税込)[レベル1："+tier.Label+"]",
			"ポイント数[レベル1："+tier.Label+"]",
			"セール開始日[レベル1："+tier.Label+"]",
			"セール終了日[レベル1："+tier.Label+"]",
			"セール価格(税込)[レベル1："+tier.Label+"]",
			"セールポイント数[レベル1："+tier.Label+"]",
		)
	}
	return columns
}

// Encodings selects the output encoding per file
type Encodings struct {
	Rakuten string
	Yahoo   string
	Inhouse string
	Result  string
}

// DefaultEncodings matches what each storefront accepts
var DefaultEncodings = Encodings{
	Rakuten: charset.ShiftJIS,
	Yahoo:   charset.ShiftJIS,
	Inhouse: charset.UTF8BOM,
	Result:  charset.UTF8BOM,
}

// Exporter renders export files. Output is fully built in memory, so a failed
// render never yields a partial file.
type Exporter struct {
	encodings Encodings
	location  *time.Location
	now       func() time.Time
}

// NewExporter creates an exporter; loc is the timezone of the sale window
func NewExporter(encodings Encodings, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.FixedZone("JST", 9*60*60)
	}
	return &Exporter{
		encodings: encodings,
		location:  loc,
		now:       time.Now,
	}
}

// Render builds the upload file for one platform
func (e *Exporter) Render(platform Platform, updates []domain.PriceUpdate) ([]byte, error) {
	var (
		records [][]string
		enc     string
		err     error
	)

	switch platform {
	case PlatformRakuten:
		records, enc = rakutenRecords(updates), e.encodings.Rakuten
	case PlatformYahoo:
		records, enc = yahooRecords(updates), e.encodings.Yahoo
	case PlatformInhouse:
		records, err = e.inhouseRecords(updates)
		enc = e.encodings.Inhouse
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, platform)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", platform, err)
	}

	out, err := encodeCSV(records, enc)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", platform, err)
	}
	return out, nil
}

// WriteResult renders the result table as the downloadable CSV
func (e *Exporter) WriteResult(table domain.Table) ([]byte, error) {
	records := make([][]string, 0, len(table.Rows)+1)
	records = append(records, table.Columns)
	for _, row := range table.Rows {
		records = append(records, row.Cells)
	}
	out, err := encodeCSV(records, e.encodings.Result)
	if err != nil {
		return nil, fmt.Errorf("render result: %w", err)
	}
	return out, nil
}

// FromRows turns matched catalog rows into price updates. A changed price
// takes precedence over the live market price.
func FromRows(rows []domain.ReconciledRow) []domain.PriceUpdate {
	return lo.FilterMap(rows, func(row domain.ReconciledRow, _ int) (domain.PriceUpdate, bool) {
		if row.Item == nil {
			return domain.PriceUpdate{}, false
		}
		return domain.PriceUpdate{
			ProductCode: row.Item.ProductCode,
			ListPrice:   row.Item.ListPrice,
			Price:       lo.FromPtrOr(row.ChangedPrice, row.Offer.Price),
			TaxClass:    row.Item.TaxClass,
		}, true
	})
}

// rakutenRecords emits a product row and a SKU row per update, ordered by
// product code with the product row first
func rakutenRecords(updates []domain.PriceUpdate) [][]string {
	sorted := make([]domain.PriceUpdate, len(updates))
	copy(sorted, updates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessProductCode(sorted[i].ProductCode, sorted[j].ProductCode)
	})

	records := make([][]string, 0, 2*len(sorted)+1)
	records = append(records, RakutenColumns)
	for _, u := range sorted {
		code := u.ProductCode
		records = append(records,
			[]string{code, code, "", "", "", "", "", "", "", "", ""},
			[]string{code, "", code, code, "", "", "", "",
				formatInt(u.Price), formatInt(u.ListPrice), DoublePriceWordingID},
		)
	}
	return records
}

func yahooRecords(updates []domain.PriceUpdate) [][]string {
	records := make([][]string, 0, len(updates)+1)
	records = append(records, YahooColumns)
	for _, u := range updates {
		records = append(records, []string{u.ProductCode, formatInt(u.ListPrice), formatInt(u.Price)})
	}
	return records
}

func (e *Exporter) inhouseRecords(updates []domain.PriceUpdate) ([][]string, error) {
	start, end := usecase.SaleWindow(e.now(), e.location)

	records := make([][]string, 0, len(updates)+1)
	records = append(records, InhouseColumns())
	for _, u := range updates {
		record := []string{u.ProductCode}
		for _, tier := range usecase.Tiers {
			listPoints, err := usecase.TierPoints(u.ListPrice, u.TaxClass, tier)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", u.ProductCode, err)
			}
			salePoints, err := usecase.TierPoints(u.Price, u.TaxClass, tier)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", u.ProductCode, err)
			}
			record = append(record,
				formatInt(u.ListPrice), formatInt(listPoints),
				start, end,
				formatInt(u.Price), formatInt(salePoints),
			)
		}
		records = append(records, record)
	}
	return records, nil
}

// encodeCSV writes CRLF-terminated records and converts them to enc
func encodeCSV(records [][]string, enc string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true
	if err := writer.WriteAll(records); err != nil {
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return charset.Encode(buf.Bytes(), enc)
}

// lessProductCode compares numerically when both codes are integers
func lessProductCode(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil && na != nb {
		return na < nb
	}
	return a < b
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
