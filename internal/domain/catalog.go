package domain

import (
	"fmt"
	"strings"
)

// TaxClass is the consumption-tax category of a product
type TaxClass string

const (
	TaxReduced  TaxClass = "reduced"  // 8%
	TaxStandard TaxClass = "standard" // 10%
)

// Catalog labels used by the product master export
const (
	TaxLabelReduced  = "軽減税率"
	TaxLabelStandard = "課税"
)

// ParseTaxClass maps a catalog tax label to a TaxClass
func ParseTaxClass(label string) (TaxClass, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case TaxLabelReduced, "軽減", "reduced", "8%":
		return TaxReduced, nil
	case TaxLabelStandard, "標準税率", "standard", "10%":
		return TaxStandard, nil
	}
	return "", fmt.Errorf("%w: unknown tax class %q", ErrParse, label)
}

// Label returns the catalog label written back into result files
func (t TaxClass) Label() string {
	if t == TaxReduced {
		return TaxLabelReduced
	}
	return TaxLabelStandard
}

// CatalogItem is one operator product record
type CatalogItem struct {
	ProductCode     string   `json:"productCode"`
	ProductName     string   `json:"productName,omitempty"`
	JANCode         string   `json:"janCode"`
	PurchaseCost    int64    `json:"purchaseCost"`
	ListPrice       int64    `json:"listPrice"`
	TaxClass        TaxClass `json:"taxClass"`
	ShippingClass   string   `json:"shippingClass"`
	ExcludeKeywords []string `json:"excludeKeywords,omitempty"`
}
