package rakuten

import (
	"strings"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
)

// postageIncluded is the postageFlag value for listings that ship free
const postageIncluded = 0

// MapToOffers converts every priced item in the response into a MarketOffer.
// Items without a price cannot be ranked and are skipped.
func MapToOffers(resp *domain.RakutenSearchResponse) []domain.MarketOffer {
	if resp == nil {
		return []domain.MarketOffer{}
	}

	offers := make([]domain.MarketOffer, 0, len(resp.Items))
	for _, wrapper := range resp.Items {
		offer, ok := MapToOffer(&wrapper.Item)
		if !ok {
			continue
		}
		offers = append(offers, offer)
	}
	return offers
}

// MapToOffer converts one raw item. Missing optional fields stay nil.
func MapToOffer(item *domain.RakutenItem) (domain.MarketOffer, bool) {
	if item == nil || item.ItemPrice == nil {
		return domain.MarketOffer{}, false
	}

	offer := domain.MarketOffer{
		ShopName:      item.ShopName,
		ItemCode:      item.ItemCode,
		ItemName:      item.ItemName,
		Price:         *item.ItemPrice,
		ItemURL:       item.ItemURL,
		ReviewCount:   item.ReviewCount,
		ReviewAverage: item.ReviewAverage,
		ImageURL:      firstImageURL(item.MediumImageURLs),
	}
	if item.PointRate != nil {
		offer.PointRate = *item.PointRate
	}
	if item.PostageFlag != nil {
		offer.HasFreeShipping = *item.PostageFlag == postageIncluded
	}
	if item.EndTime != nil && strings.TrimSpace(*item.EndTime) != "" {
		end := *item.EndTime
		offer.SaleEndTime = &end
	}

	return offer, true
}

// firstImageURL returns the first non-empty image URL, or nil
func firstImageURL(images []domain.RakutenImageURL) *string {
	for _, img := range images {
		if img.ImageURL != "" {
			u := img.ImageURL
			return &u
		}
	}
	return nil
}
