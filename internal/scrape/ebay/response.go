package ebay

import (
	"time"

	"github.com/jonesrussell/flipscout/internal/domain"
	"github.com/jonesrussell/flipscout/internal/scrape"
)

// conditionFilters maps normalized conditions onto eBay condition ID filters.
var conditionFilters = map[domain.Condition]string{
	domain.ConditionNew:        "1000",
	domain.ConditionLikeNew:    "2750",
	domain.ConditionVeryGood:   "4000",
	domain.ConditionGood:       "5000",
	domain.ConditionAcceptable: "6000",
	domain.ConditionPoor:       "7000",
}

// categoryIDs maps the pipeline's category labels onto eBay category ids.
var categoryIDs = map[string]string{
	"electronics":  "293",
	"collectibles": "1",
	"clothing":     "11450",
	"furniture":    "3197",
	"sporting":     "888",
	"toys":         "220",
	"tools":        "631",
	"appliances":   "20710",
}

type searchResponse struct {
	ItemSummaries []itemSummary `json:"itemSummaries"`
	Total         int           `json:"total"`
}

type itemSummary struct {
	ItemID            string         `json:"itemId"`
	Title             string         `json:"title"`
	ShortDescription  string         `json:"shortDescription"`
	Price             money          `json:"price"`
	LastSoldPrice     money          `json:"lastSoldPrice"`
	LastSoldDate      string         `json:"lastSoldDate"`
	Condition         string         `json:"condition"`
	ItemWebURL        string         `json:"itemWebUrl"`
	Image             image          `json:"image"`
	ThumbnailImages   []image        `json:"thumbnailImages"`
	AdditionalImages  []image        `json:"additionalImages"`
	Seller            seller         `json:"seller"`
	ItemLocation      itemLocation   `json:"itemLocation"`
	Categories        []categoryInfo `json:"categories"`
	ItemCreationDate  string         `json:"itemCreationDate"`
	BuyingOptions     []string       `json:"buyingOptions"`
	ItemGroupHrefType string         `json:"itemGroupType"`
}

type money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type image struct {
	ImageURL string `json:"imageUrl"`
}

type seller struct {
	Username string `json:"username"`
}

type itemLocation struct {
	City            string `json:"city"`
	StateOrProvince string `json:"stateOrProvince"`
	Country         string `json:"country"`
}

type categoryInfo struct {
	CategoryName string `json:"categoryName"`
}

func (s *itemSummary) toRawItem(sold bool) scrape.RawItem {
	item := scrape.RawItem{
		NativeID:    s.ItemID,
		URL:         s.ItemWebURL,
		Title:       s.Title,
		Description: s.ShortDescription,
		RawPrice:    s.Price.Value,
		Condition:   s.Condition,
		City:        s.ItemLocation.City,
		Region:      s.ItemLocation.StateOrProvince,
		SellerName:  s.Seller.Username,
		Sold:        sold,
	}

	if s.Image.ImageURL != "" {
		item.ImageURLs = append(item.ImageURLs, s.Image.ImageURL)
	}
	for _, img := range s.AdditionalImages {
		item.ImageURLs = append(item.ImageURLs, img.ImageURL)
	}
	for _, img := range s.ThumbnailImages {
		if item.ThumbnailURL == "" {
			item.ThumbnailURL = img.ImageURL
		}
	}

	if len(s.Categories) > 0 {
		item.Category = s.Categories[0].CategoryName
	}

	if s.ItemCreationDate != "" {
		if posted, err := time.Parse(time.RFC3339, s.ItemCreationDate); err == nil {
			item.PostedAt = &posted
		}
	}

	if sold {
		item.RawPrice = s.LastSoldPrice.Value
		if item.RawPrice == "" {
			item.RawPrice = s.Price.Value
		}
		if s.LastSoldDate != "" {
			if soldAt, err := time.Parse(time.RFC3339, s.LastSoldDate); err == nil {
				item.SoldAt = &soldAt
			}
		}
	}

	return item
}
