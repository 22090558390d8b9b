package daft

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

// PriceInfo is the result of parsing a headline price string. All fields
// are nil for "price on application" listings and for unparseable input.
type PriceInfo struct {
	Price     *float64
	Currency  *string
	Frequency *string
}

var (
	headlinePriceRe = regexp.MustCompile(`(?i)^([€£]?)\s*(\d[\d,]*\.?\d*)\s*(per\s*(month|week))?`)
	amountRe        = regexp.MustCompile(`([€£$])?([\d,]+\.?\d*)`)
)

// ParsePrice parses a free-text headline price such as "€1,200 per month",
// "From €1,000" or "AMV: €250,000". The currency defaults to € and the
// frequency to "month" when the string omits them. Unparseable input
// degrades to nil fields rather than an error.
func ParsePrice(priceStr string) PriceInfo {
	priceStr = strings.TrimSpace(priceStr)
	priceStr = strings.ReplaceAll(priceStr, "From ", "")
	priceStr = strings.ReplaceAll(priceStr, "AMV: ", "")

	if strings.Contains(priceStr, "Price on Application") || strings.Contains(priceStr, "POA") {
		return PriceInfo{}
	}

	match := headlinePriceRe.FindStringSubmatch(priceStr)
	if match == nil {
		return PriceInfo{}
	}

	currency := match[1]
	if currency == "" {
		currency = "€"
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(match[2], ",", ""), 64)
	if err != nil {
		return PriceInfo{}
	}

	frequency := match[4]
	if frequency == "" {
		frequency = "month"
	}

	return PriceInfo{Price: &price, Currency: &currency, Frequency: &frequency}
}

// parseAmount extracts the numeric value and currency symbol from a price
// string like "€39,500". Unlike ParsePrice this variant is strict: input
// without a recognizable amount is an error.
func parseAmount(priceStr string) (float64, string, error) {
	match := amountRe.FindStringSubmatch(priceStr)
	if match == nil {
		return 0, "", fmt.Errorf("invalid price format: %q", priceStr)
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(match[2], ",", ""), 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid price format: %q", priceStr)
	}
	currency := match[1]
	if currency == "" {
		currency = "€"
	}
	return price, currency, nil
}

// parseOfferAmount is the lenient variant used for offer fields: no
// currency default and nil values when nothing matches.
func parseOfferAmount(priceStr string) (*float64, *string) {
	match := amountRe.FindStringSubmatch(priceStr)
	if match == nil {
		return nil, nil
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(match[2], ",", ""), 64)
	if err != nil {
		return nil, nil
	}
	var currency *string
	if match[1] != "" {
		c := match[1]
		currency = &c
	}
	return &price, currency
}

// headlinePriceEntry builds the current price-history entry from the
// listing's headline price. The rent payment frequency is returned
// separately since it lives on the listing, not the history row.
func headlinePriceEntry(priceStr string, publishDate *time.Time, advertType domain.AdvertType) (domain.PriceHistoryEntry, *string) {
	info := ParsePrice(priceStr)
	entry := domain.PriceHistoryEntry{
		Price:     info.Price,
		Currency:  info.Currency,
		Timestamp: publishDate,
		Current:   true,
		Source:    SourceID,
		Category:  advertType,
	}
	return entry, info.Frequency
}

// parseHistoryEntry reconstructs one historical price from an embedded
// price-history element. The listed price is the price after the change,
// so the historical price is adjusted opposite to the stated direction:
// a DECREASE means the price used to be higher by the difference, an
// INCREASE lower. This parser is strict; a malformed price or date is a
// hard failure for the record.
func parseHistoryEntry(data map[string]any, category domain.AdvertType) (domain.PriceHistoryEntry, error) {
	if category != domain.AdvertRent && category != domain.AdvertSale {
		return domain.PriceHistoryEntry{}, fmt.Errorf("invalid price history category: %q", category)
	}

	price, currency, err := parseAmount(asString(data["price"]))
	if err != nil {
		return domain.PriceHistoryEntry{}, err
	}

	timestamp, err := time.Parse("02/01/2006", asString(data["date"]))
	if err != nil {
		return domain.PriceHistoryEntry{}, fmt.Errorf("invalid price history date: %w", err)
	}

	diffStr := asString(data["priceDifference"])
	if diffStr == "" {
		diffStr = "€0"
	}
	difference, _, err := parseAmount(diffStr)
	if err != nil {
		return domain.PriceHistoryEntry{}, err
	}

	realPrice := price
	switch strings.ToUpper(asString(data["direction"])) {
	case "DECREASE":
		realPrice = price + difference
	case "INCREASE":
		realPrice = price - difference
	}

	return domain.PriceHistoryEntry{
		Price:     &realPrice,
		Currency:  &currency,
		Timestamp: &timestamp,
		Current:   asBool(data["current"]),
		Category:  category,
	}, nil
}

// historyEntryEqual compares entries by value so the current price is not
// duplicated when the API includes it in its own history array.
func historyEntryEqual(a, b domain.PriceHistoryEntry) bool {
	return floatPtrEqual(a.Price, b.Price) &&
		stringPtrEqual(a.Currency, b.Currency) &&
		timePtrEqual(a.Timestamp, b.Timestamp) &&
		a.Current == b.Current &&
		a.Source == b.Source &&
		a.Category == b.Category
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
