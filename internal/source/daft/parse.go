package daft

import (
	"sort"
	"strconv"
	"strings"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

// Raw JSON values arrive as any; these helpers coerce the shapes the API
// actually sends and return zero values for everything else.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func strPtr(v any) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

// ParseAdvertType resolves the commercial intent from the listing's
// category label. Unmapped labels yield an empty advert type.
func ParseAdvertType(category string) domain.AdvertType {
	switch category {
	case "Buy":
		return domain.AdvertSale
	case "Holiday Homes":
		return domain.AdvertRent
	case "Share":
		return domain.AdvertShare
	case "Rent":
		return domain.AdvertRent
	case "New Homes":
		return domain.AdvertSale
	case "Sold":
		return domain.AdvertSold
	}
	return ""
}

// BuildCategoryHierarchy turns an ordered root-to-leaf section list such
// as ["Residential", "Buy", "Houses"] into a parent-linked chain and
// returns the leaf node. Empty input yields nil.
func BuildCategoryHierarchy(names []string) *domain.Category {
	var parent *domain.Category
	for _, name := range names {
		parent = &domain.Category{Name: name, Parent: parent}
	}
	return parent
}

var bedBathWords = strings.NewReplacer(
	"Double", "2",
	"Single", "1",
	"Shared", "1",
	"Twin", "1",
)

// ParseBedBath normalizes bedroom/bathroom text like "3 Bed", "Double" or
// "1,2" to the leading integer. Anything unparseable is nil, never an
// error.
func ParseBedBath(value string) *int {
	if value == "" {
		return nil
	}
	value = bedBathWords.Replace(value)
	fields := strings.Fields(strings.ReplaceAll(value, ",", " "))
	if len(fields) == 0 {
		return nil
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil
	}
	return &n
}

// parseLeadingFloat reads the numeric token that starts a unit-suffixed
// value like "120 m²". Plain numbers pass through.
func parseLeadingFloat(v any) *float64 {
	if n, ok := asFloat(v); ok {
		return &n
	}
	fields := strings.Fields(asString(v))
	if len(fields) == 0 {
		return nil
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return &n
}

// parseConstructionDate keeps the raw value unless it is the "NA"
// sentinel (dropped) or purely numeric (parsed as a year).
func parseConstructionDate(value string) (*int, *string) {
	if value == "" || value == "NA" {
		return nil, nil
	}
	if year, err := strconv.Atoi(value); err == nil {
		return &year, nil
	}
	return nil, &value
}

func parseSeller(data map[string]any) *domain.Seller {
	if len(data) == 0 {
		return nil
	}
	seller := &domain.Seller{
		Name:                asString(data["name"]),
		Phone:               strPtr(data["phone"]),
		Branch:              strPtr(data["branch"]),
		ProfileImage:        strPtr(data["profileImage"]),
		ProfileRoundedImage: strPtr(data["profileRoundedImage"]),
		StandardLogo:        strPtr(data["standardLogo"]),
		SquareLogo:          strPtr(data["squareLogo"]),
		BackgroundColour:    strPtr(data["backgroundColour"]),
		SellerType:          strPtr(data["sellerType"]),
		Available:           asBool(data["sellerAvailable"]),
	}
	if id, ok := asFloat(data["sellerId"]); ok {
		seller.SellerID = int64(id)
	}
	if addr := strPtr(data["address"]); addr != nil {
		seller.Address = &domain.Address{Address1: addr}
	}
	return seller
}

// parseMedia flattens the images array, in which every element maps size
// labels to urls, and extracts the brochure url when one is advertised.
func parseMedia(media map[string]any) ([]domain.Image, *string) {
	var images []domain.Image
	for _, item := range asSlice(media["images"]) {
		imageData := asMap(item)
		sizes := make([]string, 0, len(imageData))
		for size := range imageData {
			sizes = append(sizes, size)
		}
		sort.Strings(sizes)
		for _, size := range sizes {
			images = append(images, domain.Image{URL: asString(imageData[size]), SizeName: size})
		}
	}

	var brochure *string
	if asBool(media["hasBrochure"]) {
		if docs := asSlice(media["brochure"]); len(docs) > 0 {
			brochure = strPtr(asMap(docs[0])["url"])
		}
	}

	return images, brochure
}

func parseBer(data map[string]any) *domain.Ber {
	if len(data) == 0 {
		return nil
	}
	return &domain.Ber{
		Rating: strPtr(data["rating"]),
		Code:   strPtr(data["code"]),
		EPI:    strPtr(data["epi"]),
	}
}

// parsePoint reads GeoJSON-style [longitude, latitude] coordinates.
func parsePoint(data map[string]any) *domain.Address {
	coords := asSlice(data["coordinates"])
	if len(coords) < 2 {
		return nil
	}
	lon, _ := asFloat(coords[0])
	lat, _ := asFloat(coords[1])
	return &domain.Address{Latitude: lat, Longitude: lon}
}

func parseOffers(data map[string]any) *domain.Offers {
	if len(data) == 0 {
		return nil
	}
	offers := &domain.Offers{
		MakeOfferPrivate: asBool(data["makeOfferPrivate"]),
		Status:           asString(data["status"]),
	}
	if n, ok := asFloat(data["awaitingBidders"]); ok {
		offers.AwaitingBidders = int(n)
	}
	if n, ok := asFloat(data["bookingDeposit"]); ok {
		offers.BookingDeposit = n
	}
	if n, ok := asFloat(data["minimumIncrement"]); ok {
		offers.MinimumIncrement = n
	}
	if n, ok := asFloat(data["minimumOfferAmount"]); ok {
		offers.MinimumOfferAmount = n
	}
	if n, ok := asFloat(data["offersCount"]); ok {
		offers.OffersCount = int(n)
	}
	offers.HighestOffer, offers.HighestOfferCurrency = parseOfferAmount(asString(data["highestOffer"]))
	return offers
}
