package daft

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/surenab/real-estate-scrapers/internal/domain"
	"github.com/surenab/real-estate-scrapers/internal/scrape"
)

// Presentational metadata the canonical schema has no use for.
var droppedKeys = []string{
	"abbreviatedPrice",
	"daftShortcode",
	"featuredLevel",
	"featuredLevelFull",
	"id",
	"platform",
	"premierPartner",
	"saleType",
	"state",
	"sticker",
	"openViewings",
	"label",
	"pageBranding",
}

// Normalizer converts raw listing records into canonical listings. It
// keeps a batch-local URL set so one record is never emitted twice within
// a normalization pass; create a fresh Normalizer per run.
type Normalizer struct {
	origin string
	seen   *scrape.DedupSet
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		origin: Origin,
		seen:   scrape.NewDedupSet(),
		logger: logger.With("source", SourceID),
	}
}

// Normalize turns one raw record into zero or more listings: zero for
// records missing their identity or already emitted in this batch, one
// for regular listings, and one per sub-unit for development listings.
// Field-level garbage degrades to nil fields; the only hard failure is a
// malformed embedded price-history entry.
func (n *Normalizer) Normalize(raw scrape.RawListing) ([]domain.Listing, error) {
	for _, key := range droppedKeys {
		delete(raw, key)
	}

	path := asString(raw["seoFriendlyPath"])
	title := asString(raw["title"])
	if path == "" || title == "" {
		n.logger.Debug("skipping listing without path or title")
		return nil, nil
	}

	url := n.origin + path
	if !n.seen.Add(url) {
		n.logger.Debug("skipping duplicate listing", "url", url)
		return nil, nil
	}

	seller := parseSeller(asMap(raw["seller"]))
	images, brochure := parseMedia(asMap(raw["media"]))

	advertType := ParseAdvertType(asString(raw["category"]))

	var address *domain.Address
	if point := asMap(raw["point"]); point != nil {
		address = parsePoint(point)
	} else if advertType == domain.AdvertSold {
		// Sold listings carry no coordinates; the title is the only
		// address text available.
		address = &domain.Address{Address1: &title}
	}

	ber := parseBer(asMap(raw["ber"]))

	var publishDate *time.Time
	if ms, ok := asFloat(raw["publishDate"]); ok {
		t := time.UnixMilli(int64(ms))
		publishDate = &t
	}

	headline, rentFrequency := headlinePriceEntry(asString(raw["price"]), publishDate, advertType)
	priceHistory := []domain.PriceHistoryEntry{headline}

	soldPrice := asString(raw["soldPrice"])
	soldDateStr := asString(raw["soldDate"])
	if soldPrice != "" && soldDateStr != "" {
		if soldDate, err := time.Parse("02/01/2006", soldDateStr); err == nil {
			entry, _ := headlinePriceEntry(soldPrice, &soldDate, advertType)
			priceHistory = append(priceHistory, entry)
		}
	}

	var floorArea *float64
	if fa := asMap(raw["floorArea"]); fa != nil {
		floorArea = parseLeadingFloat(fa["value"])
	}

	var sections []string
	for _, s := range asSlice(raw["sections"]) {
		sections = append(sections, asString(s))
	}
	category := BuildCategoryHierarchy(sections)

	bedrooms := ParseBedBath(asString(raw["numBedrooms"]))
	bathrooms := ParseBedBath(asString(raw["numBathrooms"]))

	offers := parseOffers(asMap(raw["offers"]))
	propertySize := parseLeadingFloat(asString(raw["propertySize"]))
	constructionYear, dateOfConstruction := parseConstructionDate(asString(raw["dateOfConstruction"]))

	for _, item := range asSlice(raw["priceHistory"]) {
		entry, err := parseHistoryEntry(asMap(item), advertType)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", url, err)
		}
		duplicate := false
		for _, existing := range priceHistory {
			if historyEntryEqual(existing, entry) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			priceHistory = append(priceHistory, entry)
		}
	}

	base := domain.Listing{
		URL:                url,
		Title:              title,
		SeoTitle:           asString(raw["seoTitle"]),
		PublishDate:        publishDate,
		PropertyType:       strPtr(raw["propertyType"]),
		AdvertType:         advertType,
		Address:            address,
		Seller:             seller,
		Ber:                ber,
		Offers:             offers,
		Category:           category,
		Images:             images,
		PriceHistory:       priceHistory,
		Brochure:           brochure,
		RentFrequency:      rentFrequency,
		Bedrooms:           bedrooms,
		Bathrooms:          bathrooms,
		SizeSqM:            propertySize,
		FloorAreaSqM:       floorArea,
		ConstructionYear:   constructionYear,
		DateOfConstruction: dateOfConstruction,
	}

	// Structural branch: development sub-units fan out into one listing
	// per unit, discarding the aggregate price history. The prs branch
	// takes precedence over newHome; flat listings fall through.
	if prs := asMap(raw["prs"]); prs != nil && prs["subUnits"] != nil {
		return n.expandSubUnits(base, expansion{
			units:    asSlice(prs["subUnits"]),
			about:    asString(prs["aboutDevelopment"]),
			brochure: strPtr(prs["brochure"]),
		}, publishDate), nil
	}

	if newHome := asMap(raw["newHome"]); newHome != nil && newHome["subUnits"] != nil {
		return n.expandSubUnits(base, expansion{
			units:         asSlice(newHome["subUnits"]),
			about:         asString(newHome["about"]),
			brochure:      strPtr(newHome["brochure"]),
			developerName: asString(newHome["developmentName"]),
		}, publishDate), nil
	}

	base.Sold = advertType == domain.AdvertSold
	return []domain.Listing{base}, nil
}

// expansion carries the development-level fields inherited by every
// emitted sub-unit listing.
type expansion struct {
	units         []any
	about         string
	brochure      *string
	developerName string
}

// expandSubUnits emits one listing per individually-priced unit. Unit
// fields (url, images, rooms, price, property type, energy rating)
// replace the development's; everything else is inherited from the
// parent record.
func (n *Normalizer) expandSubUnits(parent domain.Listing, exp expansion, publishDate *time.Time) []domain.Listing {
	listings := make([]domain.Listing, 0, len(exp.units))

	for _, item := range exp.units {
		unit := asMap(item)
		if unit == nil {
			continue
		}

		listing := parent
		listing.Sold = false
		listing.About = exp.about
		listing.Brochure = exp.brochure
		listing.DeveloperName = exp.developerName

		listing.Images, _ = parseMedia(asMap(unit["media"]))
		listing.Bedrooms = ParseBedBath(asString(unit["numBedrooms"]))
		listing.Bathrooms = ParseBedBath(asString(unit["numBathrooms"]))
		listing.PropertyType = strPtr(unit["propertyType"])

		if path := asString(unit["seoFriendlyPath"]); path != "" {
			listing.URL = n.origin + path
		}

		if unitBer := asMap(unit["ber"]); unitBer != nil {
			ber := domain.Ber{}
			if parent.Ber != nil {
				ber = *parent.Ber
			}
			ber.Rating = strPtr(unitBer["rating"])
			listing.Ber = &ber
		}

		entry, frequency := headlinePriceEntry(asString(unit["price"]), publishDate, parent.AdvertType)
		listing.PriceHistory = []domain.PriceHistoryEntry{entry}
		listing.RentFrequency = frequency

		listings = append(listings, listing)
	}

	return listings
}
