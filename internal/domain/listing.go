package domain

import "time"

// AdvertType is the commercial intent of a listing.
type AdvertType string

const (
	AdvertRent  AdvertType = "Rent"
	AdvertSale  AdvertType = "Sale"
	AdvertShare AdvertType = "Share"
	AdvertSold  AdvertType = "Sold"
)

// Category is one node of the section hierarchy. Parent is nil for the
// root; listings reference the leaf node.
type Category struct {
	ID     int64
	Name   string
	Parent *Category
}

// Names returns the chain root-first, e.g. ["Residential", "Buy", "Houses"].
func (c *Category) Names() []string {
	var names []string
	for node := c; node != nil; node = node.Parent {
		names = append([]string{node.Name}, names...)
	}
	return names
}

type Address struct {
	ID             int64
	Address1       *string
	Address2       *string
	Address3       *string
	Address4       *string
	City           string
	PostalCode     string
	County         string
	Country        string
	Latitude       float64
	Longitude      float64
	LocalAuthority *string
}

type Seller struct {
	ID                  int64
	SellerID            int64
	Name                string
	Phone               *string
	Branch              *string
	Address             *Address
	ProfileImage        *string
	ProfileRoundedImage *string
	StandardLogo        *string
	SquareLogo          *string
	BackgroundColour    *string
	SellerType          *string
	Available           bool
}

// Ber is a Building Energy Rating record.
type Ber struct {
	ID     int64
	Rating *string
	Code   *string
	EPI    *string
}

// Offers is the bidding state attached to some sale listings.
type Offers struct {
	ID                  int64
	AwaitingBidders     int
	BookingDeposit      float64
	HighestOffer        *float64
	HighestOfferCurrency *string
	MakeOfferPrivate    bool
	MinimumIncrement    float64
	MinimumOfferAmount  float64
	OffersCount         int
	Status              string
}

type Image struct {
	ID       int64
	URL      string
	SizeName string
}

// PriceHistoryEntry is one point of a listing's price history. A nil
// Price encodes "price on application".
type PriceHistoryEntry struct {
	ID        int64
	Price     *float64
	Currency  *string
	Timestamp *time.Time
	Current   bool
	Source    string
	Category  AdvertType
}

// Listing is the canonical real-estate record. URL is the identity used
// for deduplication across runs.
type Listing struct {
	ID           int64
	URL          string
	Title        string
	SeoTitle     string
	PublishDate  *time.Time
	PropertyType *string
	AdvertType   AdvertType
	Sold         bool

	Address  *Address
	Seller   *Seller
	Ber      *Ber
	Offers   *Offers
	Category *Category

	Images       []Image
	PriceHistory []PriceHistoryEntry

	Brochure             *string
	About                string
	Description          string
	DeveloperName        string
	RentFrequency        *string
	Bedrooms             *int
	Bathrooms            *int
	SizeSqM              *float64
	FloorAreaSqM         *float64
	ConstructionYear     *int
	DateOfConstruction   *string

	Furnished          *bool
	PetsAllowed        *bool
	ParkingSpaces      *int
	Garden             *bool
	Balcony            *bool
	Terrace            *bool
	SwimmingPool       *bool
	HeatingType        *string
	IsApartment        bool
	FloorNumber        *int
	TotalFloors        *int
	Elevator           *bool
	LeaseType          *string
	ServiceCharge      *float64
	PropertyTax        *float64
	VideoTourURL       *string
	BuildingCondition  *string
	PlanningPermission *bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddPrice records a new current price. Every pre-existing entry loses
// its current flag first.
func (l *Listing) AddPrice(price float64, timestamp time.Time, source string) {
	for i := range l.PriceHistory {
		l.PriceHistory[i].Current = false
	}
	ts := timestamp
	l.PriceHistory = append(l.PriceHistory, PriceHistoryEntry{
		Price:     &price,
		Timestamp: &ts,
		Current:   true,
		Source:    source,
		Category:  l.AdvertType,
	})
}
