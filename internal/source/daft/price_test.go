package daft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surenab/real-estate-scrapers/internal/domain"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		price     float64
		currency  string
		frequency string
		empty     bool
	}{
		{name: "monthly rent", input: "€1,200 per month", price: 1200, currency: "€", frequency: "month"},
		{name: "weekly rent", input: "€350 per week", price: 350, currency: "€", frequency: "week"},
		{name: "from prefix stripped", input: "From €1,000", price: 1000, currency: "€", frequency: "month"},
		{name: "amv prefix stripped", input: "AMV: €250,000", price: 250000, currency: "€", frequency: "month"},
		{name: "currency defaults to euro", input: "1,500", price: 1500, currency: "€", frequency: "month"},
		{name: "sterling", input: "£900 per month", price: 900, currency: "£", frequency: "month"},
		{name: "decimal", input: "€1,250.50", price: 1250.5, currency: "€", frequency: "month"},
		{name: "price on application", input: "Price on Application", empty: true},
		{name: "poa", input: "POA", empty: true},
		{name: "no digits", input: "Contact Agent", empty: true},
		{name: "empty", input: "", empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParsePrice(tt.input)
			if tt.empty {
				assert.Nil(t, info.Price)
				assert.Nil(t, info.Currency)
				assert.Nil(t, info.Frequency)
				return
			}
			require.NotNil(t, info.Price)
			require.NotNil(t, info.Currency)
			require.NotNil(t, info.Frequency)
			assert.Equal(t, tt.price, *info.Price)
			assert.Equal(t, tt.currency, *info.Currency)
			assert.Equal(t, tt.frequency, *info.Frequency)
		})
	}
}

func TestParseAmount(t *testing.T) {
	price, currency, err := parseAmount("Sold for €39,500")
	require.NoError(t, err)
	assert.Equal(t, 39500.0, price)
	assert.Equal(t, "€", currency)

	price, currency, err = parseAmount("220,000")
	require.NoError(t, err)
	assert.Equal(t, 220000.0, price)
	assert.Equal(t, "€", currency)

	_, _, err = parseAmount("no price here")
	assert.Error(t, err)
}

func TestParseHistoryEntry(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"price":           "€200,000",
			"date":            "15/03/2024",
			"priceDifference": "€20,000",
			"direction":       "DECREASE",
			"current":         false,
		}
	}

	t.Run("decrease restores the higher price", func(t *testing.T) {
		entry, err := parseHistoryEntry(base(), domain.AdvertSale)
		require.NoError(t, err)
		require.NotNil(t, entry.Price)
		assert.Equal(t, 220000.0, *entry.Price)
		assert.Equal(t, "€", *entry.Currency)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *entry.Timestamp)
		assert.Equal(t, domain.AdvertSale, entry.Category)
		assert.False(t, entry.Current)
	})

	t.Run("increase restores the lower price", func(t *testing.T) {
		data := base()
		data["direction"] = "INCREASE"
		entry, err := parseHistoryEntry(data, domain.AdvertRent)
		require.NoError(t, err)
		assert.Equal(t, 180000.0, *entry.Price)
	})

	t.Run("no direction keeps the price", func(t *testing.T) {
		data := base()
		delete(data, "direction")
		entry, err := parseHistoryEntry(data, domain.AdvertSale)
		require.NoError(t, err)
		assert.Equal(t, 200000.0, *entry.Price)
	})

	t.Run("missing difference treated as zero", func(t *testing.T) {
		data := base()
		delete(data, "priceDifference")
		entry, err := parseHistoryEntry(data, domain.AdvertSale)
		require.NoError(t, err)
		assert.Equal(t, 200000.0, *entry.Price)
	})

	t.Run("bad price is an error", func(t *testing.T) {
		data := base()
		data["price"] = "withheld"
		_, err := parseHistoryEntry(data, domain.AdvertSale)
		assert.Error(t, err)
	})

	t.Run("bad date is an error", func(t *testing.T) {
		data := base()
		data["date"] = "March 2024"
		_, err := parseHistoryEntry(data, domain.AdvertSale)
		assert.Error(t, err)
	})

	t.Run("category outside rent or sale is an error", func(t *testing.T) {
		_, err := parseHistoryEntry(base(), domain.AdvertSold)
		assert.Error(t, err)
	})
}

func TestHeadlinePriceEntry(t *testing.T) {
	published := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	entry, frequency := headlinePriceEntry("€1,200 per month", &published, domain.AdvertRent)

	require.NotNil(t, entry.Price)
	assert.Equal(t, 1200.0, *entry.Price)
	assert.True(t, entry.Current)
	assert.Equal(t, SourceID, entry.Source)
	assert.Equal(t, domain.AdvertRent, entry.Category)
	assert.Equal(t, &published, entry.Timestamp)
	require.NotNil(t, frequency)
	assert.Equal(t, "month", *frequency)
}
