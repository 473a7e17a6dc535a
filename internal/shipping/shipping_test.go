package shipping

import (
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, RegionDomestic, Classify("GB", "GB"))
	assert.Equal(t, RegionDomestic, Classify("gb", "GB"))
	assert.Equal(t, RegionRegional, Classify("GB", "FR"))
	assert.Equal(t, RegionRegional, Classify("US", "CA"))
	assert.Equal(t, RegionInternational, Classify("GB", "US"))
	assert.Equal(t, RegionInternational, Classify("GB", "JP"))
	// Unknown origin and destination never collapse into one zone
	assert.Equal(t, RegionInternational, Classify("XX", "YY"))
}

func TestCost(t *testing.T) {
	listing := &models.Listing{
		Country:           "GB",
		ShipDomestic:      300,
		ShipRegional:      800,
		ShipInternational: 1500,
	}

	assert.Equal(t, int64(300), Cost(listing, "GB"))
	assert.Equal(t, int64(800), Cost(listing, "DE"))
	assert.Equal(t, int64(1500), Cost(listing, "US"))
}

func TestCostFreeShipping(t *testing.T) {
	listing := &models.Listing{
		Country:           "GB",
		FreeShipping:      true,
		ShipInternational: 1500,
	}

	assert.Equal(t, int64(0), Cost(listing, "US"))
}
