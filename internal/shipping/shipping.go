package shipping

import (
	"strings"

	"checkout-service/internal/models"
)

// Region classes for a listing's shipping-cost table
type Region string

const (
	RegionDomestic      Region = "domestic"
	RegionRegional      Region = "regional"
	RegionInternational Region = "international"
)

// zones groups countries whose cross-border shipping is priced at the
// regional tier. Two-letter ISO 3166-1 codes.
var zones = map[string]string{
	// Europe
	"GB": "EU", "IE": "EU", "FR": "EU", "DE": "EU", "ES": "EU", "IT": "EU",
	"NL": "EU", "BE": "EU", "PT": "EU", "AT": "EU", "DK": "EU", "SE": "EU",
	"FI": "EU", "PL": "EU", "CZ": "EU", "GR": "EU", "LU": "EU", "HU": "EU",
	"RO": "EU", "BG": "EU", "HR": "EU", "SI": "EU", "SK": "EU", "EE": "EU",
	"LV": "EU", "LT": "EU", "CH": "EU", "NO": "EU",
	// North America
	"US": "NA", "CA": "NA", "MX": "NA",
	// Oceania
	"AU": "OC", "NZ": "OC",
}

// Classify maps a listing origin and buyer destination to a region class.
// Same country is domestic; same zone is regional; everything else ships at
// the international tier.
func Classify(listingCountry, buyerCountry string) Region {
	from := strings.ToUpper(listingCountry)
	to := strings.ToUpper(buyerCountry)

	if from == to {
		return RegionDomestic
	}
	if z, ok := zones[from]; ok && z == zones[to] {
		return RegionRegional
	}
	return RegionInternational
}

// Cost returns the shipping charge in minor units for delivering a listing
// to the buyer's country. Free-shipping listings always cost zero.
func Cost(listing *models.Listing, buyerCountry string) int64 {
	if listing.FreeShipping {
		return 0
	}

	switch Classify(listing.Country, buyerCountry) {
	case RegionDomestic:
		return listing.ShipDomestic
	case RegionRegional:
		return listing.ShipRegional
	default:
		return listing.ShipInternational
	}
}
