package pricing

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	offers   map[int64]*models.Offer
	variants map[int64]*models.Variant
}

func (f *fakeCatalog) GetOffer(_ context.Context, id int64) (*models.Offer, error) {
	o, ok := f.offers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return o, nil
}

func (f *fakeCatalog) GetVariant(_ context.Context, id int64) (*models.Variant, error) {
	v, ok := f.variants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return v, nil
}

func (f *fakeCatalog) GetAvailableVariants(_ context.Context, listingID int64) ([]models.Variant, error) {
	var out []models.Variant
	for _, v := range f.variants {
		if v.ListingID == listingID && v.IsAvailable && !v.IsSold {
			out = append(out, *v)
		}
	}
	return out, nil
}

func gbpListing() *models.Listing {
	return &models.Listing{
		ID:                1,
		SellerID:          10,
		SellerPrice:       5000,
		Currency:          "GBP",
		Status:            models.ListingStatusActive,
		BundleDiscountPct: 10,
	}
}

func TestResolveBasePrice(t *testing.T) {
	r := NewResolver(&fakeCatalog{})

	res, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(5000), res.ItemPrice)
	assert.Equal(t, KindBase, res.Kind)
	assert.Empty(t, res.Variants)
}

func TestResolveAcceptedOfferOverridesVariantPrice(t *testing.T) {
	// Listing base price £50, accepted offer £35: the offer wins even when
	// a variant is also named.
	catalog := &fakeCatalog{
		offers: map[int64]*models.Offer{
			7: {ID: 7, ListingID: 1, BuyerID: 2, Amount: 3500, Status: models.OfferStatusAccepted},
		},
		variants: map[int64]*models.Variant{
			3: {ID: 3, ListingID: 1, Price: 4200, IsAvailable: true},
		},
	}
	r := NewResolver(catalog)

	offerID, variantID := int64(7), int64(3)
	res, err := r.Resolve(context.Background(), &Request{
		Listing:   gbpListing(),
		BuyerID:   2,
		OfferID:   &offerID,
		VariantID: &variantID,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3500), res.ItemPrice)
	assert.Equal(t, KindOffer, res.Kind)
	// The named variant is still the unit being purchased
	require.Len(t, res.Variants, 1)
	assert.Equal(t, int64(3), res.Variants[0].ID)
}

func TestResolveOfferNotAccepted(t *testing.T) {
	catalog := &fakeCatalog{
		offers: map[int64]*models.Offer{
			7: {ID: 7, ListingID: 1, BuyerID: 2, Amount: 3500, Status: models.OfferStatusPending},
		},
	}
	r := NewResolver(catalog)

	offerID := int64(7)
	_, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, OfferID: &offerID})
	assert.ErrorIs(t, err, ErrOfferNotAccepted)
}

func TestResolveOfferWrongBuyer(t *testing.T) {
	catalog := &fakeCatalog{
		offers: map[int64]*models.Offer{
			7: {ID: 7, ListingID: 1, BuyerID: 99, Amount: 3500, Status: models.OfferStatusAccepted},
		},
	}
	r := NewResolver(catalog)

	offerID := int64(7)
	_, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, OfferID: &offerID})
	assert.ErrorIs(t, err, ErrOfferNotAccepted)
}

func TestResolveVariantPrice(t *testing.T) {
	catalog := &fakeCatalog{
		variants: map[int64]*models.Variant{
			3: {ID: 3, ListingID: 1, Price: 4200, IsAvailable: true},
		},
	}
	r := NewResolver(catalog)

	variantID := int64(3)
	res, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, VariantID: &variantID})
	require.NoError(t, err)

	assert.Equal(t, int64(4200), res.ItemPrice)
	assert.Equal(t, KindVariant, res.Kind)
}

func TestResolveVariantUnavailable(t *testing.T) {
	catalog := &fakeCatalog{
		variants: map[int64]*models.Variant{
			3: {ID: 3, ListingID: 1, Price: 4200, IsAvailable: true, IsSold: true},
			4: {ID: 4, ListingID: 99, Price: 4200, IsAvailable: true},
		},
	}
	r := NewResolver(catalog)

	for _, id := range []int64{3, 4, 5} {
		variantID := id
		_, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, VariantID: &variantID})
		assert.ErrorIs(t, err, ErrVariantUnavailable, "variant %d", id)
	}
}

func TestResolveBundleDiscount(t *testing.T) {
	// Three variants at £10/£15/£20 with a 10% bundle discount: £40.50
	catalog := &fakeCatalog{
		variants: map[int64]*models.Variant{
			1: {ID: 1, ListingID: 1, Price: 1000, IsAvailable: true},
			2: {ID: 2, ListingID: 1, Price: 1500, IsAvailable: true},
			3: {ID: 3, ListingID: 1, Price: 2000, IsAvailable: true},
		},
	}
	r := NewResolver(catalog)

	res, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, Bundle: true})
	require.NoError(t, err)

	assert.Equal(t, int64(4050), res.ItemPrice)
	assert.Equal(t, KindBundle, res.Kind)
	assert.Len(t, res.Variants, 3)
}

func TestResolveBundleOfOneGetsNoDiscount(t *testing.T) {
	// A discounted "bundle" of one item is not a bundle: with exactly one
	// variant left at £10 and a 10% discount configured, the price is £10.
	catalog := &fakeCatalog{
		variants: map[int64]*models.Variant{
			1: {ID: 1, ListingID: 1, Price: 1000, IsAvailable: true},
			2: {ID: 2, ListingID: 1, Price: 1500, IsAvailable: true, IsSold: true},
		},
	}
	r := NewResolver(catalog)

	res, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, Bundle: true})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), res.ItemPrice)
	assert.Len(t, res.Variants, 1)
}

func TestResolveBundleNoInventory(t *testing.T) {
	catalog := &fakeCatalog{
		variants: map[int64]*models.Variant{
			1: {ID: 1, ListingID: 1, Price: 1000, IsSold: true, IsAvailable: true},
		},
	}
	r := NewResolver(catalog)

	_, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, Bundle: true})
	assert.ErrorIs(t, err, ErrNoInventory)
}

func TestResolveBundleSkipsUnavailableVariants(t *testing.T) {
	catalog := &fakeCatalog{
		variants: map[int64]*models.Variant{
			1: {ID: 1, ListingID: 1, Price: 1000, IsAvailable: true},
			2: {ID: 2, ListingID: 1, Price: 1500, IsAvailable: false},
			3: {ID: 3, ListingID: 1, Price: 2000, IsAvailable: true},
		},
	}
	r := NewResolver(catalog)

	res, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, Bundle: true})
	require.NoError(t, err)

	// 1000 + 2000 minus 10%
	assert.Equal(t, int64(2700), res.ItemPrice)
	assert.Len(t, res.Variants, 2)
}

func TestResolveOfferLoadError(t *testing.T) {
	r := NewResolver(&fakeCatalog{})

	offerID := int64(123)
	_, err := r.Resolve(context.Background(), &Request{Listing: gbpListing(), BuyerID: 2, OfferID: &offerID})
	assert.True(t, errors.Is(err, ErrOfferNotAccepted))
}
