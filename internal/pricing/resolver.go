package pricing

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

// Resolution failures. The orchestrator maps these onto the caller-visible
// error taxonomy.
var (
	ErrOfferNotAccepted   = errors.New("offer is not accepted or does not match buyer and listing")
	ErrVariantUnavailable = errors.New("variant is not available for purchase")
	ErrNoInventory        = errors.New("no variants available for bundle purchase")
)

// Catalog is the read surface the resolver needs. Satisfied by *store.Store.
type Catalog interface {
	GetOffer(ctx context.Context, id int64) (*models.Offer, error)
	GetVariant(ctx context.Context, id int64) (*models.Variant, error)
	GetAvailableVariants(ctx context.Context, listingID int64) ([]models.Variant, error)
}

// Request describes one checkout's pricing inputs
type Request struct {
	Listing   *models.Listing
	BuyerID   int64
	OfferID   *int64
	VariantID *int64
	Bundle    bool
}

// Resolution is the chargeable item price plus the exact inventory units it
// was computed against. Variants is empty for a whole-listing purchase.
// Reservation re-validates availability; resolution is read-only.
type Resolution struct {
	ItemPrice int64
	Variants  []models.Variant
	Kind      string
}

// Resolution kinds
const (
	KindOffer   = "offer"
	KindBundle  = "bundle"
	KindVariant = "variant"
	KindBase    = "base"
)

// Resolver determines the chargeable item price for a checkout request
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a new price resolver
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve prices a checkout request. Resolution order, first match wins:
// accepted offer amount, bundle price, variant price, listing base price.
// An accepted offer overrides the price of whichever units the request
// targets; it never changes which units are reserved.
func (r *Resolver) Resolve(ctx context.Context, req *Request) (*Resolution, error) {
	res, err := r.resolveUnits(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.OfferID != nil {
		offer, err := r.catalog.GetOffer(ctx, *req.OfferID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOfferNotAccepted, err)
		}
		if offer.Status != models.OfferStatusAccepted ||
			offer.ListingID != req.Listing.ID ||
			offer.BuyerID != req.BuyerID {
			return nil, ErrOfferNotAccepted
		}
		res.ItemPrice = offer.Amount
		res.Kind = KindOffer
	}

	return res, nil
}

// resolveUnits picks the inventory units implied by the request and their
// default (pre-offer) price.
func (r *Resolver) resolveUnits(ctx context.Context, req *Request) (*Resolution, error) {
	listing := req.Listing

	if req.Bundle {
		variants, err := r.catalog.GetAvailableVariants(ctx, listing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load variants for listing %d: %w", listing.ID, err)
		}
		if len(variants) == 0 {
			return nil, ErrNoInventory
		}

		var sum int64
		for _, v := range variants {
			sum += v.Price
		}

		// A bundle of one is not a bundle: the discount only applies when
		// at least two variants remain, so a buyer can never pay a
		// discounted price for a single unit.
		price := sum
		if len(variants) >= 2 && listing.BundleDiscountPct > 0 {
			price = roundHalfUpDiv(sum*(100-listing.BundleDiscountPct), 100)
		}

		return &Resolution{ItemPrice: price, Variants: variants, Kind: KindBundle}, nil
	}

	if req.VariantID != nil {
		variant, err := r.catalog.GetVariant(ctx, *req.VariantID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrVariantUnavailable, err)
		}
		if variant.ListingID != listing.ID || !variant.IsAvailable || variant.IsSold {
			return nil, ErrVariantUnavailable
		}

		return &Resolution{
			ItemPrice: variant.Price,
			Variants:  []models.Variant{*variant},
			Kind:      KindVariant,
		}, nil
	}

	return &Resolution{ItemPrice: listing.SellerPrice, Kind: KindBase}, nil
}

func roundHalfUpDiv(n, d int64) int64 {
	return (n + d/2) / d
}
