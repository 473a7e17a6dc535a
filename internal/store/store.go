package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetListing retrieves a listing by ID
func (s *Store) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.GetContext(ctx, &listing, "SELECT * FROM listings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetSellerAccount retrieves a seller's payment-processor onboarding state
func (s *Store) GetSellerAccount(ctx context.Context, sellerID int64) (*models.SellerAccount, error) {
	var account models.SellerAccount
	err := s.db.GetContext(ctx, &account,
		"SELECT user_id, processor_account, details_submitted, payouts_enabled FROM seller_accounts WHERE user_id = $1",
		sellerID)
	if err == sql.ErrNoRows {
		// No row means the seller never started onboarding
		return &models.SellerAccount{UserID: sellerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetOffer retrieves an offer by ID
func (s *Store) GetOffer(ctx context.Context, id int64) (*models.Offer, error) {
	var offer models.Offer
	err := s.db.GetContext(ctx, &offer, "SELECT * FROM offers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("offer not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// GetVariant retrieves a variant by ID
func (s *Store) GetVariant(ctx context.Context, id int64) (*models.Variant, error) {
	var variant models.Variant
	err := s.db.GetContext(ctx, &variant, "SELECT * FROM variants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("variant not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetAvailableVariants retrieves the variants of a listing that can still
// be sold, in stable order
func (s *Store) GetAvailableVariants(ctx context.Context, listingID int64) ([]models.Variant, error) {
	var variants []models.Variant
	err := s.db.SelectContext(ctx, &variants,
		"SELECT * FROM variants WHERE listing_id = $1 AND is_available = TRUE AND is_sold = FALSE ORDER BY id",
		listingID)
	return variants, err
}
