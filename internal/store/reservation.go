package store

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/jmoiron/sqlx"
)

// Reservation failures. Both mean the whole transaction rolled back and
// nothing was reserved or recorded.
var (
	// ErrListingUnavailable means the listing was missing or no longer
	// active when the reservation re-checked it.
	ErrListingUnavailable = errors.New("listing is not available")
	// ErrVariantAlreadySold means a targeted variant lost the race to a
	// concurrent checkout.
	ErrVariantAlreadySold = errors.New("variant already sold")
)

// ReservationInput carries everything the reservation transaction persists.
// Monetary fields are integer minor units of Currency and must satisfy
// TotalAmount == SellerAmount + PlatformFee + ShippingCost.
type ReservationInput struct {
	DraftID         string
	BuyerID         int64
	SellerID        int64
	ListingID       int64
	VariantIDs      []int64 // empty means a whole-listing purchase
	ItemPrice       int64
	TotalAmount     int64
	PlatformFee     int64
	SellerAmount    int64
	ShippingCost    int64
	Currency        string
	ShippingAddress string
	Lines           []LineInput
}

// LineInput is one order line to insert. VariantID is zero for the single
// line of a whole-listing purchase.
type LineInput struct {
	VariantID int64
	UnitPrice int64
}

// ReserveAndRecord atomically reserves the inventory units a checkout
// targets and records the order that owns them, in one transaction:
//
//   - each targeted variant is flipped is_sold false->true by a conditional
//     UPDATE that also re-checks the parent listing is active; zero rows
//     affected aborts the whole transaction, so a bundle is reserved
//     all-or-nothing;
//   - a whole-listing purchase conditionally moves the listing
//     active->reserved instead;
//   - the order header and every order line are inserted before commit.
//
// An order therefore never exists without its inventory reserved, and
// reserved inventory always has an owning order. At most one reservation
// can ever succeed per variant, enforced by the conditional write rather
// than any application-level lock.
func (s *Store) ReserveAndRecord(ctx context.Context, in *ReservationInput) (int64, error) {
	ctx, span := util.StartSpan(ctx, "Store.ReserveAndRecord")
	defer span.End()

	if in.TotalAmount != in.SellerAmount+in.PlatformFee+in.ShippingCost {
		return 0, fmt.Errorf("order amounts do not reconcile: total=%d seller=%d fee=%d shipping=%d",
			in.TotalAmount, in.SellerAmount, in.PlatformFee, in.ShippingCost)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if len(in.VariantIDs) == 0 {
		res, err := tx.ExecContext(ctx,
			"UPDATE listings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
			models.ListingStatusReserved, in.ListingID, models.ListingStatusActive)
		if err != nil {
			return 0, fmt.Errorf("failed to reserve listing %d: %w", in.ListingID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, ErrListingUnavailable
		}
	} else {
		for _, variantID := range in.VariantIDs {
			res, err := tx.ExecContext(ctx, `
				UPDATE variants v SET is_sold = TRUE, sold_at = NOW()
				FROM listings l
				WHERE v.id = $1 AND v.listing_id = l.id AND l.id = $2
				  AND l.status = $3 AND v.is_available = TRUE AND v.is_sold = FALSE`,
				variantID, in.ListingID, models.ListingStatusActive)
			if err != nil {
				return 0, fmt.Errorf("failed to reserve variant %d: %w", variantID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return 0, s.classifyVariantConflict(ctx, tx, in.ListingID)
			}
		}
	}

	var orderID int64
	err = tx.GetContext(ctx, &orderID, `
		INSERT INTO orders (draft_id, buyer_id, seller_id, listing_id,
			total_amount, platform_fee, seller_amount, shipping_cost,
			currency, status, shipping_address, shipping_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		in.DraftID, in.BuyerID, in.SellerID, in.ListingID,
		in.TotalAmount, in.PlatformFee, in.SellerAmount, in.ShippingCost,
		in.Currency, models.OrderStatusPending, in.ShippingAddress, models.ShippingStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, line := range in.Lines {
		var variantID interface{}
		if line.VariantID != 0 {
			variantID = line.VariantID
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, listing_id, variant_id, unit_price)
			VALUES ($1, $2, $3, $4)`,
			orderID, in.ListingID, variantID, line.UnitPrice); err != nil {
			return 0, fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return orderID, nil
}

// classifyVariantConflict distinguishes a dead listing from a lost race.
// Read-only; the transaction is rolled back either way.
func (s *Store) classifyVariantConflict(ctx context.Context, tx *sqlx.Tx, listingID int64) error {
	var status string
	if err := tx.GetContext(ctx, &status,
		"SELECT status FROM listings WHERE id = $1", listingID); err != nil {
		return ErrListingUnavailable
	}
	if status != models.ListingStatusActive {
		return ErrListingUnavailable
	}
	return ErrVariantAlreadySold
}

// ReleaseReservation is the compensating transaction for a checkout whose
// payment could not be issued: it reverts the variant sold-flags, restores
// a reserved listing to active, and cancels the order, atomically. Without
// it a processor failure would leave inventory permanently stuck as sold
// with no live order.
func (s *Store) ReleaseReservation(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "Store.ReleaseReservation")
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var order models.Order
	if err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("failed to load order %d: %w", orderID, err)
	}

	var variantIDs []int64
	if err := tx.SelectContext(ctx, &variantIDs,
		"SELECT variant_id FROM order_lines WHERE order_id = $1 AND variant_id IS NOT NULL",
		orderID); err != nil {
		return fmt.Errorf("failed to load order lines: %w", err)
	}

	if len(variantIDs) > 0 {
		query, args, err := sqlx.In(
			"UPDATE variants SET is_sold = FALSE, sold_at = NULL WHERE id IN (?) AND is_sold = TRUE",
			variantIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to release variants: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			"UPDATE listings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
			models.ListingStatusActive, order.ListingID, models.ListingStatusReserved); err != nil {
			return fmt.Errorf("failed to release listing: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		models.OrderStatusCancelled, orderID); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	return tx.Commit()
}

// FinalizeListing settles the listing row once an order is paid: a
// whole-listing purchase moves reserved->sold, a variant purchase marks the
// listing sold only when no sellable variant remains.
func (s *Store) FinalizeListing(ctx context.Context, listingID int64, wholeListing bool) error {
	if wholeListing {
		_, err := s.db.ExecContext(ctx,
			"UPDATE listings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
			models.ListingStatusSold, listingID, models.ListingStatusReserved)
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE listings SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		  AND NOT EXISTS (
			SELECT 1 FROM variants
			WHERE listing_id = $2 AND is_available = TRUE AND is_sold = FALSE)`,
		models.ListingStatusSold, listingID, models.ListingStatusActive)
	return err
}
