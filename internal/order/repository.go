package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	GetOrder(ctx context.Context, id uint) (*Order, error)
	TransitionToProcessing(ctx context.Context, id uint) (TransitionResult, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, number, status, total, shipping_total, created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.Number, &o.Status, &o.Total, &o.ShippingTotal, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	addrRows, err := r.db.QueryContext(ctx, `
		SELECT kind, first_name, last_name, street, city, postcode, email, phone
		FROM order_addresses
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order addresses: %w", err)
	}
	defer addrRows.Close()

	for addrRows.Next() {
		var (
			kind string
			a    Address
		)
		if err := addrRows.Scan(&kind, &a.FirstName, &a.LastName, &a.Street, &a.City, &a.Postcode, &a.Email, &a.Phone); err != nil {
			return nil, err
		}
		switch kind {
		case "billing":
			o.Billing = a
		case "shipping":
			o.Shipping = a
		}
	}

	return &o, addrRows.Err()
}

// TransitionToProcessing moves a pending order to processing. The UPDATE is a
// compare-and-set on the current status, so concurrent or repeated calls apply
// the transition at most once.
func (r *repository) TransitionToProcessing(ctx context.Context, id uint) (TransitionResult, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, StatusProcessing, id, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 1 {
		return TransitionApplied, nil
	}

	var current OrderStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrOrderNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read order status: %w", err)
	}

	if current.Settled() {
		return TransitionAlreadyProcessing, nil
	}
	return TransitionStateConflict, nil
}
