package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order or referenced entity does not exist.
var ErrNotFound = errors.New("order: not found")

// ProductRef is the snapshot of a product taken when a line item is priced.
type ProductRef struct {
	ID    int64
	Code  string
	Name  string
	Price decimal.Decimal
}

// DiscountRef is the snapshot of a discount tier used to price a line item.
type DiscountRef struct {
	ID         int64
	Percentage decimal.Decimal
	Commission decimal.Decimal
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status   string
	ClientID int64
	Limit    int32
	Offset   int32
}

// Store abstracts order persistence and catalog lookups done while pricing.
type Store interface {
	LookupProduct(ctx context.Context, id int64) (ProductRef, error)
	LookupDiscount(ctx context.Context, id int64) (DiscountRef, error)

	InsertOrder(ctx context.Context, o *Order) error
	UpdateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Summary, int64, error)
	DeleteOrder(ctx context.Context, id int64) error
	UpdateTotals(ctx context.Context, o *Order) error
}

// PGStore implements Store on a pgx pool. Order writes replace the item set
// inside one transaction so derived totals and items never drift apart.
type PGStore struct {
	Pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

// LookupProduct fetches the pricing snapshot for a product.
func (s *PGStore) LookupProduct(ctx context.Context, id int64) (ProductRef, error) {
	var (
		ref   ProductRef
		price string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, code, name, price::text FROM products WHERE id = $1
	`, id).Scan(&ref.ID, &ref.Code, &ref.Name, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRef{}, ErrNotFound
	}
	if err != nil {
		return ProductRef{}, err
	}
	ref.Price, err = decimal.NewFromString(price)
	if err != nil {
		return ProductRef{}, fmt.Errorf("parse product price: %w", err)
	}
	return ref, nil
}

// LookupDiscount fetches the pricing snapshot for a discount tier.
func (s *PGStore) LookupDiscount(ctx context.Context, id int64) (DiscountRef, error) {
	var (
		ref        DiscountRef
		percentage string
		commission string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, percentage::text, commission::text FROM discounts WHERE id = $1
	`, id).Scan(&ref.ID, &percentage, &commission)
	if errors.Is(err, pgx.ErrNoRows) {
		return DiscountRef{}, ErrNotFound
	}
	if err != nil {
		return DiscountRef{}, err
	}
	if ref.Percentage, err = decimal.NewFromString(percentage); err != nil {
		return DiscountRef{}, fmt.Errorf("parse tier percentage: %w", err)
	}
	if ref.Commission, err = decimal.NewFromString(commission); err != nil {
		return DiscountRef{}, fmt.Errorf("parse tier commission: %w", err)
	}
	return ref, nil
}

// InsertOrder stores a new order with its items and fills generated ids.
func (s *PGStore) InsertOrder(ctx context.Context, o *Order) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (reference, client_id, representative_id, status, payment_terms,
			                    subtotal, discount, taxes, total, commission, notes)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11)
			RETURNING id, created_at, updated_at
		`, o.Reference, o.ClientID, o.RepresentativeID, o.Status, o.PaymentTerms,
			o.Subtotal.String(), o.Discount.String(), o.Taxes.String(), o.Total.String(), o.Commission.String(), o.Notes).
			Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return s.insertItems(ctx, tx, o)
	})
}

// UpdateOrder rewrites an order row and replaces its item set.
func (s *PGStore) UpdateOrder(ctx context.Context, o *Order) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders
			SET client_id = $2, representative_id = $3, status = $4, payment_terms = $5,
			    subtotal = $6::numeric, discount = $7::numeric, taxes = $8::numeric,
			    total = $9::numeric, commission = $10::numeric, notes = $11, updated_at = now()
			WHERE id = $1
		`, o.ID, o.ClientID, o.RepresentativeID, o.Status, o.PaymentTerms,
			o.Subtotal.String(), o.Discount.String(), o.Taxes.String(), o.Total.String(), o.Commission.String(), o.Notes)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("clear order items: %w", err)
		}
		return s.insertItems(ctx, tx, o)
	})
}

// UpdateTotals rewrites only the status and derived totals, keeping items intact.
func (s *PGStore) UpdateTotals(ctx context.Context, o *Order) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, subtotal = $3::numeric, total = $4::numeric, commission = $5::numeric, updated_at = now()
		WHERE id = $1
	`, o.ID, o.Status, o.Subtotal.String(), o.Total.String(), o.Commission.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrder loads an order with its items, joined with catalog display fields.
func (s *PGStore) GetOrder(ctx context.Context, id int64) (Order, error) {
	var (
		o                                          Order
		subtotal, discount, taxes, total, commPct  string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT o.id, o.reference, o.client_id, c.name, o.representative_id, o.status, o.payment_terms,
		       o.subtotal::text, o.discount::text, o.taxes::text, o.total::text, o.commission::text,
		       o.notes, o.created_at, o.updated_at
		FROM orders o
		JOIN clients c ON c.id = o.client_id
		WHERE o.id = $1
	`, id).Scan(&o.ID, &o.Reference, &o.ClientID, &o.ClientName, &o.RepresentativeID, &o.Status, &o.PaymentTerms,
		&subtotal, &discount, &taxes, &total, &commPct, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if err := parseDecimals(map[*decimal.Decimal]string{
		&o.Subtotal: subtotal, &o.Discount: discount, &o.Taxes: taxes, &o.Total: total, &o.Commission: commPct,
	}); err != nil {
		return Order{}, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT i.id, i.product_id, p.code, p.name, i.quantity,
		       i.unit_price::text, i.discount_id, i.discount_percentage::text, i.commission::text,
		       i.subtotal::text, i.client_ref
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id
	`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                                    Item
			unitPrice, pct, itemComm, itemSubtotal string
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductCode, &it.ProductName, &it.Quantity,
			&unitPrice, &it.DiscountID, &pct, &itemComm, &itemSubtotal, &it.ClientRef); err != nil {
			return Order{}, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{
			&it.UnitPrice: unitPrice, &it.DiscountPercentage: pct, &it.Commission: itemComm, &it.Subtotal: itemSubtotal,
		}); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// ListOrders returns order summaries matching the filter, newest first.
func (s *PGStore) ListOrders(ctx context.Context, f ListFilter) ([]Summary, int64, error) {
	var total int64
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM orders
		WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR client_id = $2)
	`, f.Status, f.ClientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT o.id, o.reference, o.client_id, c.name, o.status, o.total::text, o.commission::text, o.created_at
		FROM orders o
		JOIN clients c ON c.id = o.client_id
		WHERE ($1 = '' OR o.status = $1) AND ($2 = 0 OR o.client_id = $2)
		ORDER BY o.id DESC
		LIMIT $3 OFFSET $4
	`, f.Status, f.ClientID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	summaries := make([]Summary, 0, f.Limit)
	for rows.Next() {
		var (
			sum                Summary
			totalStr, commStr string
		)
		if err := rows.Scan(&sum.ID, &sum.Reference, &sum.ClientID, &sum.ClientName, &sum.Status, &totalStr, &commStr, &sum.CreatedAt); err != nil {
			return nil, 0, err
		}
		if err := parseDecimals(map[*decimal.Decimal]string{&sum.Total: totalStr, &sum.Commission: commStr}); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, rows.Err()
}

// DeleteOrder removes an order; items go with it via cascade.
func (s *PGStore) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) insertItems(ctx context.Context, tx pgx.Tx, o *Order) error {
	for i := range o.Items {
		it := &o.Items[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price,
			                         discount_id, discount_percentage, commission, subtotal, client_ref)
			VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7::numeric, $8::numeric, $9)
			RETURNING id
		`, o.ID, it.ProductID, it.Quantity, it.UnitPrice.String(),
			it.DiscountID, it.DiscountPercentage.String(), it.Commission.String(), it.Subtotal.String(), it.ClientRef).
			Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (s *PGStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func parseDecimals(fields map[*decimal.Decimal]string) error {
	for dst, raw := range fields {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parse numeric column: %w", err)
		}
		*dst = d
	}
	return nil
}
