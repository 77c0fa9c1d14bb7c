package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrDuplicateCode is returned when a product code already exists.
var ErrDuplicateCode = errors.New("catalog: product code already exists")

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return err
}

// PGStore implements Store on top of a pgx connection pool. Monetary columns
// travel as text so numeric values never pass through binary floats.
type PGStore struct {
	Pool *pgxpool.Pool
}

var _ Store = (*PGStore)(nil)

// CountProducts counts products matching the optional search query.
func (s *PGStore) CountProducts(ctx context.Context, query string) (int64, error) {
	var total int64
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM products
		WHERE $1 = '' OR code ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%'
	`, query).Scan(&total)
	return total, err
}

// ListProducts returns a page of products ordered by code.
func (s *PGStore) ListProducts(ctx context.Context, query string, limit, offset int32) ([]Product, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, code, name, price::text, conversion FROM products
		WHERE $1 = '' OR code ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%'
		ORDER BY code
		LIMIT $2 OFFSET $3
	`, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// GetProduct fetches one product by id.
func (s *PGStore) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, code, name, price::text, conversion FROM products WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// CreateProduct inserts a product and returns the stored row.
func (s *PGStore) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO products (code, name, price, conversion)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING id, code, name, price::text, conversion
	`, in.Code, in.Name, in.Price.String(), in.Conversion)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPGError(err)
	}
	return p, nil
}

// UpdateProduct rewrites a product row.
func (s *PGStore) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE products
		SET code = $2, name = $3, price = $4::numeric, conversion = $5, updated_at = now()
		WHERE id = $1
		RETURNING id, code, name, price::text, conversion
	`, id, in.Code, in.Name, in.Price.String(), in.Conversion)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, mapPGError(err)
	}
	return p, nil
}

// DeleteProduct removes a product row.
func (s *PGStore) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDiscounts returns every discount tier ordered by percentage.
func (s *PGStore) ListDiscounts(ctx context.Context) ([]Discount, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, percentage::text, commission::text FROM discounts
		ORDER BY percentage, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// GetDiscount fetches one discount tier by id.
func (s *PGStore) GetDiscount(ctx context.Context, id int64) (Discount, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, name, percentage::text, commission::text FROM discounts WHERE id = $1
	`, id)
	d, err := scanDiscount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Discount{}, ErrNotFound
	}
	return d, err
}

// CreateDiscount inserts a discount tier and returns the stored row.
func (s *PGStore) CreateDiscount(ctx context.Context, in DiscountInput) (Discount, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO discounts (name, percentage, commission)
		VALUES ($1, $2::numeric, $3::numeric)
		RETURNING id, name, percentage::text, commission::text
	`, in.Name, in.Percentage.String(), in.Commission.String())
	return scanDiscount(row)
}

// UpdateDiscount rewrites a discount tier row.
func (s *PGStore) UpdateDiscount(ctx context.Context, id int64, in DiscountInput) (Discount, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE discounts
		SET name = $2, percentage = $3::numeric, commission = $4::numeric, updated_at = now()
		WHERE id = $1
		RETURNING id, name, percentage::text, commission::text
	`, id, in.Name, in.Percentage.String(), in.Commission.String())
	d, err := scanDiscount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Discount{}, ErrNotFound
	}
	return d, err
}

// DeleteDiscount removes a discount tier row.
func (s *PGStore) DeleteDiscount(ctx context.Context, id int64) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &price, &p.Conversion); err != nil {
		return Product{}, err
	}
	dec, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price: %w", err)
	}
	p.Price = dec
	return p, nil
}

func scanDiscount(row pgx.Row) (Discount, error) {
	var (
		d          Discount
		percentage string
		commission string
	)
	if err := row.Scan(&d.ID, &d.Name, &percentage, &commission); err != nil {
		return Discount{}, err
	}
	pct, err := decimal.NewFromString(percentage)
	if err != nil {
		return Discount{}, fmt.Errorf("parse percentage: %w", err)
	}
	com, err := decimal.NewFromString(commission)
	if err != nil {
		return Discount{}, fmt.Errorf("parse commission: %w", err)
	}
	d.Percentage = pct
	d.Commission = com
	return d, nil
}
