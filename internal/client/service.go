package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendaflow/backend-vendas/internal/common"
)

// Client represents a customer a representative sells to.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input captures payload for creating or updating a client.
type Input struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	City    string `json:"city"`
	State   string `json:"state"`
	Notes   string `json:"notes"`
}

// Service orchestrates client book operations.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a client service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

const clientColumns = `id, name, contact, phone, email, city, state, notes, created_at, updated_at`

// List returns a paginated, optionally filtered page of clients.
func (s *Service) List(ctx context.Context, query string, page, perPage int) ([]Client, int64, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	query = strings.TrimSpace(query)

	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM clients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR city ILIKE '%' || $1 || '%'
	`, query).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR city ILIKE '%' || $1 || '%'
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`, query, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	clients := make([]Client, 0, perPage)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, c)
	}
	return clients, total, rows.Err()
}

// Get fetches one client by id.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, common.NotFound("client", err)
	}
	return c, err
}

// Create inserts a new client.
func (s *Service) Create(ctx context.Context, in Input) (Client, error) {
	if err := validateInput(in); err != nil {
		return Client{}, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO clients (name, contact, phone, email, city, state, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+clientColumns,
		in.Name, in.Contact, in.Phone, in.Email, in.City, in.State, in.Notes)
	return scanClient(row)
}

// Update rewrites an existing client.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Client, error) {
	if err := validateInput(in); err != nil {
		return Client{}, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE clients
		SET name = $2, contact = $3, phone = $4, email = $5, city = $6, state = $7, notes = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+clientColumns,
		id, in.Name, in.Contact, in.Phone, in.Email, in.City, in.State, in.Notes)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, common.NotFound("client", err)
	}
	return c, err
}

// Delete removes a client. Clients referenced by orders cannot be removed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var hasOrders bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE client_id = $1)`, id).Scan(&hasOrders); err != nil {
		return err
	}
	if hasOrders {
		return common.NewAppError("CONFLICT", "client has orders and cannot be deleted", 409, nil)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("client", nil)
	}
	return nil
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.Name) == "" {
		return common.BadRequest("name", "name is required", nil)
	}
	return nil
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Contact, &c.Phone, &c.Email, &c.City, &c.State, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
