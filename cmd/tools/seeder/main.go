package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/vendaflow/backend-vendas/internal/order"
	"github.com/vendaflow/backend-vendas/internal/pricing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedClients(ctx, pool)
	seedProducts(ctx, pool)
	seedDiscounts(ctx, pool)
	seedSampleOrder(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedClients(ctx context.Context, pool *pgxpool.Pool) {
	clients := []struct {
		Name, Contact, City, State string
	}{
		{"Ferragens Silva", "Carlos Silva", "Campinas", "SP"},
		{"Comercial Andrade", "Marina Andrade", "Belo Horizonte", "MG"},
		{"Distribuidora Nova Era", "Paulo Teixeira", "Curitiba", "PR"},
		{"Casa do Construtor", "Renata Lopes", "Porto Alegre", "RS"},
	}

	fmt.Println("Seeding Clients...")
	for _, c := range clients {
		_, err := pool.Exec(ctx, `
			INSERT INTO clients (name, contact, city, state)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM clients WHERE name = $1)
		`, c.Name, c.Contact, c.City, c.State)
		if err != nil {
			log.Printf("Failed to seed client %s: %v", c.Name, err)
		}
	}
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []struct {
		Code, Name, Price string
	}{
		{"PAR-0630", "Parafuso sextavado 6x30", "0.85"},
		{"PAR-0840", "Parafuso sextavado 8x40", "1.20"},
		{"ARR-0600", "Arruela lisa 6mm", "0.15"},
		{"POR-0600", "Porca sextavada 6mm", "0.25"},
		{"ABR-2550", "Abracadeira 25-50mm", "2.40"},
		{"FIT-1920", "Fita isolante 19mm x 20m", "6.90"},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (code, name, price)
			VALUES ($1, $2, $3::numeric)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price
		`, p.Code, p.Name, p.Price)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Code, err)
		}
	}
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool) {
	discounts := []struct {
		Name, Percentage, Commission string
	}{
		{"Tabela cheia", "0", "8"},
		{"Atacado 10", "10", "6"},
		{"Atacado 20", "20", "5"},
		{"Negociacao especial", "30", "3"},
	}

	fmt.Println("Seeding Discounts...")
	for _, d := range discounts {
		_, err := pool.Exec(ctx, `
			INSERT INTO discounts (name, percentage, commission)
			SELECT $1, $2::numeric, $3::numeric
			WHERE NOT EXISTS (SELECT 1 FROM discounts WHERE name = $1)
		`, d.Name, d.Percentage, d.Commission)
		if err != nil {
			log.Printf("Failed to seed discount %s: %v", d.Name, err)
		}
	}
}

// seedSampleOrder creates one demo quotation through the same pricing path
// the API uses.
func seedSampleOrder(ctx context.Context, pool *pgxpool.Pool) {
	var existing int64
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&existing); err != nil {
		log.Printf("Failed to count orders: %v", err)
		return
	}
	if existing > 0 {
		return
	}

	var clientID, productID, discountID int64
	if err := pool.QueryRow(ctx, `SELECT id FROM clients ORDER BY id LIMIT 1`).Scan(&clientID); err != nil {
		log.Printf("Failed to pick a client: %v", err)
		return
	}
	if err := pool.QueryRow(ctx, `SELECT id FROM products WHERE code = 'PAR-0630'`).Scan(&productID); err != nil {
		log.Printf("Failed to pick a product: %v", err)
		return
	}
	if err := pool.QueryRow(ctx, `SELECT id FROM discounts WHERE name = 'Atacado 20'`).Scan(&discountID); err != nil {
		log.Printf("Failed to pick a discount: %v", err)
		return
	}

	fmt.Println("Seeding a sample quotation...")
	svc := order.NewService(&order.PGStore{Pool: pool})
	_, err := svc.Create(ctx, order.Input{
		ClientID:     clientID,
		Status:       pricing.StatusQuotation,
		PaymentTerms: "28 dias",
		Taxes:        decimal.RequireFromString("12.50"),
		Items: []order.ItemInput{
			{ProductID: productID, Quantity: 500, DiscountID: &discountID},
		},
	})
	if err != nil {
		log.Printf("Failed to seed sample order: %v", err)
	}
}
