package testing

import (
	"database/sql"
	"testing"
	"time"
)

// FixtureTime is the reference instant used by fixtures
var FixtureTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// InsertUser inserts a user with a placeholder password hash and returns its id
func InsertUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()

	res, err := db.Exec(`
		INSERT INTO users (username, email, password_hash, company_name, business_type, created_at)
		VALUES (?, ?, 'not-a-hash', 'Acme', 'retail', ?)
	`, username, username+"@example.com", FixtureTime.Unix())
	if err != nil {
		t.Fatalf("Failed to insert user %s: %v", username, err)
	}
	return lastID(t, res)
}

// ProductFixture describes a product row for InsertProduct
type ProductFixture struct {
	UserID       int64
	Name         string
	CurrentPrice float64
	MinimumPrice *float64
	MaximumPrice *float64
	StockLevel   int
}

// InsertProduct inserts a product row and returns its id
func InsertProduct(t *testing.T, db *sql.DB, p ProductFixture) int64 {
	t.Helper()

	if p.Name == "" {
		p.Name = "Widget"
	}

	res, err := db.Exec(`
		INSERT INTO products (user_id, name, current_price, min_price, max_price, stock_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.UserID, p.Name, p.CurrentPrice, nullFloat(p.MinimumPrice), nullFloat(p.MaximumPrice),
		p.StockLevel, FixtureTime.Unix(), FixtureTime.Unix())
	if err != nil {
		t.Fatalf("Failed to insert product %s: %v", p.Name, err)
	}
	return lastID(t, res)
}

// InsertCompetitor inserts a competitor and returns its id
func InsertCompetitor(t *testing.T, db *sql.DB, userID int64, name string) int64 {
	t.Helper()

	res, err := db.Exec(`
		INSERT INTO competitors (user_id, name, created_at) VALUES (?, ?, ?)
	`, userID, name, FixtureTime.Unix())
	if err != nil {
		t.Fatalf("Failed to insert competitor %s: %v", name, err)
	}
	return lastID(t, res)
}

// InsertSale appends a sale to the ledger
func InsertSale(t *testing.T, db *sql.DB, productID int64, quantity int, price float64, soldAt time.Time) {
	t.Helper()

	if _, err := db.Exec(`
		INSERT INTO sales (product_id, quantity, price, sold_at) VALUES (?, ?, ?, ?)
	`, productID, quantity, price, soldAt.Unix()); err != nil {
		t.Fatalf("Failed to insert sale: %v", err)
	}
}

// InsertPriceChange appends a price history row to the ledger
func InsertPriceChange(t *testing.T, db *sql.DB, productID int64, price float64, changedAt time.Time) {
	t.Helper()

	if _, err := db.Exec(`
		INSERT INTO price_history (product_id, price, changed_at) VALUES (?, ?, ?)
	`, productID, price, changedAt.Unix()); err != nil {
		t.Fatalf("Failed to insert price change: %v", err)
	}
}

// InsertCompetitorPrice appends a competitor price observation to the ledger
func InsertCompetitorPrice(t *testing.T, db *sql.DB, productID, competitorID int64, price float64, recordedAt time.Time) {
	t.Helper()

	if _, err := db.Exec(`
		INSERT INTO competitor_prices (product_id, competitor_id, price, recorded_at) VALUES (?, ?, ?, ?)
	`, productID, competitorID, price, recordedAt.Unix()); err != nil {
		t.Fatalf("Failed to insert competitor price: %v", err)
	}
}

func lastID(t *testing.T, res sql.Result) int64 {
	t.Helper()

	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read inserted id: %v", err)
	}
	return id
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
