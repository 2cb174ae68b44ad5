package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// seedNamespace makes every seeded id deterministic so the seeder can be re-run.
var seedNamespace = uuid.MustParse("6f1c2b9e-3f43-4a55-9a7e-2d1c0a5b7e10")

func seedID(kind, name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+name)).String()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(db)
	seedProducts(db)
	seedBundles(db)
	seedPromos(db)
	seedGiftCards(db)
	seedLegacyOrders(db)

	log.Println("Seeding completed successfully!")
}

func seedUsers(db *sql.DB) {
	fmt.Println("Seeding Users...")
	for _, name := range []string{"Budi Santoso", "Siti Aminah", "Andi Pratama", "Dewi Lestari"} {
		_, err := db.Exec(`
			INSERT INTO users (id, display_name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name;
		`, seedID("user", name), name)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", name, err)
		}
	}
}

var products = []struct {
	Name      string
	UnitPrice string
	SalePrice sql.NullString
}{
	{"Ceramic Mug", "10.00", sql.NullString{}},
	{"Cast Iron Teapot", "20.00", sql.NullString{}},
	{"Loose Leaf Sencha", "8.50", sql.NullString{String: "7.00", Valid: true}},
	{"Bamboo Tray", "15.00", sql.NullString{}},
	{"Kaos Hitam Polos", "12.00", sql.NullString{String: "9.99", Valid: true}},
}

func seedProducts(db *sql.DB) {
	fmt.Println("Seeding Products...")
	for _, p := range products {
		_, err := db.Exec(`
			INSERT INTO products (id, name, unit_price, sale_price, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, unit_price = EXCLUDED.unit_price, sale_price = EXCLUDED.sale_price;
		`, seedID("product", p.Name), p.Name, p.UnitPrice, p.SalePrice)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedBundles(db *sql.DB) {
	bundles := []struct {
		Name       string
		Percentage string
		Members    []string
	}{
		{"Tea Set", "10", []string{"Ceramic Mug", "Cast Iron Teapot"}},
		{"Tea Ceremony", "15", []string{"Cast Iron Teapot", "Loose Leaf Sencha", "Bamboo Tray"}},
	}

	fmt.Println("Seeding Bundles...")
	for _, b := range bundles {
		id := seedID("bundle", b.Name)
		_, err := db.Exec(`
			INSERT INTO bundle_deals (id, name, discount_percentage, active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, discount_percentage = EXCLUDED.discount_percentage;
		`, id, b.Name, b.Percentage)
		if err != nil {
			log.Printf("Failed to seed bundle %s: %v", b.Name, err)
			continue
		}
		members := make([]string, 0, len(b.Members))
		for _, m := range b.Members {
			members = append(members, seedID("product", m))
		}
		_, err = db.Exec(`
			INSERT INTO bundle_products (bundle_id, product_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING;
		`, id, pq.Array(members))
		if err != nil {
			log.Printf("Failed to seed members of bundle %s: %v", b.Name, err)
		}
	}
}

func seedPromos(db *sql.DB) {
	now := time.Now().UTC()
	promos := []struct {
		Code       string
		Type       string
		Value      string
		Minimum    string
		MaxUses    sql.NullInt32
		SingleUse  bool
		Start      sql.NullTime
		Expiration sql.NullTime
	}{
		{"SAVE5", "fixed", "5.00", "0", sql.NullInt32{}, false, sql.NullTime{}, sql.NullTime{}},
		{"WELCOME10", "percentage", "10", "25.00", sql.NullInt32{Int32: 1000, Valid: true}, true, sql.NullTime{}, sql.NullTime{}},
		{"SUMMER", "percentage", "20", "0", sql.NullInt32{}, false, sql.NullTime{}, sql.NullTime{Time: now.AddDate(0, -1, 0), Valid: true}},
		{"NEXTMONTH", "fixed", "3.00", "0", sql.NullInt32{}, false, sql.NullTime{Time: now.AddDate(0, 1, 0), Valid: true}, sql.NullTime{}},
	}

	fmt.Println("Seeding Promo Codes...")
	for _, p := range promos {
		_, err := db.Exec(`
			INSERT INTO promo_codes (id, code, discount_type, discount_value, minimum_purchase, max_uses, single_use_per_user, start_date, expiration_date, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
			ON CONFLICT (id) DO NOTHING;
		`, seedID("promo", p.Code), p.Code, p.Type, p.Value, p.Minimum, p.MaxUses, p.SingleUse, p.Start, p.Expiration)
		if err != nil {
			log.Printf("Failed to seed promo %s: %v", p.Code, err)
		}
	}
}

func seedGiftCards(db *sql.DB) {
	now := time.Now().UTC()
	cards := []struct {
		Code    string
		Initial string
		Balance string
		Expires time.Time
	}{
		{"GIFT-100", "100.00", "100.00", now.AddDate(1, 0, 0)},
		{"GIFT-HALF", "50.00", "12.50", now.AddDate(0, 6, 0)},
		{"GIFT-OLD", "25.00", "25.00", now.AddDate(0, -2, 0)},
	}

	fmt.Println("Seeding Gift Cards...")
	for _, c := range cards {
		_, err := db.Exec(`
			INSERT INTO gift_cards (code, initial_amount, current_balance, expires_at, active)
			VALUES ($1, $2, $3, $4, TRUE)
			ON CONFLICT (code) DO NOTHING;
		`, c.Code, c.Initial, c.Balance, c.Expires)
		if err != nil {
			log.Printf("Failed to seed gift card %s: %v", c.Code, err)
		}
	}
}

// seedLegacyOrders writes rows in both historical layouts: one row per unit and one row
// per line without a quantity, so the order-group report has something to reconstruct.
func seedLegacyOrders(db *sql.DB) {
	base := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	rows := []struct {
		Key    string
		User   string
		Item   string
		Price  string
		Status string
		Offset time.Duration
	}{
		{"a1", "Budi Santoso", "Ceramic Mug", "10.00", "completed", 0},
		{"a2", "Budi Santoso", "Ceramic Mug", "10.00", "completed", time.Second},
		{"a3", "Budi Santoso", "Cast Iron Teapot", "20.00", "completed", 2 * time.Second},
		{"b1", "Siti Aminah", "Bamboo Tray", "45.00", "pending", time.Minute},
		{"b2", "Siti Aminah", "Loose Leaf Sencha", "8.50", "completed", time.Minute + 3*time.Second},
		{"c1", "Budi Santoso", "Kaos Hitam Polos", "12.00", "pending", time.Hour},
	}

	fmt.Println("Seeding Legacy Orders...")
	for _, r := range rows {
		_, err := db.Exec(`
			INSERT INTO orders (id, user_id, item_id, item_name, price, quantity, status, created_at)
			VALUES ($1, $2, $3, $4, $5, NULL, $6, $7)
			ON CONFLICT (id) DO NOTHING;
		`, seedID("order", r.Key), seedID("user", r.User), seedID("product", r.Item), r.Item, r.Price, r.Status, base.Add(r.Offset))
		if err != nil {
			log.Printf("Failed to seed order %s: %v", r.Key, err)
		}
	}
}
