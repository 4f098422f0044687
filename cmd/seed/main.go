package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/config"
	"github.com/SwatiSTiwari/Sweet-Shop-Management-System/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "admin@sweetshop.local"
	password := "admin123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, 'admin')
		ON CONFLICT (email) DO UPDATE SET role = 'admin'
		RETURNING id
	`, email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", id, email, password)

	sweets := []struct {
		name, category, description string
		price                       float64
		quantity                    int
	}{
		{"Truffle", "Chocolate", "Dark chocolate truffle with cocoa dusting", 2.50, 10},
		{"Gulab Jamun", "Indian", "Soft milk dumplings in rose syrup", 1.20, 40},
		{"Lemon Sherbet", "Hard Candy", "Sharp citrus boiled sweet", 0.30, 200},
		{"Fudge Square", "Fudge", "Classic vanilla butter fudge", 1.80, 25},
	}
	for _, s := range sweets {
		if _, err := db.Exec(`
			INSERT INTO sweets (name, category, price, quantity, description)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING
		`, s.name, s.category, s.price, s.quantity, s.description); err != nil {
			log.Fatalf("failed to seed sweet %q: %v", s.name, err)
		}
	}
	fmt.Printf("seeded %d sweets\n", len(sweets))
}
