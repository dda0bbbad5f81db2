package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/career-path/internal/config"
	"github.com/khoahotran/career-path/internal/domain/job"
)

// Grants admin to ADMIN_USER_ID and, when JOB_CATALOG_FILE points to a JSON
// array of listings, loads them into the fallback job catalog.
func main() {
	fmt.Println("seeding admin and job catalog...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("cannot connect DB: %v", err)
	}
	defer pool.Close()

	if raw := os.Getenv("ADMIN_USER_ID"); raw != "" {
		adminID, err := uuid.Parse(raw)
		if err != nil {
			log.Fatalf("ADMIN_USER_ID is not a uuid: %v", err)
		}
		_, err = pool.Exec(ctx, `INSERT INTO admin_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, adminID)
		if err != nil {
			log.Fatalf("cannot add admin: %v", err)
		}
		fmt.Printf("granted admin to '%s'\n", adminID)
	}

	path := os.Getenv("JOB_CATALOG_FILE")
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("cannot read job catalog: %v", err)
	}
	var listings []job.Listing
	if err := sonic.Unmarshal(data, &listings); err != nil {
		log.Fatalf("cannot decode job catalog: %v", err)
	}

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(`
			INSERT INTO job_listings (id, title, company, location, description, skills)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET title = $2, company = $3, location = $4, description = $5, skills = $6
		`, l.ID, l.Title, l.Company, l.Location, l.Description, l.Skills)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		log.Fatalf("cannot load job catalog: %v", err)
	}

	fmt.Printf("loaded %d job listings from '%s'\n", len(listings), path)
}
