package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"quizzarium-backend/internal/config"
	"quizzarium-backend/internal/database"
	"quizzarium-backend/internal/sweep"

	_ "github.com/lib/pq"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "only list unreferenced files")
	grace := flag.Duration("grace", 24*time.Hour, "keep files younger than this")
	flag.Parse()

	cfg := config.Load()
	if cfg.StorageBackend == "supabase" {
		log.Fatal("media sweep only handles the disk store")
	}

	db, err := sql.Open("postgres", database.DSN(cfg))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	refs, err := sweep.Referenced(ctx, db)
	if err != nil {
		log.Fatalf("[MediaSweep] collect refs: %v", err)
	}

	cands, err := sweep.Unreferenced(cfg.UploadDir, refs, time.Now().Add(-*grace))
	if err != nil {
		log.Fatalf("[MediaSweep] scan %s: %v", cfg.UploadDir, err)
	}

	var total int64
	for _, c := range cands {
		total += c.Size
		log.Printf("[MediaSweep] unreferenced %s (%d bytes, %s)", c.Name, c.Size, c.ModTime.Format(time.RFC3339))
	}
	log.Printf("[MediaSweep] %d referenced, %d unreferenced (%d bytes)", len(refs), len(cands), total)

	if *dryRun || len(cands) == 0 {
		return
	}
	n, err := sweep.Remove(cfg.UploadDir, cands)
	if err != nil {
		log.Fatalf("[MediaSweep] removed %d of %d: %v", n, len(cands), err)
	}
	log.Printf("[MediaSweep] removed %d files", n)
}
