// Command encrypt-applications seals the application_data column of
// rows written before at-rest encryption was enabled. Already-encrypted
// rows are left untouched, so the migration is safe to re-run.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"benefit-gateway/internal/application/crypto"
	"benefit-gateway/internal/platform/config"
	"benefit-gateway/internal/platform/logger"
	"benefit-gateway/internal/platform/postgres"
)

const batchSize = 10

func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be encrypted without writing")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Postgres.DSN == "" {
		log.Error("postgres.dsn is required")
		os.Exit(1)
	}
	if cfg.Crypto.EncryptionKey == "" {
		log.Error("crypto.encryption_key is required")
		os.Exit(1)
	}

	codec, err := crypto.New(cfg.Crypto.EncryptionKey)
	if err != nil {
		log.Error("init payload encryption", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Open(cfg.Postgres.DSN)
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	total := 0
	for {
		n, err := encryptBatch(ctx, db, codec, *dryRun)
		if err != nil {
			log.Error("encrypt batch", "error", err, "migrated", total)
			os.Exit(1)
		}
		if n == 0 {
			break
		}
		total += n
		log.Info("batch done", "rows", n, "migrated", total, "dry_run", *dryRun)
		if *dryRun {
			// One batch is enough to prove the query and codec work.
			break
		}
	}
	log.Info("migration complete", "migrated", total, "dry_run", *dryRun)
}

// encryptBatch seals up to batchSize plaintext rows in one transaction.
// Returns the number of rows handled.
func encryptBatch(ctx context.Context, db *sql.DB, codec *crypto.Codec, dryRun bool) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, application_data
		FROM applications
		WHERE application_data NOT LIKE $1
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, crypto.Prefix+"%", batchSize)
	if err != nil {
		return 0, fmt.Errorf("select plaintext rows: %w", err)
	}

	type pending struct {
		id   string
		data string
	}
	var batch []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.data); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan row: %w", err)
		}
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate rows: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if dryRun {
		return len(batch), nil
	}

	for _, p := range batch {
		sealed, err := codec.Encrypt([]byte(p.data))
		if err != nil {
			return 0, fmt.Errorf("encrypt application %s: %w", p.id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE applications SET application_data = $1, updated_at = now() WHERE id = $2`,
			sealed, p.id,
		); err != nil {
			return 0, fmt.Errorf("update application %s: %w", p.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(batch), nil
}
