package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Seed populates an empty development database with a private sample theme
// so the admin API has something to show. It does nothing once any theme
// exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM themes").Scan(&count); err != nil {
		return fmt.Errorf("seed check themes: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRow(`
		INSERT INTO themes (name, description, visibility, audiences, rollout_salt, created_by)
		VALUES ($1, $2, 'private', '["all"]', $3, '00000000-0000-0000-0000-000000000000')
		RETURNING id
	`, "Sample theme", "Draft created by the development seed.", "sample").Scan(&id)
	if err != nil {
		return fmt.Errorf("seed insert theme: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO theme_audit (theme_id, actor_id, action, payload)
		VALUES ($1, '00000000-0000-0000-0000-000000000000', 'created', '{"source":"seed"}')
	`, id); err != nil {
		return fmt.Errorf("seed insert audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with sample theme", "theme_id", id)
	return nil
}
