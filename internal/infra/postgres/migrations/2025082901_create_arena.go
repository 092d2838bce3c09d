package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_arena.sql
var createArenaSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createArenaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS user_achievements;
				DROP TABLE IF EXISTS user_progress;
				DROP TABLE IF EXISTS arena_sessions;
				DROP TABLE IF EXISTS challenges`)
			return err
		},
	)
}
