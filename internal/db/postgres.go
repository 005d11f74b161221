package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ignatzorin/studgig-backend/internal/logger"
)

// PoolConfig параметры пула соединений. Нулевые значения заменяются дефолтами.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (p PoolConfig) withDefaults() PoolConfig {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = 50
	}
	if p.MaxIdleConns <= 0 || p.MaxIdleConns > p.MaxOpenConns {
		p.MaxIdleConns = p.MaxOpenConns / 5
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = 5 * time.Minute
	}
	return p
}

// NewPostgres подключается к PostgreSQL и проверяет соединение.
func NewPostgres(ctx context.Context, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	pool = pool.withDefaults()
	conn.SetMaxOpenConns(pool.MaxOpenConns)
	conn.SetMaxIdleConns(pool.MaxIdleConns)
	conn.SetConnMaxLifetime(pool.ConnMaxLifetime)

	return conn, nil
}

// RunMigrations применяет *.sql из каталога в лексикографическом порядке.
// Каждый файл выполняется в своей транзакции вместе с записью в schema_migrations.
func RunMigrations(ctx context.Context, conn *sqlx.DB, migrationsDir string) error {
	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("postgres: не удалось инициализировать таблицу миграций: %w", err)
	}

	var applied []string
	if err := conn.SelectContext(ctx, &applied, `SELECT name FROM schema_migrations`); err != nil {
		return fmt.Errorf("postgres: не удалось прочитать выполненные миграции: %w", err)
	}
	done := make(map[string]struct{}, len(applied))
	for _, name := range applied {
		done[name] = struct{}{}
	}

	pending, err := pendingMigrations(migrationsDir, done)
	if err != nil {
		return err
	}

	for _, name := range pending {
		if err := applyMigration(ctx, conn, filepath.Join(migrationsDir, name), name); err != nil {
			return err
		}
		logger.Log.WithFields(map[string]interface{}{
			"migration": name,
		}).Info("postgres: миграция применена")
	}
	return nil
}

// pendingMigrations возвращает отсортированные имена ещё не применённых файлов.
func pendingMigrations(dir string, done map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось прочитать каталог миграций: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if _, ok := done[name]; ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func applyMigration(ctx context.Context, conn *sqlx.DB, path, name string) error {
	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("postgres: не удалось прочитать миграцию %s: %w", path, err)
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: не удалось начать транзакцию для миграции %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("postgres: не удалось выполнить миграцию %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("postgres: не удалось отметить миграцию %s: %w", name, err)
	}
	return tx.Commit()
}
