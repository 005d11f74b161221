package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// GetOne читает одну строку. sql.ErrNoRows превращается в notFound.
// q может быть как *sqlx.DB, так и *sqlx.Tx.
func GetOne[T any](ctx context.Context, q sqlx.QueryerContext, notFound error, query string, args ...interface{}) (*T, error) {
	var entity T
	if err := sqlx.GetContext(ctx, q, &entity, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &entity, nil
}

// GetByID читает строку таблицы по первичному ключу.
func GetByID[T any](ctx context.Context, q sqlx.QueryerContext, table string, id interface{}, notFound error) (*T, error) {
	entity, err := GetOne[T](ctx, q, notFound, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table), id)
	if err != nil && !errors.Is(err, notFound) {
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	return entity, err
}

// GetByField читает строку по значению уникального поля.
func GetByField[T any](ctx context.Context, q sqlx.QueryerContext, table, field string, value interface{}, notFound error) (*T, error) {
	entity, err := GetOne[T](ctx, q, notFound, fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", table, field), value)
	if err != nil && !errors.Is(err, notFound) {
		return nil, fmt.Errorf("get %s by %s: %w", table, field, err)
	}
	return entity, err
}

// LockByID читает строку с блокировкой FOR UPDATE до конца транзакции.
func LockByID[T any](ctx context.Context, tx *sqlx.Tx, table string, id interface{}, notFound error) (*T, error) {
	entity, err := GetOne[T](ctx, tx, notFound, fmt.Sprintf("SELECT * FROM %s WHERE id = $1 FOR UPDATE", table), id)
	if err != nil && !errors.Is(err, notFound) {
		return nil, fmt.Errorf("lock %s: %w", table, err)
	}
	return entity, err
}

// StatusArgs превращает список типизированных статусов в параметр для "status = ANY($n)".
func StatusArgs[S ~string](statuses []S) pq.StringArray {
	out := make(pq.StringArray, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

// WithTransaction выполняет fn в транзакции. Ошибка или паника в fn откатывают её.
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
