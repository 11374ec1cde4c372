package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dineflow/api/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// document is one row of the documents table.
type document struct {
	collection string
	id         string
	outletID   string
	userID     string
	email      string
	status     string
	createdAt  time.Time
	body       interface{}
}

// queries runs statements against a pool or a transaction.
type queries struct {
	db DBTX
}

func (q *queries) upsert(ctx context.Context, d document) error {
	body, err := json.Marshal(d.body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.collection, err)
	}
	_, err = q.db.Exec(ctx,
		`INSERT INTO documents (collection, id, outlet_id, user_id, email, status, created_at, body)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (collection, id) DO UPDATE
		 SET outlet_id = EXCLUDED.outlet_id,
		     user_id = EXCLUDED.user_id,
		     email = EXCLUDED.email,
		     status = EXCLUDED.status,
		     body = EXCLUDED.body,
		     updated_at = now()`,
		d.collection, d.id, d.outletID, d.userID, d.email, d.status, createdAt(d.createdAt), body,
	)
	return mapWriteErr(err)
}

func (q *queries) insert(ctx context.Context, d document) error {
	body, err := json.Marshal(d.body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.collection, err)
	}
	_, err = q.db.Exec(ctx,
		`INSERT INTO documents (collection, id, outlet_id, user_id, email, status, created_at, body)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.collection, d.id, d.outletID, d.userID, d.email, d.status, createdAt(d.createdAt), body,
	)
	return mapWriteErr(err)
}

func (q *queries) delete(ctx context.Context, collection, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// getAs loads one document. forUpdate locks the row for the enclosing transaction.
func getAs[T any](ctx context.Context, db DBTX, collection, id string, forUpdate bool) (T, error) {
	var v T
	sql := `SELECT body FROM documents WHERE collection = $1 AND id = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var body []byte
	err := db.QueryRow(ctx, sql, collection, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return v, store.ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("get %s: %w", collection, err)
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", collection, err)
	}
	return v, nil
}

func listAs[T any](ctx context.Context, db DBTX, sql string, args ...interface{}) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
