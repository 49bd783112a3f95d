package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/dbx"
	"github.com/dmitrijs2005/keygate/internal/server/storage/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const pgUniqueViolation = "23505"

// PostgresStore keeps items in a single table with a composite primary key,
// the document in a jsonb column and the version used for the optimistic
// update guard.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &PostgresStore{db: db}

	if err := s.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

// NewPostgresStoreWithDB wires an existing connection, mainly for tests.
// Migrations are not run.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return err
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Get(ctx context.Context, id, sortKey string) (*Item, error) {
	return getItem(ctx, s.db, id, sortKey)
}

func getItem(ctx context.Context, q dbx.DBTX, id, sortKey string) (*Item, error) {
	query :=
		`SELECT doc, version FROM items
		 WHERE id = $1 AND sort_key = $2
		 `

	item := &Item{ID: id, SortKey: sortKey}
	err := q.QueryRowContext(ctx, query, id, sortKey).Scan(&item.Doc, &item.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return item, nil
}

func (s *PostgresStore) List(ctx context.Context, id, sortKeyPrefix string) ([]*Item, error) {
	query :=
		`SELECT sort_key, doc, version FROM items
		 WHERE id = $1 AND sort_key LIKE $2 || '%'
		 ORDER BY sort_key DESC
		 `

	rows, err := s.db.QueryContext(ctx, query, id, sortKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item := &Item{ID: id}
		if err := rows.Scan(&item.SortKey, &item.Doc, &item.Version); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return items, nil
}

func (s *PostgresStore) Create(ctx context.Context, item *Item) error {
	query :=
		`INSERT INTO items (id, sort_key, doc, version)
		 VALUES ($1, $2, $3, 1)
		 `

	_, err := s.db.ExecContext(ctx, query, item.ID, item.SortKey, []byte(item.Doc))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (s *PostgresStore) Update(ctx context.Context, id, sortKey string, update UpdateFunc) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := getItem(ctx, tx, id, sortKey)
		if err != nil {
			return err
		}

		updated := *current
		updated.Doc = append([]byte(nil), current.Doc...)
		if err := update(&updated); err != nil {
			return err
		}

		query :=
			`UPDATE items SET doc = $3, version = version + 1
			 WHERE id = $1 AND sort_key = $2 AND version = $4
			 `

		result, err := tx.ExecContext(ctx, query, id, sortKey, []byte(updated.Doc), current.Version)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if affected == 0 {
			return common.ErrVersionConflict
		}

		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, id, sortKey string) error {
	query :=
		`DELETE FROM items
		 WHERE id = $1 AND sort_key = $2
		 `

	if _, err := s.db.ExecContext(ctx, query, id, sortKey); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
