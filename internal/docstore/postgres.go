package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection  text        NOT NULL,
	id          uuid        NOT NULL,
	owner_id    text        NOT NULL DEFAULT '',
	data        jsonb       NOT NULL DEFAULT '{}'::jsonb,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_owner_idx ON documents (collection, owner_id);
`

// Postgres stores documents as JSONB rows and publishes change signals over
// Redis pub/sub. The Redis client is optional: without it, writes still work
// and Watch only ever delivers its initial signal.
type Postgres struct {
	pool   *pgxpool.Pool
	redis  *redis.Client
	logger *slog.Logger
}

func NewPostgres(pool *pgxpool.Pool, redisClient *redis.Client, log *slog.Logger) *Postgres {
	if log == nil {
		log = slog.Default()
	}
	return &Postgres{
		pool:   pool,
		redis:  redisClient,
		logger: log.With(slog.String("component", "docstore")),
	}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Postgres) Insert(ctx context.Context, collection, ownerID string, data map[string]interface{}) (Document, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return Document{}, err
	}
	id := uuid.NewString()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO documents (collection, id, owner_id, data)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, owner_id, data, created_at, updated_at`,
		collection, id, ownerID, payload)
	doc, err := scanDocument(row)
	if err != nil {
		return Document{}, err
	}
	s.notify(ctx, collection, doc.OwnerID)
	return doc, nil
}

func (s *Postgres) Update(ctx context.Context, collection, id string, patch map[string]interface{}) (Document, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return Document{}, err
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE documents
		 SET data = data || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2
		 RETURNING id, owner_id, data, created_at, updated_at`,
		collection, id, payload)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	s.notify(ctx, collection, doc.OwnerID)
	return doc, nil
}

func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	var ownerID string
	err := s.pool.QueryRow(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2 RETURNING owner_id`,
		collection, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.notify(ctx, collection, ownerID)
	return nil
}

func (s *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, data, created_at, updated_at
		 FROM documents WHERE collection = $1 AND id = $2`,
		collection, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (s *Postgres) Find(ctx context.Context, q Query) ([]Document, error) {
	sql := `SELECT id, owner_id, data, created_at, updated_at FROM documents WHERE collection = $1`
	args := []interface{}{q.Collection}
	if q.OwnerID != "" {
		args = append(args, q.OwnerID)
		sql += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	for _, f := range q.Filters {
		args = append(args, f.Field, f.Value)
		sql += fmt.Sprintf(" AND data->>($%d::text) = $%d", len(args)-1, len(args))
	}
	if q.OrderBy.Field != "" {
		direction := "ASC"
		if q.OrderBy.Descending {
			direction = "DESC"
		}
		switch q.OrderBy.Field {
		case "createdAt":
			sql += " ORDER BY created_at " + direction
		case "updatedAt":
			sql += " ORDER BY updated_at " + direction
		default:
			args = append(args, q.OrderBy.Field)
			sql += fmt.Sprintf(" ORDER BY data->>($%d::text) %s", len(args), direction)
		}
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Postgres) Watch(ctx context.Context, collection, ownerID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	if s.redis == nil {
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch, nil
	}
	sub := s.redis.Subscribe(ctx, watchChannel(collection, ownerID))
	go func() {
		defer close(ch)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
					// a signal is already pending; the consumer re-reads
					// the full set anyway
				}
			}
		}
	}()
	return ch, nil
}

func (s *Postgres) notify(ctx context.Context, collection, ownerID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Publish(ctx, watchChannel(collection, ownerID), "1").Err(); err != nil {
		s.logger.Warn("publish change signal failed",
			slog.String("collection", collection),
			slog.Any("error", err))
	}
}

func watchChannel(collection, ownerID string) string {
	return "docstore:" + collection + ":" + ownerID
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		doc       Document
		payload   []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&doc.ID, &doc.OwnerID, &payload, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(payload, &doc.Data); err != nil {
		return Document{}, err
	}
	doc.CreatedAt = createdAt.UTC()
	doc.UpdatedAt = updatedAt.UTC()
	return doc, nil
}
