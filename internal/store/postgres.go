// Package store persists the emoji registry in PostgreSQL.
//
// Records are keyed by (shortcode, domain) with a NULL domain for the local
// instance. Upsert deletes any prior row for the key and inserts the new
// one inside a single transaction, so readers see either the old record or
// the new one.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/logging"
)

// ErrConflict is returned when another writer inserted the same key between
// our delete and insert.
var ErrConflict = errors.New("emoji key written concurrently")

// SQLSTATE codes handled by the store.
const (
	uniqueViolation = "23505"
	undefinedTable  = "42P01"
)

// ObjectStore holds image blobs outside the database.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// DB is the subset of pgxpool.Pool used by Postgres.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// Postgres implements core.EmojiStore.
type Postgres struct {
	db        DB
	objects   ObjectStore
	keyPrefix string
}

var _ core.EmojiStore = (*Postgres)(nil)

// Option configures Postgres.
type Option func(*Postgres)

// WithObjectStore stores image bytes in objects under keyPrefix instead of
// inline in the row.
func WithObjectStore(objects ObjectStore, keyPrefix string) Option {
	return func(p *Postgres) {
		p.objects = objects
		p.keyPrefix = keyPrefix
	}
}

// NewPostgres creates a store on db (usually a *pgxpool.Pool).
func NewPostgres(db DB, opts ...Option) *Postgres {
	p := &Postgres{db: db}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Find returns the record for key, or (nil, nil) when absent. A registry
// whose table was never created holds no records, so a dry run against it
// still fetches and transforms every candidate. Image.Data is nil when the
// bytes live in object storage.
func (p *Postgres) Find(ctx context.Context, key core.EmojiKey) (*core.EmojiRecord, error) {
	const q = `SELECT id, shortcode, domain, image_content_type, image_width, image_height,
		image_animated, image_frames, image_data, visible_in_picker, created_at, updated_at
		FROM custom_emojis
		WHERE shortcode = $1 AND domain IS NOT DISTINCT FROM $2`

	var (
		rec    core.EmojiRecord
		domain pgtype.Text
	)
	err := p.db.QueryRow(ctx, q, key.Shortcode, toPgText(key.Domain)).Scan(
		&rec.ID,
		&rec.Key.Shortcode,
		&domain,
		&rec.Image.ContentType,
		&rec.Image.Width,
		&rec.Image.Height,
		&rec.Image.Animated,
		&rec.Image.Frames,
		&rec.Image.Data,
		&rec.VisibleInPicker,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) || isUndefinedTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	rec.Key.Domain = domain.String
	return &rec, nil
}

// Upsert replaces the record for rec.Key in one transaction. With an object
// store the new blob is written first; the blob of the replaced record is
// removed only after commit, and a failure to remove it is logged, not
// returned.
func (p *Postgres) Upsert(ctx context.Context, rec core.EmojiRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	var (
		inline     []byte
		storageKey pgtype.Text
	)
	if p.objects != nil {
		k := p.objectKey(rec.Key, rec.Image.ContentType)
		if err := p.objects.Put(ctx, k, rec.Image.Data, rec.Image.ContentType); err != nil {
			return fmt.Errorf("store image %s: %w", rec.Key, err)
		}
		storageKey = toPgText(k)
	} else {
		inline = rec.Image.Data
	}

	oldKey, err := p.replace(ctx, rec, inline, storageKey)
	if err != nil {
		if storageKey.Valid {
			p.removeObject(ctx, storageKey.String)
		}
		return err
	}
	if oldKey != "" {
		p.removeObject(ctx, oldKey)
	}
	return nil
}

// replace runs delete-then-insert and returns the storage key of the
// deleted row, if any.
func (p *Postgres) replace(ctx context.Context, rec core.EmojiRecord, inline []byte, storageKey pgtype.Text) (string, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	domain := toPgText(rec.Key.Domain)

	var oldKey pgtype.Text
	err = tx.QueryRow(ctx,
		`DELETE FROM custom_emojis
		WHERE shortcode = $1 AND domain IS NOT DISTINCT FROM $2
		RETURNING image_storage_key`,
		rec.Key.Shortcode, domain,
	).Scan(&oldKey)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("delete %s: %w", rec.Key, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO custom_emojis (
			shortcode, domain, image_content_type, image_file_size,
			image_width, image_height, image_animated, image_frames,
			image_data, image_storage_key, visible_in_picker, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.Key.Shortcode,
		domain,
		rec.Image.ContentType,
		len(rec.Image.Data),
		rec.Image.Width,
		rec.Image.Height,
		rec.Image.Animated,
		max(rec.Image.Frames, 1),
		inline,
		storageKey,
		rec.VisibleInPicker,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("insert %s: %w", rec.Key, ErrConflict)
		}
		return "", fmt.Errorf("insert %s: %w", rec.Key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return oldKey.String, nil
}

// Delete removes the record for key. Deleting an absent key is not an error.
func (p *Postgres) Delete(ctx context.Context, key core.EmojiKey) error {
	var oldKey pgtype.Text
	err := p.db.QueryRow(ctx,
		`DELETE FROM custom_emojis
		WHERE shortcode = $1 AND domain IS NOT DISTINCT FROM $2
		RETURNING image_storage_key`,
		key.Shortcode, toPgText(key.Domain),
	).Scan(&oldKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if oldKey.Valid {
		p.removeObject(ctx, oldKey.String)
	}
	return nil
}

// Count returns the number of local emoji in the registry.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.QueryRow(ctx, `SELECT count(*) FROM custom_emojis WHERE domain IS NULL`).Scan(&n)
	if isUndefinedTable(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count emojis: %w", err)
	}
	return n, nil
}

func (p *Postgres) removeObject(ctx context.Context, key string) {
	if p.objects == nil || key == "" {
		return
	}
	if err := p.objects.Delete(ctx, key); err != nil {
		logging.FromContext(ctx).Warn("failed to remove stored image",
			"storage_key", key,
			"error", err,
		)
	}
}

// objectKey builds a unique object name so a replacement never overwrites
// the blob still referenced by the committed row.
func (p *Postgres) objectKey(key core.EmojiKey, contentType string) string {
	domain := key.Domain
	if domain == "" {
		domain = "local"
	}
	name := key.Shortcode + "-" + uuid.NewString() + extensionFor(contentType)
	return path.Join(strings.Trim(p.keyPrefix, "/"), "custom_emojis", domain, name)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png", "image/apng":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// toPgText maps the empty string to SQL NULL.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
