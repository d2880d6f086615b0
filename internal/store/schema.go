package store

import (
	"context"
	"fmt"
)

// schemaStatements create the registry table when it does not exist. The
// layout follows the custom_emojis table of Mastodon-compatible servers,
// with the image either inline (image_data) or in object storage
// (image_storage_key).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS custom_emojis (
		id                 bigserial PRIMARY KEY,
		shortcode          text        NOT NULL,
		domain             text,
		image_content_type text        NOT NULL,
		image_file_size    integer     NOT NULL,
		image_width        integer     NOT NULL DEFAULT 0,
		image_height       integer     NOT NULL DEFAULT 0,
		image_animated     boolean     NOT NULL DEFAULT false,
		image_frames       integer     NOT NULL DEFAULT 1,
		image_data         bytea,
		image_storage_key  text,
		visible_in_picker  boolean     NOT NULL DEFAULT true,
		disabled           boolean     NOT NULL DEFAULT false,
		created_at         timestamptz NOT NULL,
		updated_at         timestamptz NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS index_custom_emojis_on_shortcode_and_domain
		ON custom_emojis (shortcode, COALESCE(domain, ''))`,
}

// EnsureSchema creates the custom_emojis table and its unique key index.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
