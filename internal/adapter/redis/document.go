package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pscheid92/wagate/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Document keeps the whole session array as one JSON string value.
type Document struct {
	rdb *goredis.Client
	key string
}

var _ domain.SessionDocument = (*Document)(nil)

func NewDocument(rdb *goredis.Client, key string) *Document {
	return &Document{rdb: rdb, key: key}
}

// Load returns all records. An absent key is initialized to an empty array.
func (d *Document) Load(ctx context.Context) ([]domain.SessionRecord, error) {
	raw, err := d.rdb.Get(ctx, d.key).Result()
	if errors.Is(err, goredis.Nil) {
		if err := d.rdb.SetNX(ctx, d.key, "[]", 0).Err(); err != nil {
			return nil, fmt.Errorf("failed to initialize sessions key: %w", err)
		}
		return []domain.SessionRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	var records []domain.SessionRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: key %s: %w", domain.ErrMalformedStore, d.key, err)
	}
	if records == nil {
		records = []domain.SessionRecord{}
	}
	return records, nil
}

func (d *Document) Save(ctx context.Context, records []domain.SessionRecord) error {
	if records == nil {
		records = []domain.SessionRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}
	if err := d.rdb.Set(ctx, d.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	return nil
}

func (d *Document) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}
