package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"slotbook/internal/domain"
	"slotbook/internal/store"
)

// Store keeps each day as a JSON string and indexes stored dates in a lexically ordered sorted set.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

func New(rdb redis.UniversalClient, prefix string) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "slotbook"
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) dayKey(date string) string {
	return s.prefix + ":day:" + date
}

func (s *Store) indexKey() string {
	return s.prefix + ":days"
}

func (s *Store) Get(ctx context.Context, date string) (domain.DayDocument, error) {
	raw, err := s.rdb.Get(ctx, s.dayKey(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DayDocument{}, store.ErrNotFound
		}
		return domain.DayDocument{}, err
	}
	return decodeDay(raw)
}

// Update runs fn inside WATCH/MULTI. A write by another client between the read and EXEC aborts the
// transaction and is reported as store.ErrConflict.
func (s *Store) Update(ctx context.Context, date string, fn store.UpdateFunc) error {
	key := s.dayKey(date)

	txf := func(tx *redis.Tx) error {
		day := domain.EmptyDay()
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			day, err = decodeDay(raw)
			if err != nil {
				return err
			}
		case errors.Is(err, redis.Nil):
		default:
			return err
		}

		next, err := fn(day)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next.Normalized())
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: 0, Member: date})
			return nil
		})
		return err
	}

	err := s.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) ListDates(ctx context.Context, start, end string) ([]string, error) {
	dates, err := s.rdb.ZRangeByLex(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "[" + start,
		Max: "[" + end,
	}).Result()
	if err != nil {
		return nil, err
	}
	return dates, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func decodeDay(raw []byte) (domain.DayDocument, error) {
	var day domain.DayDocument
	if err := json.Unmarshal(raw, &day); err != nil {
		return domain.DayDocument{}, fmt.Errorf("decode day document: %w", err)
	}
	return day.Normalized(), nil
}
