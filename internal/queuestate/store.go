package queuestate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
)

const loggerName = "queuestate"

// Store provides read access to the queue snapshots that the worker
// subsystem persists in redis. Snapshots are written exclusively by the
// worker, an absent key is a normal state and read as an empty
// snapshot.
type Store struct {
	clt    *redis.Client
	logger *zap.Logger
}

func NewStore(clt *redis.Client) *Store {
	return &Store{
		clt:    clt,
		logger: zap.L().Named(loggerName),
	}
}

// Raw returns the decompressed serialized entry sequence stored for
// key, or nil if nothing is stored.
func (s *Store) Raw(ctx context.Context, key Key) ([]byte, error) {
	compressed, err := s.clt.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading key %q failed: %w", key, err)
	}

	payload, err := Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("decoding stored snapshot %q failed: %w", key, err)
	}

	return payload, nil
}

// Snapshot reads and decodes the snapshot stored for key. An absent
// key yields an empty snapshot.
func (s *Store) Snapshot(ctx context.Context, key Key) (*Snapshot, error) {
	payload, err := s.Raw(ctx, key)
	if err != nil {
		return nil, err
	}

	if payload == nil {
		return NewSnapshot(key, nil), nil
	}

	entries, err := DecodeEntries(payload)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", key, err)
	}

	return NewSnapshot(key, entries), nil
}

// Keys enumerates all queue keys currently present in the store.
func (s *Store) Keys(ctx context.Context) ([]Key, error) {
	var result []Key

	iter := s.clt.Scan(ctx, 0, KeyPattern, 0).Iterator()
	for iter.Next(ctx) {
		key, err := ParseKey(iter.Val())
		if err != nil {
			s.logger.Warn(
				"ignoring store key that does not decode as a queue key",
				logfields.Event("queuestate_invalid_key"),
				logfields.QueueKey(iter.Val()),
				zap.Error(err),
			)
			continue
		}

		result = append(result, key)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("enumerating queue keys failed: %w", err)
	}

	return result, nil
}
