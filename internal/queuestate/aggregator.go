package queuestate

import (
	"context"

	"go.uber.org/zap"

	"github.com/mergefront/mergefront/internal/logfields"
)

// SnapshotReader is implemented by Store.
type SnapshotReader interface {
	Keys(ctx context.Context) ([]Key, error)
	Snapshot(ctx context.Context, key Key) (*Snapshot, error)
}

// Aggregator produces a global view over all tracked merge queues.
type Aggregator struct {
	reader SnapshotReader
	logger *zap.Logger
}

func NewAggregator(reader SnapshotReader) *Aggregator {
	return &Aggregator{
		reader: reader,
		logger: zap.L().Named(loggerName).Named("aggregator"),
	}
}

// GlobalStatus returns one snapshot per queue key currently present in
// the store. The order of the result is unspecified.
//
// A snapshot that can not be read or decoded degrades to an empty
// snapshot instead of failing the whole aggregation, many clients poll
// this continuously and a single corrupt key must not blind all of
// them.
func (a *Aggregator) GlobalStatus(ctx context.Context) ([]*Snapshot, error) {
	keys, err := a.reader.Keys(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*Snapshot, 0, len(keys))

	for _, key := range keys {
		snapshot, err := a.reader.Snapshot(ctx, key)
		if err != nil {
			a.logger.Warn(
				"reading snapshot failed, degrading to an empty snapshot",
				logfields.Event("queuestate_snapshot_unreadable"),
				logfields.QueueKey(key.String()),
				zap.Error(err),
			)

			metrics.UnreadableSnapshotsInc()
			snapshot = NewSnapshot(key, nil)
		}

		result = append(result, snapshot)
	}

	return result, nil
}
