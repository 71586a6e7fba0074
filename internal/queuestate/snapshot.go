package queuestate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one tracked pull request in a queue snapshot. The structure
// is owned by the worker subsystem and carried through unmodified, only
// the updated_at field is interpreted here.
type Entry = json.RawMessage

// Snapshot is the current content of one branch merge-queue.
type Snapshot struct {
	Key     Key
	Entries []Entry
	// UpdatedAt is the most recent update timestamp of all entries,
	// nil if the snapshot is empty.
	UpdatedAt *time.Time
}

// NewSnapshot builds a snapshot and derives its UpdatedAt from the
// entries. Entries without a parseable updated_at field contribute
// nothing to the timestamp.
func NewSnapshot(key Key, entries []Entry) *Snapshot {
	return &Snapshot{
		Key:       key,
		Entries:   entries,
		UpdatedAt: maxUpdatedAt(entries),
	}
}

// DecodeEntries deserializes a decompressed snapshot payload.
func DecodeEntries(payload []byte) ([]Entry, error) {
	var entries []Entry

	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("deserializing snapshot payload failed: %w", err)
	}

	return entries, nil
}

func maxUpdatedAt(entries []Entry) *time.Time {
	var result *time.Time

	for _, entry := range entries {
		var fields struct {
			UpdatedAt time.Time `json:"updated_at"`
		}

		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}

		if fields.UpdatedAt.IsZero() {
			continue
		}

		if result == nil || fields.UpdatedAt.After(*result) {
			updatedAt := fields.UpdatedAt
			result = &updatedAt
		}
	}

	return result
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	entries := s.Entries
	if entries == nil {
		entries = []Entry{}
	}

	return json.Marshal(struct {
		Owner     string     `json:"owner"`
		Repo      string     `json:"repo"`
		Branch    string     `json:"branch"`
		Pulls     []Entry    `json:"pulls"`
		UpdatedAt *time.Time `json:"updated_at"`
	}{
		Owner:     s.Key.Owner,
		Repo:      s.Key.Repo,
		Branch:    s.Key.Branch,
		Pulls:     entries,
		UpdatedAt: s.UpdatedAt,
	})
}
