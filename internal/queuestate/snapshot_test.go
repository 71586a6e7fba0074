package queuestate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T, owner, repo, branch string) Key {
	t.Helper()

	key, err := NewKey(owner, repo, branch)
	require.NoError(t, err)

	return key
}

func TestSnapshotUpdatedAtIsMaxEntryTimestamp(t *testing.T) {
	entries, err := DecodeEntries([]byte(`[
		{"number": 1, "updated_at": "2017-06-12T09:00:00Z"},
		{"number": 2, "updated_at": "2017-06-14T17:30:00Z"},
		{"number": 3, "updated_at": "2017-06-13T12:00:00Z"}
	]`))
	require.NoError(t, err)

	snapshot := NewSnapshot(mustKey(t, "acme", "widgets", "main"), entries)

	require.NotNil(t, snapshot.UpdatedAt)
	assert.Equal(t, time.Date(2017, 6, 14, 17, 30, 0, 0, time.UTC), snapshot.UpdatedAt.UTC())
}

func TestEmptySnapshotHasNoUpdatedAt(t *testing.T) {
	snapshot := NewSnapshot(mustKey(t, "acme", "widgets", "main"), nil)

	assert.Nil(t, snapshot.UpdatedAt)
	assert.Empty(t, snapshot.Entries)
}

func TestEntriesWithoutTimestampAreTolerated(t *testing.T) {
	entries, err := DecodeEntries([]byte(`[
		{"number": 1},
		{"number": 2, "updated_at": "2017-06-12T09:00:00Z"},
		{"number": 3, "updated_at": "not a timestamp"}
	]`))
	require.NoError(t, err)

	snapshot := NewSnapshot(mustKey(t, "acme", "widgets", "main"), entries)

	require.NotNil(t, snapshot.UpdatedAt)
	assert.Equal(t, time.Date(2017, 6, 12, 9, 0, 0, 0, time.UTC), snapshot.UpdatedAt.UTC())
}

func TestDecodeEntriesRejectsInvalidJSON(t *testing.T) {
	_, err := DecodeEntries([]byte(`{not json`))
	assert.Error(t, err)
}

func TestSnapshotJSONShape(t *testing.T) {
	entries, err := DecodeEntries([]byte(`[{"number": 7, "updated_at": "2017-06-12T09:00:00Z"}]`))
	require.NoError(t, err)

	snapshot := NewSnapshot(mustKey(t, "acme", "widgets", "feature/x"), entries)

	marshalled, err := json.Marshal(snapshot)
	require.NoError(t, err)

	var decoded struct {
		Owner     string            `json:"owner"`
		Repo      string            `json:"repo"`
		Branch    string            `json:"branch"`
		Pulls     []json.RawMessage `json:"pulls"`
		UpdatedAt *time.Time        `json:"updated_at"`
	}
	require.NoError(t, json.Unmarshal(marshalled, &decoded))

	assert.Equal(t, "acme", decoded.Owner)
	assert.Equal(t, "widgets", decoded.Repo)
	assert.Equal(t, "feature/x", decoded.Branch)
	assert.Len(t, decoded.Pulls, 1)
	require.NotNil(t, decoded.UpdatedAt)
}

func TestEmptySnapshotJSONHasNullTimestampAndEmptyPulls(t *testing.T) {
	snapshot := NewSnapshot(mustKey(t, "acme", "widgets", "main"), nil)

	marshalled, err := json.Marshal(snapshot)
	require.NoError(t, err)

	assert.JSONEq(
		t,
		`{"owner": "acme", "repo": "widgets", "branch": "main", "pulls": [], "updated_at": null}`,
		string(marshalled),
	)
}
