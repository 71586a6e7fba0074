package queuestate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundtrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"number": 1, "updated_at": "2017-06-12T09:00:00Z"},`), 100)

	compressed, err := Compress(payload)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(payload))

	decompressed, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, decompressed)
}

func TestCompressRoundtripIncompressible(t *testing.T) {
	// too short and too random for lz4 to find matches
	payload := []byte{0x01, 0xfe, 0x42, 0x99, 0x07}

	compressed, err := Compress(payload)
	require.NoError(t, err)

	decompressed, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, decompressed)
}

func TestDecompressRejectsTruncatedValue(t *testing.T) {
	_, err := Decompress([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestDecompressRejectsCorruptBlock(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 64)

	compressed, err := Compress(payload)
	require.NoError(t, err)

	// cut the block in half, the declared uncompressed size can not
	// be reached anymore
	truncated := compressed[:sizePrefixLen+(len(compressed)-sizePrefixLen)/2]

	_, err = Decompress(truncated)
	assert.Error(t, err)
}

func TestDecompressRejectsOversizedPrefix(t *testing.T) {
	_, err := Decompress([]byte{0xff, 0xff, 0xff, 0xff, 0x00})
	assert.Error(t, err)
}

func TestDecompressIsDeterministic(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"updated_at": "2017-06-12T09:00:00Z"}`), 20)

	compressed, err := Compress(payload)
	require.NoError(t, err)

	first, err := Decompress(compressed)
	require.NoError(t, err)

	second, err := Decompress(compressed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
