package queuestate

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Stored snapshot values are a single lz4 block, prefixed with the
// uncompressed payload size as a 4 byte little-endian integer. This is
// the format the worker subsystem writes.

// maxUncompressedSize bounds the size prefix of a stored value. A
// snapshot holds the open pull requests of one branch, 64MiB is far
// beyond anything legitimate.
const maxUncompressedSize = 64 << 20

const sizePrefixLen = 4

// Compress encodes data as a size-prefixed lz4 block.
func Compress(data []byte) ([]byte, error) {
	if len(data) > maxUncompressedSize {
		return nil, fmt.Errorf("payload is %d bytes, exceeds the %d byte limit", len(data), maxUncompressedSize)
	}

	result := make([]byte, sizePrefixLen+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(result, uint32(len(data)))

	written, err := lz4.CompressBlock(data, result[sizePrefixLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}

	if written == 0 {
		// incompressible input, CompressBlock stored nothing
		result = append(result[:sizePrefixLen], data...)
		return result, nil
	}

	return result[:sizePrefixLen+written], nil
}

// Decompress decodes a size-prefixed lz4 block.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < sizePrefixLen {
		return nil, fmt.Errorf("compressed payload is %d bytes, shorter then the size prefix", len(data))
	}

	uncompressedSize := binary.LittleEndian.Uint32(data)
	if uncompressedSize > maxUncompressedSize {
		return nil, fmt.Errorf("size prefix declares %d bytes, exceeds the %d byte limit", uncompressedSize, maxUncompressedSize)
	}

	block := data[sizePrefixLen:]
	if uncompressedSize == uint32(len(block)) {
		// stored uncompressed, see Compress()
		return block, nil
	}

	result := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(block, result)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}

	if read != int(uncompressedSize) {
		return nil, fmt.Errorf("decompressed to %d bytes, size prefix declared %d", read, uncompressedSize)
	}

	return result, nil
}
