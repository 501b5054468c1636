//go:build cgo

package snapshot

import (
	"fmt"

	"github.com/valyala/gozstd"
)

// Compress compresses the payload with the reference zstd library.
func (ZstdCodec) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 3), nil
}

// Decompress decompresses a Zstandard payload with the reference zstd
// library.
func (ZstdCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decompressed, err := gozstd.Decompress(nil, data)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return decompressed, nil
}
