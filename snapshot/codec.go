package snapshot

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/modelkit/stepwise/errs"
)

// Codec compresses and decompresses snapshot payloads.
//
// Compressing codecs return newly allocated slices owned by the caller;
// pass-through codecs may return a slice sharing the input's backing array.
// Input slices are never modified. Implementations may reuse internal
// buffers across calls.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// newCodec returns the codec for a compression type.
func newCodec(ct CompressionType) (Codec, error) {
	switch ct {
	case CompressionNone:
		return NoOpCodec{}, nil
	case CompressionZstd:
		return ZstdCodec{}, nil
	case CompressionS2:
		return S2Codec{}, nil
	case CompressionLZ4:
		return LZ4Codec{}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", errs.ErrUnknownCompression, uint8(ct))
	}
}

// NoOpCodec passes payloads through unmodified. Useful as a baseline and
// for small models where compression overhead outweighs its benefit.
type NoOpCodec struct{}

var _ Codec = (*NoOpCodec)(nil)

// Compress returns the input unchanged. The returned slice shares the
// input's backing array.
func (NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns the input unchanged. The returned slice shares the
// input's backing array.
func (NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

// S2Codec compresses payloads with S2, a Snappy-compatible format tuned for
// speed over ratio.
type S2Codec struct{}

var _ Codec = (*S2Codec)(nil)

// Compress compresses the payload with S2.
func (S2Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress decompresses an S2 payload.
func (S2Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
