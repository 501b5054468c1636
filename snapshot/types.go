package snapshot

// CompressionType identifies the compression applied to a snapshot payload.
type CompressionType uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone CompressionType = 0x1
	// CompressionZstd compresses the payload with Zstandard.
	CompressionZstd CompressionType = 0x2
	// CompressionS2 compresses the payload with S2.
	CompressionS2 CompressionType = 0x3
	// CompressionLZ4 compresses the payload with LZ4.
	CompressionLZ4 CompressionType = 0x4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
