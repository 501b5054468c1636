package snapshot

// ZstdCodec compresses payloads with Zstandard, trading some speed for the
// best compression ratio of the available codecs.
//
// Two implementations exist: a pure-Go one (default) and a cgo one backed by
// the reference zstd library, selected by the cgo build tag.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)
