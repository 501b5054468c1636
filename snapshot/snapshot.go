// Package snapshot captures the fitted state of a stepwise composite and
// serializes it to a compact, checksummed binary payload.
//
// A snapshot records the composite's assembled coefficient vector and
// intercept together with each step's name, scope, and fitted coefficients.
// The encoded form is a small header (magic number, format version,
// compression type, xxHash64 checksum) followed by a JSON payload run
// through the selected compression codec (None, Zstd, S2, or LZ4).
//
// Typical uses are serving a fitted model without refitting and inspecting
// per-step contributions offline:
//
//	snap, _ := snapshot.Capture(est)
//	data, _ := snap.Encode(snapshot.WithCompression(snapshot.CompressionZstd))
//
//	// elsewhere, on a compatibly constructed composite:
//	snap, _ = snapshot.Decode(data)
//	err := snap.Apply(est2)
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/modelkit/stepwise"
	"github.com/modelkit/stepwise/errs"
	"github.com/modelkit/stepwise/internal/hash"
	"github.com/modelkit/stepwise/internal/options"
)

// Format constants. The header is magic (4 bytes), version (1), compression
// type (1), then the xxHash64 checksum (8, little-endian) of the encoded
// payload that follows.
const (
	formatVersion = 1
	headerSize    = 14
)

var magic = [4]byte{'S', 'W', 'S', 'N'}

// StepState records one step's fitted contribution.
type StepState struct {
	Name      string    `json:"name"`
	Scope     []int     `json:"scope"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Snapshot is the fitted state of a stepwise composite.
type Snapshot struct {
	Steps     []StepState `json:"steps"`
	Coef      []float64   `json:"coef"`
	Intercept float64     `json:"intercept"`
}

// encodeConfig holds Encode settings.
type encodeConfig struct {
	compression CompressionType
}

// EncodeOption is a functional option for Snapshot.Encode.
type EncodeOption = options.Option[*encodeConfig]

// WithCompression selects the payload compression codec. The default is
// CompressionNone.
func WithCompression(ct CompressionType) EncodeOption {
	return func(cfg *encodeConfig) error {
		if _, err := newCodec(ct); err != nil {
			return err
		}
		cfg.compression = ct

		return nil
	}
}

// Capture records the fitted state of a composite. The composite must have
// completed a successful Fit.
func Capture(est *stepwise.StepwiseEstimator) (*Snapshot, error) {
	if !est.IsFitted() {
		return nil, errs.ErrNotFitted
	}

	steps := est.Steps()
	scopes := est.Scopes()

	snap := &Snapshot{
		Steps:     make([]StepState, len(steps)),
		Coef:      append([]float64(nil), est.Coef()...),
		Intercept: est.Intercept(),
	}
	for i, step := range steps {
		snap.Steps[i] = StepState{
			Name:      step.Name,
			Scope:     append([]int(nil), scopes[i]...),
			Coef:      append([]float64(nil), step.Estimator.Coef()...),
			Intercept: step.Estimator.Intercept(),
		}
	}

	return snap, nil
}

// Encode serializes the snapshot into a self-describing binary blob.
func (s *Snapshot) Encode(opts ...EncodeOption) ([]byte, error) {
	cfg := &encodeConfig{compression: CompressionNone}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot payload: %w", err)
	}

	codec, err := newCodec(cfg.compression)
	if err != nil {
		return nil, err
	}
	compressed, err := codec.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("compressing snapshot payload: %w", err)
	}

	out := make([]byte, headerSize+len(compressed))
	copy(out[0:4], magic[:])
	out[4] = formatVersion
	out[5] = byte(cfg.compression)
	binary.LittleEndian.PutUint64(out[6:14], hash.Checksum(compressed))
	copy(out[headerSize:], compressed)

	return out, nil
}

// Decode parses an encoded snapshot, verifying the magic number, format
// version, and payload checksum before decompressing.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < headerSize || [4]byte(data[0:4]) != magic {
		return nil, errs.ErrInvalidSnapshotFormat
	}
	if data[4] != formatVersion {
		return nil, fmt.Errorf("%w: %d", errs.ErrUnsupportedSnapshotVersion, data[4])
	}

	codec, err := newCodec(CompressionType(data[5]))
	if err != nil {
		return nil, err
	}

	compressed := data[headerSize:]
	want := binary.LittleEndian.Uint64(data[6:14])
	if got := hash.Checksum(compressed); got != want {
		return nil, fmt.Errorf("%w: want %016x, got %016x", errs.ErrChecksumMismatch, want, got)
	}

	payload, err := codec.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot payload: %w", err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(payload, snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot payload: %w", err)
	}

	return snap, nil
}

// Apply restores the snapshot's assembled coefficients and intercept into a
// composite constructed with the same steps and scopes, so it can serve
// predictions without refitting. Step names and scopes must match the
// snapshot exactly, in order.
func (s *Snapshot) Apply(est *stepwise.StepwiseEstimator) error {
	names := est.StepNames()
	scopes := est.Scopes()
	if len(names) != len(s.Steps) {
		return fmt.Errorf("%w: snapshot has %d steps, composite has %d", errs.ErrSnapshotMismatch, len(s.Steps), len(names))
	}
	for i, step := range s.Steps {
		if names[i] != step.Name {
			return fmt.Errorf("%w: step %d is %q in snapshot, %q in composite", errs.ErrSnapshotMismatch, i, step.Name, names[i])
		}
		if !equalScope(scopes[i], step.Scope) {
			return fmt.Errorf("%w: step %q scope differs", errs.ErrSnapshotMismatch, step.Name)
		}
	}

	if err := est.RestoreFitted(s.Coef, s.Intercept); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrSnapshotMismatch, err)
	}

	return nil
}

func equalScope(a stepwise.Scope, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
