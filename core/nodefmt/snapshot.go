package nodefmt

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/mod/semver"

	"github.com/opal-lang/nodeio/core/node"
)

// SnapshotVersion is the format version written into every snapshot.
// Readers accept any version with the same major.
const SnapshotVersion = "v1.0.0"

// ErrSnapshotVersion means a snapshot was written by an incompatible format.
var ErrSnapshotVersion = errors.New("incompatible snapshot version")

// snapshot is the envelope around the encoded tree.
type snapshot struct {
	Version string `cbor:"version"`
	Root    any    `cbor:"root"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Canonical (RFC 7049 §3.9) so equal trees encode to equal bytes.
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("nodefmt: CBOR encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("nodefmt: CBOR decoder: %v", err))
	}
}

// MarshalSnapshot encodes v as a self-describing canonical CBOR document.
// Field ids are stored by name, so a snapshot can be read into a different
// intern table.
func MarshalSnapshot(v node.Value, opts ...Option) ([]byte, error) {
	root, err := ToNative(v, opts...)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(snapshot{Version: SnapshotVersion, Root: root})
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a snapshot written by MarshalSnapshot, interning
// field names into the configured table.
func UnmarshalSnapshot(data []byte, opts ...Option) (node.Value, error) {
	var s snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("CBOR decoding failed: %w", err)
	}
	if !semver.IsValid(s.Version) {
		return nil, fmt.Errorf("%w: %q is not a semantic version", ErrSnapshotVersion, s.Version)
	}
	if semver.Major(s.Version) != semver.Major(SnapshotVersion) {
		return nil, fmt.Errorf("%w: got %s, want %s.x", ErrSnapshotVersion, s.Version, semver.Major(SnapshotVersion))
	}
	return FromNative(s.Root, opts...)
}

// Digest returns the BLAKE2b-256 hash of v's canonical CBOR encoding.
// Trees with the same field names and values have the same digest
// regardless of insertion order or intern ids.
func Digest(v node.Value, opts ...Option) ([32]byte, error) {
	root, err := ToNative(v, opts...)
	if err != nil {
		return [32]byte{}, err
	}
	data, err := encMode.Marshal(root)
	if err != nil {
		return [32]byte{}, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return blake2b.Sum256(data), nil
}

// FormatDigest renders a digest as "blake2b:<hex>".
func FormatDigest(sum [32]byte) string {
	return fmt.Sprintf("blake2b:%x", sum)
}
