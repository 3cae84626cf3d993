// Length-prefixed block compression for snapshot files (§4.3).
//
// Each file is: [4-byte little-endian uncompressed size][zstd
// compressed payload][8-byte blake2b checksum of the compressed
// payload]. This mirrors folio's compress.go singleton-encoder
// pattern (construction is expensive; reuse across calls) and its
// SpeedFastest choice — compression runs on every Save, decompression
// only on the comparatively rare Restore, so encode speed is
// prioritised over ratio.
package alexdb

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

const checksumSize = 8

// frame compresses data and wraps it in the on-disk envelope.
func frame(data []byte) []byte {
	compressed := zstdEncoder.EncodeAll(data, nil)
	sum := checksum(compressed)

	out := make([]byte, 4+len(compressed)+checksumSize)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(data)))
	copy(out[4:], compressed)
	copy(out[4+len(compressed):], sum[:])
	return out
}

// unframe reverses frame, verifying the checksum before decompressing.
func unframe(raw []byte) ([]byte, error) {
	if len(raw) < 4+checksumSize {
		return nil, fmt.Errorf("%w: truncated envelope (%d bytes)", ErrSnapshotCorrupt, len(raw))
	}

	uncompressedSize := binary.LittleEndian.Uint32(raw[:4])
	compressed := raw[4 : len(raw)-checksumSize]
	wantSum := raw[len(raw)-checksumSize:]

	gotSum := checksum(compressed)
	if string(gotSum[:]) != string(wantSum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrSnapshotCorrupt)
	}

	data, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrSnapshotCorrupt, err)
	}
	return data, nil
}

// checksum returns a blake2b-64 digest, the same 8-byte construction
// folio's hash.go uses for its AlgBlake2b id variant, repurposed here
// for corruption detection instead of content addressing.
func checksum(data []byte) [checksumSize]byte {
	h, _ := blake2b.New(checksumSize, nil)
	h.Write(data)
	var out [checksumSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
