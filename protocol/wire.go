package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Wire format: every message is a sequence of frames, each
//
//	[version byte | type byte | u32 payload length | payload]
//
// terminated by a digest frame whose payload is the SHA3-256 of all
// preceding bytes. Payloads are opaque backend blobs; nothing plaintext
// and no secret material ever appears on the wire.
const (
	wireVersion byte = 1

	frameEvaluationKey   byte = 0x01
	frameCiphertextArray byte = 0x02
	frameVerdicts        byte = 0x03
	frameDigest          byte = 0x04

	// maxFramePayload bounds a single frame; evaluation keys dominate.
	maxFramePayload = 1 << 30

	// maxArrayEntry bounds one serialized ciphertext inside an array.
	maxArrayEntry = 1 << 26
)

func appendFrame(dst []byte, typ byte, payload []byte) ([]byte, error) {
	if len(payload) > maxFramePayload {
		return nil, fmt.Errorf("frame payload %d exceeds limit", len(payload))
	}
	dst = append(dst, wireVersion, typ)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

func appendDigestFrame(dst []byte) ([]byte, error) {
	sum := sha3.Sum256(dst)
	return appendFrame(dst, frameDigest, sum[:])
}

// frameReader consumes frames from a received message, tracking how many
// bytes the trailing digest must cover.
type frameReader struct {
	data []byte
	off  int
}

func (r *frameReader) next(wantType byte) ([]byte, error) {
	if len(r.data)-r.off < 6 {
		return nil, fmt.Errorf("%w: truncated frame header at offset %d", ErrDeserialization, r.off)
	}
	version, typ := r.data[r.off], r.data[r.off+1]
	if version != wireVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrDeserialization, version, wireVersion)
	}
	if typ != wantType {
		return nil, fmt.Errorf("%w: frame type 0x%02x, want 0x%02x", ErrDeserialization, typ, wantType)
	}
	n := int(binary.BigEndian.Uint32(r.data[r.off+2 : r.off+6]))
	if n > maxFramePayload {
		return nil, fmt.Errorf("%w: frame payload %d exceeds limit", ErrDeserialization, n)
	}
	start := r.off + 6
	if len(r.data)-start < n {
		return nil, fmt.Errorf("%w: frame payload truncated, want %d bytes, have %d",
			ErrDeserialization, n, len(r.data)-start)
	}
	r.off = start + n
	return r.data[start : start+n], nil
}

// verifyDigest reads the trailing digest frame and checks it against the
// bytes consumed so far. It also rejects trailing garbage.
func (r *frameReader) verifyDigest() error {
	covered := r.off
	digest, err := r.next(frameDigest)
	if err != nil {
		return err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrDeserialization, len(r.data)-r.off)
	}
	sum := sha3.Sum256(r.data[:covered])
	if !bytes.Equal(digest, sum[:]) {
		return fmt.Errorf("%w: integrity digest mismatch", ErrDeserialization)
	}
	return nil
}

// encodeCiphertextArray packs shape plus serialized ciphertexts in
// canonical order into a CiphertextArrayBlob payload.
func encodeCiphertextArray(shape Shape, cts [][]byte) ([]byte, error) {
	payload := binary.BigEndian.AppendUint32(nil, uint32(shape.Dimensions))
	payload = binary.BigEndian.AppendUint32(payload, uint32(shape.Timesteps))
	for _, ct := range cts {
		if len(ct) > maxArrayEntry {
			return nil, fmt.Errorf("ciphertext blob %d exceeds limit", len(ct))
		}
		payload = binary.BigEndian.AppendUint32(payload, uint32(len(ct)))
		payload = append(payload, ct...)
	}
	return payload, nil
}

func decodeCiphertextArray(payload []byte) (Shape, [][]byte, error) {
	if len(payload) < 8 {
		return Shape{}, nil, fmt.Errorf("%w: ciphertext array header truncated", ErrDeserialization)
	}
	shape := Shape{
		Dimensions: int(binary.BigEndian.Uint32(payload)),
		Timesteps:  int(binary.BigEndian.Uint32(payload[4:])),
	}
	if shape.Dimensions <= 0 || shape.Timesteps <= 0 {
		return Shape{}, nil, fmt.Errorf("%w: ciphertext array shape %s", ErrDeserialization, shape)
	}
	// Every entry costs at least its length prefix, so a declared count the
	// payload cannot hold is rejected before any allocation. The bound also
	// keeps the product below overflow.
	limit := (len(payload) - 8) / 4
	if shape.Dimensions > limit || shape.Timesteps > limit ||
		shape.Dimensions*shape.Timesteps > limit {
		return Shape{}, nil, fmt.Errorf("%w: shape %s exceeds payload of %d bytes",
			ErrDeserialization, shape, len(payload))
	}
	want := shape.Dimensions * shape.Timesteps
	cts, err := decodeEntries(payload[8:], want)
	if err != nil {
		return Shape{}, nil, err
	}
	return shape, cts, nil
}

// encodeVerdictArray packs per-timestep encrypted booleans into a
// VerdictBlob payload.
func encodeVerdictArray(bits [][]byte) ([]byte, error) {
	payload := binary.BigEndian.AppendUint32(nil, uint32(len(bits)))
	for _, b := range bits {
		if len(b) > maxArrayEntry {
			return nil, fmt.Errorf("verdict blob %d exceeds limit", len(b))
		}
		payload = binary.BigEndian.AppendUint32(payload, uint32(len(b)))
		payload = append(payload, b...)
	}
	return payload, nil
}

func decodeVerdictArray(payload []byte) ([][]byte, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: verdict header truncated", ErrDeserialization)
	}
	steps := int(binary.BigEndian.Uint32(payload))
	if steps <= 0 {
		return nil, fmt.Errorf("%w: verdict count %d", ErrDeserialization, steps)
	}
	if steps > (len(payload)-4)/4 {
		return nil, fmt.Errorf("%w: %d verdicts exceed payload of %d bytes",
			ErrDeserialization, steps, len(payload))
	}
	return decodeEntries(payload[4:], steps)
}

func decodeEntries(data []byte, want int) ([][]byte, error) {
	entries := make([][]byte, 0, want)
	off := 0
	for i := 0; i < want; i++ {
		if len(data)-off < 4 {
			return nil, fmt.Errorf("%w: entry %d length truncated", ErrDeserialization, i)
		}
		n := int(binary.BigEndian.Uint32(data[off:]))
		if n > maxArrayEntry {
			return nil, fmt.Errorf("%w: entry %d size %d exceeds limit", ErrDeserialization, i, n)
		}
		off += 4
		if len(data)-off < n {
			return nil, fmt.Errorf("%w: entry %d truncated, want %d bytes, have %d",
				ErrDeserialization, i, n, len(data)-off)
		}
		entries = append(entries, data[off:off+n])
		off += n
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after entries", ErrDeserialization, len(data)-off)
	}
	return entries, nil
}
