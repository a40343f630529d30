// Package binary serializes linked program executables into versioned,
// self-checking blobs suitable for a persistent program cache.
//
// A blob starts with a fixed-size build identifier followed by the client
// API version. Every table of the executable follows as a length-prefixed
// sequence of fixed-layout records. A blob produced by a different build or
// for a different API version is rejected with ErrIncomplete, which callers
// treat as a cache miss.
package binary

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// ErrIncomplete reports a blob that cannot be loaded by this build: a build
// identifier or API version mismatch, a truncated stream or a corrupt
// length prefix.
var ErrIncomplete = errors.New("program binary incomplete")

// Writer appends little-endian values to a byte buffer.
type Writer struct {
	buf bytes.Buffer
}

// Bytes returns the encoded stream.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteBytes writes raw bytes without a length prefix.
func (w *Writer) WriteBytes(b []byte) {
	w.buf.Write(b)
}

// WriteInt writes a signed integer as 64 bits.
func (w *Writer) WriteInt(v int) {
	w.WriteUint64(uint64(int64(v)))
}

// WriteUint32 writes a 32-bit unsigned integer.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// WriteUint64 writes a 64-bit unsigned integer.
func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// WriteUint8 writes one byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteBool writes a bool as one byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteString writes a length-prefixed string.
func (w *Writer) WriteString(s string) {
	w.WriteUint32(uint32(len(s))) //nolint:gosec // G115: strings in a program are far below 4 GiB
	w.buf.WriteString(s)
}

// Reader decodes a stream produced by Writer. The first failure is sticky:
// later reads return zero values and Err reports the failure.
type Reader struct {
	r   *bytes.Reader
	err error
}

// NewReader returns a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

// Err returns the first decoding failure.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.r.Len()
}

func (r *Reader) fail(err error, what string) {
	if r.err != nil {
		return
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = ErrIncomplete
	}
	r.err = errors.Wrapf(err, "read %s at offset %d", what, r.offset())
}

func (r *Reader) offset() int64 {
	return r.r.Size() - int64(r.r.Len())
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.fail(err, "bytes")
		return nil
	}
	return b
}

// ReadInt reads a signed integer written by WriteInt.
func (r *Reader) ReadInt() int {
	return int(int64(r.ReadUint64())) //nolint:gosec // G115: round-trips WriteInt
}

// ReadUint32 reads a 32-bit unsigned integer.
func (r *Reader) ReadUint32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		r.fail(err, "uint32")
		return 0
	}
	return v
}

// ReadUint64 reads a 64-bit unsigned integer.
func (r *Reader) ReadUint64() uint64 {
	if r.err != nil {
		return 0
	}
	var v uint64
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		r.fail(err, "uint64")
		return 0
	}
	return v
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() uint8 {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.fail(err, "uint8")
		return 0
	}
	return b
}

// ReadBool reads a bool written by WriteBool.
func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() string {
	n := r.readLength("string")
	if n == 0 {
		return ""
	}
	return string(r.ReadBytes(n))
}

// readLength reads a sequence length and rejects lengths the remaining
// stream cannot hold.
func (r *Reader) readLength(what string) int {
	n := int(r.ReadUint32())
	if r.err == nil && n > r.r.Len() {
		r.err = errors.Wrapf(ErrIncomplete, "%s length %d exceeds %d remaining bytes", what, n, r.r.Len())
		return 0
	}
	return n
}

// writeSlice writes a length-prefixed sequence of records.
func writeSlice[T any](w *Writer, items []T, write func(*Writer, *T)) {
	w.WriteUint32(uint32(len(items))) //nolint:gosec // G115: table sizes are bounded by GL limits
	for i := range items {
		write(w, &items[i])
	}
}

// readSlice reads a sequence written by writeSlice. Empty sequences decode
// as nil.
func readSlice[T any](r *Reader, what string, read func(*Reader) T) []T {
	n := r.readLength(what)
	if n == 0 || r.err != nil {
		return nil
	}
	out := make([]T, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, read(r))
	}
	if r.err != nil {
		return nil
	}
	return out
}

// writeInts writes a length-prefixed integer sequence.
func writeInts[T constraints.Integer](w *Writer, v []T) {
	w.WriteUint32(uint32(len(v))) //nolint:gosec // G115: table sizes are bounded by GL limits
	for _, x := range v {
		w.WriteInt(int(x))
	}
}

// readInts reads a sequence written by writeInts.
func readInts[T constraints.Integer](r *Reader, what string) []T {
	return readSlice(r, what, func(r *Reader) T { return T(r.ReadInt()) })
}
