// Package bincode implements the fixed-layout little-endian encoding that the proving programs use for their
// stdin and their committed public values.
//
// The layout is the default configuration of the bincode 1.x format: integers are fixed-width little-endian,
// byte strings and UTF-8 strings are prefixed with a u64 length, fixed-size arrays are written raw and tuples are
// the concatenation of their fields. The decoder is strict: it never pads, truncates or skips input.
package bincode

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var (
	// ErrUnexpectedEOF is returned when the input ends before a field is complete.
	ErrUnexpectedEOF = errors.New("bincode: unexpected end of input")
	// ErrTrailingBytes is returned by Finish when bytes remain after the last field.
	ErrTrailingBytes = errors.New("bincode: trailing bytes after last field")
	// ErrInvalidUTF8 is returned when a string field is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("bincode: string is not valid UTF-8")
)

// Encoder appends fields to an in-memory buffer.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) WriteU64(v uint64) *Encoder {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
	return e
}

// WriteFixed writes a fixed-size array. No length prefix is emitted.
func (e *Encoder) WriteFixed(b []byte) *Encoder {
	e.buf.Write(b)
	return e
}

// WriteBytes writes a length-prefixed byte string.
func (e *Encoder) WriteBytes(b []byte) *Encoder {
	e.WriteU64(uint64(len(b)))
	e.buf.Write(b)
	return e
}

func (e *Encoder) WriteString(s string) *Encoder {
	e.WriteU64(uint64(len(s)))
	e.buf.WriteString(s)
	return e
}

func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Decoder reads fields in order from a byte slice.
type Decoder struct {
	data []byte
	off  int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

func (d *Decoder) ReadU64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, errors.Wrap(err, "cannot read u64")
	}

	return binary.LittleEndian.Uint64(b), nil
}

// ReadFixed reads a fixed-size array of n bytes. The returned slice is a copy.
func (d *Decoder) ReadFixed(n int) ([]byte, error) {
	b, err := d.take(n)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read [u8; %v]", n)
	}

	return append([]byte(nil), b...), nil
}

// ReadBytes reads a length-prefixed byte string. The returned slice is a copy.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}

	b, err := d.take(n)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %v bytes of Vec<u8>", n)
	}

	return append([]byte(nil), b...), nil
}

func (d *Decoder) ReadString() (string, error) {
	n, err := d.readLength()
	if err != nil {
		return "", err
	}

	b, err := d.take(n)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read %v bytes of String", n)
	}

	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}

	return string(b), nil
}

// Finish reports ErrTrailingBytes if the input was not consumed completely.
func (d *Decoder) Finish() error {
	if rem := d.Remaining(); rem != 0 {
		return errors.Wrapf(ErrTrailingBytes, "%v bytes left", rem)
	}

	return nil
}

// readLength reads a u64 length prefix and rejects lengths larger than the remaining input before anything is
// allocated.
func (d *Decoder) readLength() (int, error) {
	n, err := d.ReadU64()
	if err != nil {
		return 0, errors.Wrap(err, "cannot read length prefix")
	}

	if n > uint64(d.Remaining()) {
		return 0, errors.Wrapf(ErrUnexpectedEOF, "length prefix %v exceeds remaining %v bytes", n, d.Remaining())
	}

	return int(n), nil
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, ErrUnexpectedEOF
	}

	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}
