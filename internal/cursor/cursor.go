// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package cursor provides bounds-checked readers and writers over byte
// slices for the fixed-layout wire codecs.
package cursor

import (
	"encoding/binary"
	"errors"
)

var (
	errShortBuffer = errors.New("cursor: buffer too short")
	errOverflow    = errors.New("cursor: write exceeds capacity")
)

// Reader reads fixed-width integers from a byte slice. Every read past the
// end of the slice fails with an error and leaves the offset untouched.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.off }

// Offset returns the number of bytes already consumed.
func (r *Reader) Offset() int { return r.off }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, errShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n

	return b, nil
}

// Skip advances the offset by n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)

	return err
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// Uint8 reads one byte.
func (r *Reader) Uint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Uint16 reads a big-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

// Uint16LE reads a little-endian uint16.
func (r *Reader) Uint16LE() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

// Uint32LE reads a little-endian uint32.
func (r *Reader) Uint32LE() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

// PeekUint8At returns the byte at absolute offset i without moving the cursor.
func (r *Reader) PeekUint8At(i int) (uint8, error) {
	if i < 0 || i >= len(r.buf) {
		return 0, errShortBuffer
	}

	return r.buf[i], nil
}

// PeekUint32At returns the big-endian uint32 at absolute offset i without
// moving the cursor.
func (r *Reader) PeekUint32At(i int) (uint32, error) {
	if i < 0 || i+4 > len(r.buf) {
		return 0, errShortBuffer
	}

	return binary.BigEndian.Uint32(r.buf[i:]), nil
}

// Writer appends fixed-width integers into a byte slice of bounded capacity.
type Writer struct {
	buf []byte
	max int
}

// NewWriter returns a Writer that refuses to grow past max bytes.
// A max of zero or less means unbounded.
func NewWriter(max int) *Writer {
	w := &Writer{max: max}
	if max > 0 {
		w.buf = make([]byte, 0, max)
	}

	return w
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) grow(n int) error {
	if w.max > 0 && len(w.buf)+n > w.max {
		return errOverflow
	}

	return nil
}

// PutUint8 appends one byte.
func (w *Writer) PutUint8(v uint8) error {
	if err := w.grow(1); err != nil {
		return err
	}
	w.buf = append(w.buf, v)

	return nil
}

// PutUint16 appends a big-endian uint16.
func (w *Writer) PutUint16(v uint16) error {
	if err := w.grow(2); err != nil {
		return err
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)

	return nil
}

// PutUint32 appends a big-endian uint32.
func (w *Writer) PutUint32(v uint32) error {
	if err := w.grow(4); err != nil {
		return err
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)

	return nil
}

// PutUint16LE appends a little-endian uint16.
func (w *Writer) PutUint16LE(v uint16) error {
	if err := w.grow(2); err != nil {
		return err
	}
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)

	return nil
}

// PutUint32LE appends a little-endian uint32.
func (w *Writer) PutUint32LE(v uint32) error {
	if err := w.grow(4); err != nil {
		return err
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)

	return nil
}

// Write appends b in full or not at all.
func (w *Writer) Write(b []byte) (int, error) {
	if err := w.grow(len(b)); err != nil {
		return 0, err
	}
	w.buf = append(w.buf, b...)

	return len(b), nil
}
