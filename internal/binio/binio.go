// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package binio provides little-endian fixed-width binary I/O primitives
// shared by the soundbank, WEM and soundscache codecs.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrMalformed is returned when a value does not fit the field it was read into,
// e.g. a boolean byte outside {0, 1}.
var ErrMalformed = errors.New("binio: malformed record")

// chunkSize bounds a single read/allocation step of Slurp, avoiding one
// giant allocation spike for cache blobs larger than 2^31-1 bytes.
const chunkSize = 1 << 24

// Reader reads little-endian primitives off a seekable byte stream.
type Reader struct {
	r io.ReadSeeker
}

// NewReader wraps r for sequential little-endian reads.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

func (rd *Reader) read(buf []byte) error {
	_, err := io.ReadFull(rd.r, buf)
	if err != nil {
		return err
	}
	return nil
}

// U8 reads an unsigned 8-bit integer.
func (rd *Reader) U8() (uint8, error) {
	var buf [1]byte
	if err := rd.read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// U16 reads an unsigned 16-bit little-endian integer.
func (rd *Reader) U16() (uint16, error) {
	var buf [2]byte
	if err := rd.read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// I16 reads a signed 16-bit little-endian integer.
func (rd *Reader) I16() (int16, error) {
	v, err := rd.U16()
	return int16(v), err
}

// U32 reads an unsigned 32-bit little-endian integer.
func (rd *Reader) U32() (uint32, error) {
	var buf [4]byte
	if err := rd.read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// I32 reads a signed 32-bit little-endian integer.
func (rd *Reader) I32() (int32, error) {
	v, err := rd.U32()
	return int32(v), err
}

// U64 reads an unsigned 64-bit little-endian integer.
func (rd *Reader) U64() (uint64, error) {
	var buf [8]byte
	if err := rd.read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// I64 reads a signed 64-bit little-endian integer.
func (rd *Reader) I64() (int64, error) {
	v, err := rd.U64()
	return int64(v), err
}

// F32 reads a little-endian IEEE-754 single-precision float.
func (rd *Reader) F32() (float32, error) {
	v, err := rd.U32()
	return math.Float32frombits(v), err
}

// F64 reads a little-endian IEEE-754 double-precision float.
func (rd *Reader) F64() (float64, error) {
	v, err := rd.U64()
	return math.Float64frombits(v), err
}

// Bool reads one byte, accepting only 0 or 1; anything else is ErrMalformed.
func (rd *Reader) Bool() (bool, error) {
	v, err := rd.U8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrMalformed
	}
}

// Tag reads exactly 4 raw bytes and returns them as a string. On EOF before
// any byte is consumed it returns an empty tag and no error, so optional
// chunk headers can be probed without special-casing io.EOF at call sites.
func (rd *Reader) Tag() (string, error) {
	var buf [4]byte
	n, err := io.ReadFull(rd.r, buf[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	return string(buf[:]), nil
}

// Slurp reads exactly n bytes, bounded so a corrupt length field cannot
// trigger a single oversized allocation.
func (rd *Reader) Slurp(n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("binio: negative length %d: %w", n, ErrMalformed)
	}
	out := make([]byte, 0, minInt64(n, chunkSize))
	var buf [chunkSize]byte
	remaining := n
	for remaining > 0 {
		step := remaining
		if step > chunkSize {
			step = chunkSize
		}
		if err := rd.read(buf[:step]); err != nil {
			return nil, err
		}
		out = append(out, buf[:step]...)
		remaining -= step
	}
	return out, nil
}

// Seek repositions the stream; whence follows io.Seeker semantics.
func (rd *Reader) Seek(offset int64, whence int) (int64, error) {
	return rd.r.Seek(offset, whence)
}

// Tell reports the current stream position.
func (rd *Reader) Tell() (int64, error) {
	return rd.r.Seek(0, io.SeekCurrent)
}

// Writer writes little-endian primitives onto a seekable byte stream.
type Writer struct {
	w io.WriteSeeker
}

// NewWriter wraps w for sequential little-endian writes.
func NewWriter(w io.WriteSeeker) *Writer {
	return &Writer{w: w}
}

// U8 writes an unsigned 8-bit integer.
func (wr *Writer) U8(v uint8) error {
	_, err := wr.w.Write([]byte{v})
	return err
}

// U16 writes an unsigned 16-bit little-endian integer.
func (wr *Writer) U16(v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := wr.w.Write(buf[:])
	return err
}

// I16 writes a signed 16-bit little-endian integer.
func (wr *Writer) I16(v int16) error {
	return wr.U16(uint16(v))
}

// U32 writes an unsigned 32-bit little-endian integer.
func (wr *Writer) U32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := wr.w.Write(buf[:])
	return err
}

// I32 writes a signed 32-bit little-endian integer.
func (wr *Writer) I32(v int32) error {
	return wr.U32(uint32(v))
}

// U64 writes an unsigned 64-bit little-endian integer.
func (wr *Writer) U64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := wr.w.Write(buf[:])
	return err
}

// I64 writes a signed 64-bit little-endian integer.
func (wr *Writer) I64(v int64) error {
	return wr.U64(uint64(v))
}

// F32 writes a little-endian IEEE-754 single-precision float.
func (wr *Writer) F32(v float32) error {
	return wr.U32(math.Float32bits(v))
}

// F64 writes a little-endian IEEE-754 double-precision float.
func (wr *Writer) F64(v float64) error {
	return wr.U64(math.Float64bits(v))
}

// Bool writes a single 0 or 1 byte.
func (wr *Writer) Bool(v bool) error {
	if v {
		return wr.U8(1)
	}
	return wr.U8(0)
}

// Tag writes a 4-byte ASCII tag verbatim, padding or truncating is an error.
func (wr *Writer) Tag(tag string) error {
	if len(tag) != 4 {
		return fmt.Errorf("binio: tag %q is not 4 bytes: %w", tag, ErrMalformed)
	}
	_, err := wr.w.Write([]byte(tag))
	return err
}

// Bytes writes a raw byte slice verbatim.
func (wr *Writer) Bytes(b []byte) error {
	_, err := wr.w.Write(b)
	return err
}

// Seek repositions the stream; whence follows io.Seeker semantics.
func (wr *Writer) Seek(offset int64, whence int) (int64, error) {
	return wr.w.Seek(offset, whence)
}

// Tell reports the current stream position.
func (wr *Writer) Tell() (int64, error) {
	return wr.w.Seek(0, io.SeekCurrent)
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
