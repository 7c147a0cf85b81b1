// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package binio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rwseeker struct {
	*bytes.Reader
}

func newBuf(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func TestReadWriteRoundTrip(t *testing.T) {
	var buf seekBuffer
	w := NewWriter(&buf)

	require.NoError(t, w.U8(0xAB))
	require.NoError(t, w.U16(0xBEEF))
	require.NoError(t, w.U32(0xDEADBEEF))
	require.NoError(t, w.U64(0x0102030405060708))
	require.NoError(t, w.I32(-42))
	require.NoError(t, w.I64(-4242))
	require.NoError(t, w.F32(1.5))
	require.NoError(t, w.F64(2.25))
	require.NoError(t, w.Bool(true))
	require.NoError(t, w.Bool(false))
	require.NoError(t, w.Tag("BKHD"))

	r := NewReader(newBuf(buf.Bytes()))

	u8, err := r.U8()
	require.NoError(t, err)
	assert.EqualValues(t, 0xAB, u8)

	u16, err := r.U16()
	require.NoError(t, err)
	assert.EqualValues(t, 0xBEEF, u16)

	u32, err := r.U32()
	require.NoError(t, err)
	assert.EqualValues(t, 0xDEADBEEF, u32)

	u64, err := r.U64()
	require.NoError(t, err)
	assert.EqualValues(t, 0x0102030405060708, u64)

	i32, err := r.I32()
	require.NoError(t, err)
	assert.EqualValues(t, -42, i32)

	i64, err := r.I64()
	require.NoError(t, err)
	assert.EqualValues(t, -4242, i64)

	f32, err := r.F32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)

	f64, err := r.F64()
	require.NoError(t, err)
	assert.Equal(t, 2.25, f64)

	b1, err := r.Bool()
	require.NoError(t, err)
	assert.True(t, b1)

	b2, err := r.Bool()
	require.NoError(t, err)
	assert.False(t, b2)

	tag, err := r.Tag()
	require.NoError(t, err)
	assert.Equal(t, "BKHD", tag)
}

func TestBoolRejectsMalformed(t *testing.T) {
	r := NewReader(newBuf([]byte{2}))
	_, err := r.Bool()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTagEmptyOnEOF(t *testing.T) {
	r := NewReader(newBuf(nil))
	tag, err := r.Tag()
	require.NoError(t, err)
	assert.Empty(t, tag)
}

func TestSlurpLarge(t *testing.T) {
	const n = chunkSize + 17
	src := bytes.Repeat([]byte{0x5A}, n)
	r := NewReader(newBuf(src))

	out, err := r.Slurp(int64(n))
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestSlurpNegative(t *testing.T) {
	r := NewReader(newBuf(nil))
	_, err := r.Slurp(-1)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSeekTell(t *testing.T) {
	r := NewReader(newBuf([]byte{1, 2, 3, 4}))
	_, err := r.Seek(2, 0)
	require.NoError(t, err)

	pos, err := r.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 2, pos)

	v, err := r.U16()
	require.NoError(t, err)
	assert.EqualValues(t, 0x0403, v)
}

// seekBuffer adapts bytes.Buffer to io.WriteSeeker for Writer tests.
type seekBuffer struct {
	bytes.Buffer
	pos int
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		s.pos = int(offset)
	case 1:
		s.pos += int(offset)
	case 2:
		s.pos = s.Len() + int(offset)
	}
	return int64(s.pos), nil
}
