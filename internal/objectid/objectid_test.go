// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package objectid

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDB(t *testing.T, ids ...uint32) []byte {
	t.Helper()
	payload := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(payload[i*4:], id)
	}
	sum := sha1.Sum(payload)
	return append(append([]byte{}, sum[:]...), payload...)
}

func TestParseDatabaseRejectsBadDigest(t *testing.T) {
	raw := buildDB(t, 1, 2, 3)
	raw[0] ^= 0xFF
	_, err := ParseDatabase(raw)
	assert.ErrorIs(t, err, ErrDatabaseCorrupt)
}

func TestParseDatabaseContains(t *testing.T) {
	raw := buildDB(t, 1, 2, 3)
	db, err := ParseDatabase(raw)
	require.NoError(t, err)

	assert.True(t, db.Contains(2))
	assert.False(t, db.Contains(99))
}

// sequence feeds a fixed sequence of uint32 values as a deterministic
// randomness source for New.
type sequence struct {
	vals []uint32
	i    int
}

func (s *sequence) Read(p []byte) (int, error) {
	if len(p) != 4 {
		panic("unexpected read size")
	}
	binary.LittleEndian.PutUint32(p, s.vals[s.i])
	s.i++
	return 4, nil
}

func TestNewSkipsCollisions(t *testing.T) {
	raw := buildDB(t, 5)
	db, err := ParseDatabase(raw)
	require.NoError(t, err)

	seq := &sequence{vals: []uint32{0, 5, 10, 10, 42}}
	used := func(id uint32) bool { return id == 10 }

	id, err := New(seq, used, db)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestNewWithNilDatabase(t *testing.T) {
	seq := &sequence{vals: []uint32{7}}
	id, err := New(seq, func(uint32) bool { return false }, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
	_ = bytes.NewReader(nil)
}
