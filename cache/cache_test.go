// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package cache

import (
	"bytes"
	"crypto/sha1"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir string, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestPackOpenExtractRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.wem", bytes.Repeat([]byte{0x01}, 100))
	writeFixture(t, dir, "b.wem", bytes.Repeat([]byte{0x01}, 100)) // content-equal to a.wem
	writeFixture(t, dir, "c.bnk", bytes.Repeat([]byte{0x02}, 4096))

	var buf bytes.Buffer
	require.NoError(t, Pack(dir, &buf))

	a, err := decode(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, a.Files, 3)

	assert.Equal(t, "c.bnk", a.Files[0].Name)
	assert.Equal(t, "a.wem", a.Files[1].Name)
	assert.Equal(t, "b.wem", a.Files[2].Name)
	assert.Equal(t, a.Files[1].Offset, a.Files[2].Offset) // deduped blob

	out := t.TempDir()
	require.NoError(t, a.Extract(out))
	got, err := os.ReadFile(filepath.Join(out, "b.wem"))
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0x01}, 100), got)
}

func TestFNVReferenceVectors(t *testing.T) {
	assert.EqualValues(t, 0xCBF29CE484222325, fnvChecksum(nil, nil))
	assert.EqualValues(t, 0xAF63DC4C8601EC8C, fnvChecksum([]byte("a"), nil))
}

func TestPackRejectsEmptyFolder(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	err := Pack(dir, &buf)
	assert.ErrorIs(t, err, ErrEmptyFolder)
}

func TestPackPromotesTo64Bit(t *testing.T) {
	dir := t.TempDir()
	big := bytes.Repeat([]byte{0x03}, 10)
	writeFixture(t, dir, "a.wem", big)

	files := []entry{{name: "a.wem", data: big, hash: sha1.Sum(big)}}
	lay, err := buildLayout(files, 4)
	require.NoError(t, err)
	lay.dataOffsets[0] = 0x100000000 // force an overflow scenario

	assert.Greater(t, maxUint64(lay.dataOffsets...), uint64(0xFFFFFFFF))

	// The 64-bit re-encoding uses the 0x40-byte header, so data starts at 0x40.
	wide, err := buildLayout(files, 8)
	require.NoError(t, err)
	sb := &seekBuffer{}
	require.NoError(t, writeArchive(sb, files, wide))
	a, err := decode(sb.buf)
	require.NoError(t, err)
	assert.Equal(t, 8, a.Width)
	assert.GreaterOrEqual(t, a.Files[0].Offset, uint64(0x40))
}
