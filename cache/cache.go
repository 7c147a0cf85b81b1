// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package cache packs and reads SoundsCache archives: a custom container that
// bundles many .bnk/.wem files with content dedup, 32/64-bit addressing and
// an FNV-1a-64 metadata checksum.
package cache

import (
	"crypto/sha1"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

const magic = "CS3W"

// entry is one file queued for packing.
type entry struct {
	name string
	data []byte
	hash [sha1.Size]byte
}

// dedupKey identifies content-identical files for blob reuse.
type dedupKey struct {
	size uint64
	hash [sha1.Size]byte
}

// layout is the fully resolved set of offsets for one candidate width.
type layout struct {
	width       int // 4 or 8
	headerSize  uint64
	dataOffsets []uint64 // per entry, absolute
	sizes       []uint64
	nameOffsets []uint64 // offset within names blob, per entry
	names       []byte
	namesOffset uint64
	infoOffset  uint64
	total       uint64
	payloads    [][]byte // unique, first-appearance order
}

// Pack scans folder for .wem/.bnk files, builds a SoundsCache archive in
// memory, and writes it to w only once the whole archive has been built
// successfully.
func Pack(folder string, w io.Writer) error {
	files, err := collectFiles(folder)
	if err != nil {
		return err
	}

	lay, err := buildLayout(files, 4)
	if err != nil {
		return err
	}
	if lay.total > 0xFFFFFFFF || maxUint64(lay.dataOffsets...) > 0xFFFFFFFF {
		lay, err = buildLayout(files, 8)
		if err != nil {
			return err
		}
	}

	sb := &seekBuffer{}
	if err := writeArchive(sb, files, lay); err != nil {
		return err
	}
	_, err = w.Write(sb.buf)
	return err
}

func maxUint64(vs ...uint64) uint64 {
	var m uint64
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

// collectFiles enumerates folder, keeping only regular .wem/.bnk files,
// sorted with .bnk entries first then .wem, each group by lowercase basename.
func collectFiles(folder string) ([]entry, error) {
	dirEntries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("cache: read folder: %w", err)
	}

	var files []entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if ext != ".wem" && ext != ".bnk" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(folder, de.Name()))
		if err != nil {
			return nil, fmt.Errorf("cache: read %s: %w", de.Name(), err)
		}
		files = append(files, entry{name: de.Name(), data: data, hash: sha1.Sum(data)})
	}
	if len(files) == 0 {
		return nil, ErrEmptyFolder
	}

	sort.SliceStable(files, func(i, j int) bool {
		gi, gj := extGroup(files[i].name), extGroup(files[j].name)
		if gi != gj {
			return gi < gj
		}
		return strings.ToLower(files[i].name) < strings.ToLower(files[j].name)
	})
	return files, nil
}

func extGroup(name string) int {
	if strings.EqualFold(filepath.Ext(name), ".bnk") {
		return 0
	}
	return 1
}

// headerSize returns the fixed header length for the given width.
func headerSize(width int) uint64 {
	if width == 8 {
		return 0x40
	}
	return 0x30
}

// buildLayout resolves dedup offsets, names and info placement for a given
// candidate address width, without writing anything.
func buildLayout(files []entry, width int) (*layout, error) {
	lay := &layout{width: width, headerSize: headerSize(width)}

	seen := map[dedupKey]uint64{}
	var cursor uint64
	var nameCursor uint64

	lay.dataOffsets = make([]uint64, len(files))
	lay.sizes = make([]uint64, len(files))
	lay.nameOffsets = make([]uint64, len(files))

	for i, f := range files {
		key := dedupKey{size: uint64(len(f.data)), hash: f.hash}
		relOffset, dup := seen[key]
		if !dup {
			relOffset = cursor
			cursor += uint64(len(f.data))
			seen[key] = relOffset
			lay.payloads = append(lay.payloads, f.data)
		}
		lay.dataOffsets[i] = lay.headerSize + relOffset
		lay.sizes[i] = uint64(len(f.data))

		lay.nameOffsets[i] = nameCursor
		lay.names = append(lay.names, []byte(f.name)...)
		lay.names = append(lay.names, 0)
		nameCursor += uint64(len(f.name) + 1)
	}

	lay.namesOffset = lay.headerSize + cursor
	lay.infoOffset = lay.namesOffset + uint64(len(lay.names))
	infoSize := uint64(3*width) * uint64(len(files))
	lay.total = lay.infoOffset + infoSize
	return lay, nil
}

// writeArchive emits the header, unique payloads, names and info per lay.
func writeArchive(buf *seekBuffer, files []entry, lay *layout) error {
	bw := binio.NewWriter(buf)

	if err := bw.Tag(magic); err != nil {
		return err
	}
	bitlen := uint32(1)
	if lay.width == 8 {
		bitlen = 2
	}
	if err := bw.U32(bitlen); err != nil {
		return err
	}
	if err := bw.U32(0); err != nil { // reserved1
		return err
	}
	if err := bw.U32(0); err != nil { // reserved2
		return err
	}
	if err := writeWidth(bw, lay.width, lay.infoOffset); err != nil {
		return err
	}
	if err := writeWidth(bw, lay.width, uint64(len(files))); err != nil {
		return err
	}
	if err := writeWidth(bw, lay.width, lay.namesOffset); err != nil {
		return err
	}
	if err := bw.U32(uint32(len(lay.names))); err != nil {
		return err
	}
	if lay.width == 8 {
		if err := bw.U32(1); err != nil { // observed-constant reserved field
			return err
		}
	}
	if err := bw.U64(bufSize(files)); err != nil {
		return err
	}

	info := buildInfoBytes(lay)
	checksum := fnvChecksum(lay.names, info)
	if err := bw.U64(checksum); err != nil {
		return err
	}

	for _, p := range lay.payloads {
		if err := bw.Bytes(p); err != nil {
			return err
		}
	}
	if err := bw.Bytes(lay.names); err != nil {
		return err
	}
	return bw.Bytes(info)
}

func buildInfoBytes(lay *layout) []byte {
	sb := &seekBuffer{}
	bw := binio.NewWriter(sb)
	for i := range lay.dataOffsets {
		_ = writeWidth(bw, lay.width, lay.nameOffsets[i])
		_ = writeWidth(bw, lay.width, lay.dataOffsets[i])
		_ = writeWidth(bw, lay.width, lay.sizes[i])
	}
	return sb.buf
}

func writeWidth(bw *binio.Writer, width int, v uint64) error {
	if width == 8 {
		return bw.U64(v)
	}
	return bw.U32(uint32(v))
}

// bufSize is the largest file size rounded up to the next 4096-byte page.
// Sizes at or below one page floor to exactly 4096; above that, a size that
// already sits on a page boundary still gets a full extra page, matching the
// reference packer's fremainder arithmetic.
func bufSize(files []entry) uint64 {
	var max uint64
	for _, f := range files {
		if uint64(len(f.data)) > max {
			max = uint64(len(f.data))
		}
	}
	const page = 4096
	if max <= page {
		return page
	}
	remainder := max % page
	return max + (page - remainder)
}

// fnvChecksum hashes names||info with FNV-1a-64 (offset-basis
// 0xCBF29CE484222325, prime 0x100000001B3), per the reference constants.
func fnvChecksum(names, info []byte) uint64 {
	h := fnv.New64a()
	h.Write(names)
	h.Write(info)
	return h.Sum64()
}

// seekBuffer is a growable byte buffer implementing io.WriteSeeker: unlike
// *bytes.Buffer, Write honors the current position, so seeking back to patch
// a length placeholder overwrites in place instead of appending.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = int(offset)
	case io.SeekCurrent:
		s.pos += int(offset)
	case io.SeekEnd:
		s.pos = len(s.buf) + int(offset)
	}
	return int64(s.pos), nil
}
