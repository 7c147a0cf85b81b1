// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/go-mmap/mmap"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

// File is one archive member.
type File struct {
	Name   string
	Offset uint64
	Size   uint64
}

// Archive is a fully parsed SoundsCache.
type Archive struct {
	Width    int // 4 or 8
	NamesLen uint32
	BufSize  uint64
	Checksum uint64
	Files    []File

	raw []byte
}

// Open reads and validates the SoundsCache at path.
func Open(path string) (*Archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cache: stat: %w", err)
	}
	f, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cache: open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, info.Size())
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("cache: read: %w", err)
	}
	return decode(buf)
}

func decode(raw []byte) (*Archive, error) {
	r := binio.NewReader(bytes.NewReader(raw))

	tag, err := r.Tag()
	if err != nil {
		return nil, fmt.Errorf("cache: tag: %w", err)
	}
	if tag != magic {
		return nil, fmt.Errorf("cache: tag %q: %w", tag, ErrBadHeader)
	}
	bitlen, err := r.U32()
	if err != nil {
		return nil, err
	}
	width, ok := map[uint32]int{1: 4, 2: 8}[bitlen]
	if !ok {
		return nil, fmt.Errorf("cache: bitlength %d: %w", bitlen, ErrBadHeader)
	}
	if _, err = r.U32(); err != nil { // reserved1
		return nil, err
	}
	if _, err = r.U32(); err != nil { // reserved2
		return nil, err
	}
	infoOffset, err := readWidth(r, width)
	if err != nil {
		return nil, err
	}
	fileCount, err := readWidth(r, width)
	if err != nil {
		return nil, err
	}
	namesOffset, err := readWidth(r, width)
	if err != nil {
		return nil, err
	}
	namesLen, err := r.U32()
	if err != nil {
		return nil, err
	}
	if width == 8 {
		if _, err = r.U32(); err != nil { // reserved, observed value 1
			return nil, err
		}
	}
	bufsize, err := r.U64()
	if err != nil {
		return nil, err
	}
	checksum, err := r.U64()
	if err != nil {
		return nil, err
	}

	if namesOffset+uint64(namesLen) > uint64(len(raw)) {
		return nil, fmt.Errorf("cache: names region out of bounds: %w", ErrBadSize)
	}
	infoSize := uint64(3*width) * fileCount
	if infoOffset+infoSize > uint64(len(raw)) {
		return nil, fmt.Errorf("cache: info region out of bounds: %w", ErrBadSize)
	}

	names := raw[namesOffset : namesOffset+uint64(namesLen)]
	info := raw[infoOffset : infoOffset+infoSize]
	if fnvChecksum(names, info) != checksum {
		return nil, ErrChecksumMismatch
	}

	a := &Archive{Width: width, NamesLen: namesLen, BufSize: bufsize, Checksum: checksum, raw: raw}
	ir := binio.NewReader(bytes.NewReader(info))
	for i := uint64(0); i < fileCount; i++ {
		nameOff, err := readWidth(ir, width)
		if err != nil {
			return nil, err
		}
		dataOff, err := readWidth(ir, width)
		if err != nil {
			return nil, err
		}
		size, err := readWidth(ir, width)
		if err != nil {
			return nil, err
		}
		if nameOff >= uint64(len(names)) {
			return nil, fmt.Errorf("cache: file %d name offset: %w", i, ErrBadInvariant)
		}
		a.Files = append(a.Files, File{Name: nulTerminated(names[nameOff:]), Offset: dataOff, Size: size})
	}
	return a, nil
}

func readWidth(r *binio.Reader, width int) (uint64, error) {
	if width == 8 {
		return r.U64()
	}
	v, err := r.U32()
	return uint64(v), err
}

func nulTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Extract writes every archive member to folder under its original basename.
func (a *Archive) Extract(folder string) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir %s: %w", folder, err)
	}
	for _, f := range a.Files {
		if f.Offset+f.Size > uint64(len(a.raw)) {
			return fmt.Errorf("cache: file %s out of bounds: %w", f.Name, ErrBadInvariant)
		}
		path := filepath.Join(folder, f.Name)
		if err := os.WriteFile(path, a.raw[f.Offset:f.Offset+f.Size], 0o644); err != nil {
			return fmt.Errorf("cache: write %s: %w", path, err)
		}
	}
	return nil
}
