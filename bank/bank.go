// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package bank reads and rewrites SoundBank (.bnk) containers: the chunked
// object hierarchy an interactive-audio middleware ships alongside its
// embedded or streamed WEM payloads.
package bank

import (
	"bytes"
	"fmt"
	"os"

	"codeberg.org/go-mmap/mmap"
	"github.com/kelindar/intmap"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

// bankVersion is the only BKHD version this toolkit targets.
const bankVersion = 0x58

// Header mirrors the BKHD chunk.
type Header struct {
	Version    uint32
	ID         uint32
	Unk32_1    uint32
	Unk32_2    uint32
	TrailingOK []byte // opaque bytes past the four known fields, if any
}

// DidxEntry is one embedded-audio index entry.
type DidxEntry struct {
	ID     uint32
	Offset uint32
	Size   uint32
}

// Stid mirrors the optional STID chunk (absent in Init.bnk).
type Stid struct {
	Reserved uint32
	Quantity uint32
	Tail     []byte
}

// Stmg mirrors the Init.bnk-only STMG chunk. Only the leading fields are
// decoded; the rest is preserved opaque since this toolkit never rebuilds
// Init.bnk (see (*Bank).Rebuild).
type Stmg struct {
	MasterVolume      float32
	MaxVoiceInstances uint32
	Tail              []byte
}

// Envs mirrors the Init.bnk-only ENVS chunk, an opaque payload.
type Envs struct {
	Payload []byte
}

// Bank is a fully parsed SoundBank.
type Bank struct {
	BKHD   Header
	IsInit bool

	DIDX []DidxEntry
	Data []byte

	HIRC []Object

	STID *Stid
	STMG *Stmg
	ENVS *Envs

	index *intmap.Map // object id -> position in HIRC, built lazily
}

// Read parses the SoundBank at path.
func Read(path string) (*Bank, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("bank: stat: %w", err)
	}

	f, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bank: open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, info.Size())
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("bank: read: %w", err)
	}

	return decode(bytes.NewReader(buf))
}

func decode(raw *bytes.Reader) (*Bank, error) {
	r := binio.NewReader(raw)
	b := &Bank{}

	tag, err := r.Tag()
	if err != nil {
		return nil, fmt.Errorf("bank: BKHD tag: %w", err)
	}
	if tag != "BKHD" {
		return nil, fmt.Errorf("bank: expected BKHD, got %q: %w", tag, ErrBadHeader)
	}
	length, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("bank: BKHD length: %w", err)
	}
	start, err := r.Tell()
	if err != nil {
		return nil, err
	}
	if b.BKHD.Version, err = r.U32(); err != nil {
		return nil, fmt.Errorf("bank: BKHD version: %w", err)
	}
	if b.BKHD.Version != bankVersion {
		return nil, fmt.Errorf("bank: BKHD version %#x: %w", b.BKHD.Version, ErrUnsupportedShape)
	}
	if b.BKHD.ID, err = r.U32(); err != nil {
		return nil, err
	}
	if b.BKHD.Unk32_1, err = r.U32(); err != nil {
		return nil, err
	}
	if b.BKHD.Unk32_2, err = r.U32(); err != nil {
		return nil, err
	}
	consumed, err := r.Tell()
	if err != nil {
		return nil, err
	}
	if remaining := int64(length) - (consumed - start); remaining > 0 {
		if b.BKHD.TrailingOK, err = r.Slurp(remaining); err != nil {
			return nil, fmt.Errorf("bank: BKHD trailer: %w", err)
		}
	} else if remaining < 0 {
		return nil, fmt.Errorf("bank: BKHD length %d shorter than fixed fields: %w", length, ErrBadSize)
	}

	// Peek the next tag to decide between the non-init (DIDX/DATA) and
	// init-style (STMG) layouts, seeking back when it doesn't match.
	peeked, err := r.Tag()
	if err != nil {
		return nil, err
	}

	switch peeked {
	case "STMG":
		b.IsInit = true
		if b.STMG, err = readStmg(r); err != nil {
			return nil, err
		}
	case "DIDX":
		if err := readDidxData(r, b); err != nil {
			return nil, err
		}
	default:
		// Neither DIDX nor STMG: rewind so the HIRC tag can be read normally.
		if peeked != "" {
			if _, err := r.Seek(-4, 1); err != nil {
				return nil, err
			}
		}
	}

	hircTag, err := r.Tag()
	if err != nil {
		return nil, fmt.Errorf("bank: HIRC tag: %w", err)
	}
	if hircTag != "HIRC" {
		return nil, fmt.Errorf("bank: expected HIRC, got %q: %w", hircTag, ErrBadHeader)
	}
	if b.HIRC, err = readHirc(r); err != nil {
		return nil, err
	}

	if !b.IsInit {
		tailTag, err := r.Tag()
		if err != nil {
			return nil, err
		}
		if tailTag == "STID" {
			if b.STID, err = readStid(r); err != nil {
				return nil, err
			}
		} else if tailTag != "" {
			if _, err := r.Seek(-4, 1); err != nil {
				return nil, err
			}
		}
	} else {
		tailTag, err := r.Tag()
		if err != nil {
			return nil, err
		}
		if tailTag == "ENVS" {
			if b.ENVS, err = readEnvs(r); err != nil {
				return nil, err
			}
		} else if tailTag != "" {
			if _, err := r.Seek(-4, 1); err != nil {
				return nil, err
			}
		}
	}

	return b, nil
}

func readDidxData(r *binio.Reader, b *Bank) error {
	length, err := r.U32()
	if err != nil {
		return fmt.Errorf("bank: DIDX length: %w", err)
	}
	if length%12 != 0 {
		return fmt.Errorf("bank: DIDX length %d not a multiple of 12: %w", length, ErrBadSize)
	}
	count := length / 12
	b.DIDX = make([]DidxEntry, count)
	for i := range b.DIDX {
		id, err := r.U32()
		if err != nil {
			return err
		}
		off, err := r.U32()
		if err != nil {
			return err
		}
		sz, err := r.U32()
		if err != nil {
			return err
		}
		b.DIDX[i] = DidxEntry{ID: id, Offset: off, Size: sz}
	}

	tag, err := r.Tag()
	if err != nil {
		return err
	}
	if tag != "DATA" {
		if tag != "" {
			if _, err := r.Seek(-4, 1); err != nil {
				return err
			}
		}
		return nil
	}
	dataLen, err := r.U32()
	if err != nil {
		return err
	}
	if b.Data, err = r.Slurp(int64(dataLen)); err != nil {
		return fmt.Errorf("bank: DATA payload: %w", err)
	}
	for _, e := range b.DIDX {
		if int64(e.Offset)+int64(e.Size) > int64(len(b.Data)) {
			return fmt.Errorf("bank: DIDX entry %d out of bounds: %w", e.ID, ErrBadInvariant)
		}
	}
	return nil
}

func readStid(r *binio.Reader) (*Stid, error) {
	length, err := r.U32()
	if err != nil {
		return nil, err
	}
	start, err := r.Tell()
	if err != nil {
		return nil, err
	}
	s := &Stid{}
	if s.Reserved, err = r.U32(); err != nil {
		return nil, err
	}
	if s.Quantity, err = r.U32(); err != nil {
		return nil, err
	}
	consumed, err := r.Tell()
	if err != nil {
		return nil, err
	}
	if remaining := int64(length) - (consumed - start); remaining > 0 {
		if s.Tail, err = r.Slurp(remaining); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func readStmg(r *binio.Reader) (*Stmg, error) {
	length, err := r.U32()
	if err != nil {
		return nil, err
	}
	start, err := r.Tell()
	if err != nil {
		return nil, err
	}
	s := &Stmg{}
	if s.MasterVolume, err = r.F32(); err != nil {
		return nil, err
	}
	if s.MaxVoiceInstances, err = r.U32(); err != nil {
		return nil, err
	}
	consumed, err := r.Tell()
	if err != nil {
		return nil, err
	}
	if remaining := int64(length) - (consumed - start); remaining > 0 {
		if s.Tail, err = r.Slurp(remaining); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func readEnvs(r *binio.Reader) (*Envs, error) {
	length, err := r.U32()
	if err != nil {
		return nil, err
	}
	payload, err := r.Slurp(int64(length))
	if err != nil {
		return nil, err
	}
	return &Envs{Payload: payload}, nil
}

// buildIndex lazily builds (and caches) the id -> HIRC position side index.
func (b *Bank) buildIndex() *intmap.Map {
	if b.index != nil {
		return b.index
	}
	m := intmap.New(len(b.HIRC), .95)
	for i, obj := range b.HIRC {
		m.Store(obj.ID, uint32(i))
	}
	b.index = m
	return m
}

// findByID returns the HIRC position of the object with the given id, or
// -1 if not present. The cached side index is reused until invalidateIndex
// clears it, so callers that mutate HIRC must call invalidateIndex.
func (b *Bank) findByID(id uint32) int {
	m := b.buildIndex()
	if pos, ok := m.Load(id); ok {
		return int(pos)
	}
	return -1
}

func (b *Bank) invalidateIndex() {
	b.index = nil
}
