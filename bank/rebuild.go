// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bank

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

// Rebuild re-serializes b to w: BKHD, optional DIDX/DATA (with Sound offsets
// patched against the freshly written DATA region), HIRC, and the
// non-init-only STID tail. Rebuilding Init.bnk is explicitly unsupported.
func (b *Bank) Rebuild(w io.Writer) error {
	if b.IsInit {
		return fmt.Errorf("bank: rebuilding Init.bnk: %w", ErrUnsupportedShape)
	}

	sw := &seekWriter{}
	bw := binio.NewWriter(sw)

	if err := writeChunk(bw, "BKHD", func(w *binio.Writer) error {
		if err := w.U32(b.BKHD.Version); err != nil {
			return err
		}
		if err := w.U32(b.BKHD.ID); err != nil {
			return err
		}
		if err := w.U32(b.BKHD.Unk32_1); err != nil {
			return err
		}
		if err := w.U32(b.BKHD.Unk32_2); err != nil {
			return err
		}
		return w.Bytes(b.BKHD.TrailingOK)
	}); err != nil {
		return err
	}

	didxOffsets := recomputeDidxOffsets(b.DIDX)
	if b.DIDX != nil {
		if err := writeChunk(bw, "DIDX", func(w *binio.Writer) error {
			for i, e := range b.DIDX {
				if err := w.U32(e.ID); err != nil {
					return err
				}
				if err := w.U32(didxOffsets[i]); err != nil {
					return err
				}
				if err := w.U32(e.Size); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	dataStart := int64(-1)
	if b.DIDX != nil {
		total := uint32(0)
		for _, e := range b.DIDX {
			total += e.Size
		}
		if err := bw.Tag("DATA"); err != nil {
			return err
		}
		if err := bw.U32(total); err != nil {
			return err
		}
		var err error
		if dataStart, err = bw.Tell(); err != nil {
			return err
		}
		for i, e := range b.DIDX {
			off := didxOffsets[i]
			if int64(off)+int64(e.Size) > int64(len(b.Data)) {
				return fmt.Errorf("bank: DIDX entry %d out of bounds: %w", e.ID, ErrBadInvariant)
			}
			if err := bw.Bytes(b.Data[off : off+e.Size]); err != nil {
				return err
			}
		}
	}

	byID := make(map[uint32]DidxEntry, len(b.DIDX))
	for i, e := range b.DIDX {
		byID[e.ID] = DidxEntry{ID: e.ID, Offset: didxOffsets[i], Size: e.Size}
	}

	if err := bw.Tag("HIRC"); err != nil {
		return err
	}
	hircLenPos, err := bw.Tell()
	if err != nil {
		return err
	}
	if err := bw.U32(0); err != nil { // placeholder, patched below
		return err
	}
	if err := bw.U32(uint32(len(b.HIRC))); err != nil {
		return err
	}
	hircBodyStart, err := bw.Tell()
	if err != nil {
		return err
	}
	for _, obj := range b.HIRC {
		if sound, ok := obj.Body.(*Sound); ok && sound.IncludeType == IncludeEmbedded && dataStart >= 0 {
			if e, found := byID[sound.AudioID]; found {
				sound.Offset = uint32(dataStart) + e.Offset
				sound.Size = e.Size
			}
		}
		payload, err := bodyBytes(obj.Body)
		if err != nil {
			return fmt.Errorf("bank: encode object id %d: %w", obj.ID, err)
		}
		if err := bw.U8(obj.Type); err != nil {
			return err
		}
		if err := bw.U32(uint32(len(payload) + 4)); err != nil {
			return err
		}
		if err := bw.U32(obj.ID); err != nil {
			return err
		}
		if err := bw.Bytes(payload); err != nil {
			return err
		}
	}
	hircEnd, err := bw.Tell()
	if err != nil {
		return err
	}
	if _, err := bw.Seek(hircLenPos, 0); err != nil {
		return err
	}
	if err := bw.U32(uint32(hircEnd - hircBodyStart)); err != nil {
		return err
	}
	if _, err := bw.Seek(hircEnd, 0); err != nil {
		return err
	}

	if b.STID != nil {
		if err := writeChunk(bw, "STID", func(w *binio.Writer) error {
			if err := w.U32(b.STID.Reserved); err != nil {
				return err
			}
			if err := w.U32(b.STID.Quantity); err != nil {
				return err
			}
			return w.Bytes(b.STID.Tail)
		}); err != nil {
			return err
		}
	}

	_, err = w.Write(sw.buf)
	return err
}

// writeChunk writes tag, a placeholder length, runs body against w, then
// patches the length to the number of bytes body actually produced.
func writeChunk(w *binio.Writer, tag string, body func(*binio.Writer) error) error {
	if err := w.Tag(tag); err != nil {
		return err
	}
	lenPos, err := w.Tell()
	if err != nil {
		return err
	}
	if err := w.U32(0); err != nil {
		return err
	}
	start, err := w.Tell()
	if err != nil {
		return err
	}
	if err := body(w); err != nil {
		return err
	}
	end, err := w.Tell()
	if err != nil {
		return err
	}
	if _, err := w.Seek(lenPos, 0); err != nil {
		return err
	}
	if err := w.U32(uint32(end - start)); err != nil {
		return err
	}
	_, err = w.Seek(end, 0)
	return err
}

// recomputeDidxOffsets returns each entry's offset as the running sum of
// sizes in current list order, per the rebuild invariant.
func recomputeDidxOffsets(entries []DidxEntry) []uint32 {
	offsets := make([]uint32, len(entries))
	var cursor uint32
	for i, e := range entries {
		offsets[i] = cursor
		cursor += e.Size
	}
	return offsets
}

// RebuildFromFolder replaces the payload of every DIDX entry whose numeric
// id matches a "<id>.wem" file found directly under folder. Only the
// in-memory Bank is mutated and nothing is written; callers call Rebuild
// explicitly to produce output bytes.
func (b *Bank) RebuildFromFolder(folder string) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("bank: read folder: %w", err)
	}

	byID := make(map[uint32]int, len(b.DIDX))
	for i, e := range b.DIDX {
		byID[e.ID] = i
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wem") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		id, err := strconv.ParseUint(base, 10, 32)
		if err != nil {
			continue
		}
		idx, ok := byID[uint32(id)]
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(folder, entry.Name()))
		if err != nil {
			return fmt.Errorf("bank: read %s: %w", entry.Name(), err)
		}
		if err := b.replaceDidxPayload(idx, data); err != nil {
			return err
		}
	}
	return nil
}

// replaceDidxPayload swaps entry idx's bytes within b.Data and updates its
// recorded size; offsets are recomputed wholesale by Rebuild.
func (b *Bank) replaceDidxPayload(idx int, data []byte) error {
	if idx < 0 || idx >= len(b.DIDX) {
		return errors.New("bank: DIDX index out of range")
	}
	old := b.DIDX[idx]
	before := b.Data[:recomputeDidxOffsets(b.DIDX)[idx]]
	afterStart := recomputeDidxOffsets(b.DIDX)[idx] + old.Size
	after := b.Data[afterStart:]

	combined := make([]byte, 0, len(before)+len(data)+len(after))
	combined = append(combined, before...)
	combined = append(combined, data...)
	combined = append(combined, after...)
	b.Data = combined
	b.DIDX[idx].Size = uint32(len(data))
	return nil
}
