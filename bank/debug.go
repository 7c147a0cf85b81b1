// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bank

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DebugReport is the default `--debug` summary: chunk sizes plus a
// per-object-type histogram of the HIRC chunk.
type DebugReport struct {
	BkhdLength   uint32
	Version      uint32
	DidxEntries  int
	DataLength   int
	HircQuantity int
	TypeCounts   map[byte]int
}

// Debug builds the default summary report.
func (b *Bank) Debug() *DebugReport {
	r := &DebugReport{
		Version:      b.BKHD.Version,
		DidxEntries:  len(b.DIDX),
		DataLength:   len(b.Data),
		HircQuantity: len(b.HIRC),
		TypeCounts:   map[byte]int{},
	}
	r.BkhdLength = 16 + uint32(len(b.BKHD.TrailingOK))
	for _, obj := range b.HIRC {
		r.TypeCounts[obj.Type]++
	}
	return r
}

// String renders the report in the flat "HEAD X Y=Z" / "TYPE n: count" form.
func (r *DebugReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "HEAD BKHD LENGTH=%d\n", r.BkhdLength)
	fmt.Fprintf(&sb, "HEAD BKHD VERSION=%#x\n", r.Version)
	if r.DidxEntries > 0 {
		fmt.Fprintf(&sb, "HEAD DIDX QUANTITY=%d\n", r.DidxEntries)
		fmt.Fprintf(&sb, "HEAD DATA LENGTH=%d\n", r.DataLength)
	}
	fmt.Fprintf(&sb, "HEAD HIRC QUANTITY=%d\n", r.HircQuantity)

	types := make([]int, 0, len(r.TypeCounts))
	for t := range r.TypeCounts {
		types = append(types, int(t))
	}
	sort.Ints(types)
	for _, t := range types {
		fmt.Fprintf(&sb, "TYPE %d: %d\n", t, r.TypeCounts[byte(t)])
	}
	return sb.String()
}

// DebugObject is a field-name/value dump of a single HIRC object, for
// `--debug-event`, `--debug-sound`, and `--debug-object`.
type DebugObject struct {
	Type   byte
	ID     uint32
	Fields []string
}

// String renders one "name=value" pair per line.
func (d *DebugObject) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TYPE=%#x ID=%d\n", d.Type, d.ID)
	for _, f := range d.Fields {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DebugObject dumps the object with the given id, dispatching on its
// decoded type when known, falling back to the opaque payload length.
func (b *Bank) DebugObject(id uint32) (*DebugObject, error) {
	idx := b.findByID(id)
	if idx < 0 {
		return nil, fmt.Errorf("bank: object %d: %w", id, ErrNotFound)
	}
	obj := b.HIRC[idx]
	d := &DebugObject{Type: obj.Type, ID: obj.ID}
	switch body := obj.Body.(type) {
	case *Sound:
		d.Fields = []string{
			fmt.Sprintf("include_type=%d", body.IncludeType),
			fmt.Sprintf("audio_id=%d", body.AudioID),
			fmt.Sprintf("source_id=%d", body.SourceID),
			fmt.Sprintf("sound_type=%d", body.SoundType),
		}
	case *Event:
		ids := make([]string, len(body.ActionIDs))
		for i, a := range body.ActionIDs {
			ids[i] = fmt.Sprint(a)
		}
		d.Fields = []string{fmt.Sprintf("action_ids=[%s]", strings.Join(ids, ","))}
	case *EventAction:
		d.Fields = []string{
			fmt.Sprintf("scope=%d", body.Scope),
			fmt.Sprintf("action_type=%#x", body.ActionType),
			fmt.Sprintf("game_object_id=%d", body.GameObjectID),
		}
	case *MusicSegment:
		d.Fields = []string{
			fmt.Sprintf("child_ids=%v", body.ChildIDs),
			fmt.Sprintf("time_length=%v", body.TimeLength),
			fmt.Sprintf("time_length_next=%v", body.TimeLengthNext),
		}
	case *MusicTrack:
		d.Fields = []string{fmt.Sprintf("id1=%d", body.ID1)}
	case *MusicTrackCustom:
		d.Fields = []string{
			fmt.Sprintf("id1=%d", body.ID1),
			fmt.Sprintf("time_length=%v", body.TimeLength),
			fmt.Sprintf("parent=%d", body.Parent),
		}
	case *MusicPlaylist:
		d.Fields = []string{fmt.Sprintf("segment_ids=%v", body.SegmentIDs)}
	case *Opaque:
		d.Fields = []string{fmt.Sprintf("payload_length=%d", len(body.Payload))}
	}
	return d, nil
}

// DebugEvent dumps the object with the given id, requiring it to be an
// Event.
func (b *Bank) DebugEvent(id uint32) (*DebugObject, error) {
	return b.debugTyped(id, TypeEvent, "Event")
}

// DebugSound dumps the object with the given id, requiring it to be a
// Sound.
func (b *Bank) DebugSound(id uint32) (*DebugObject, error) {
	return b.debugTyped(id, TypeSound, "Sound")
}

func (b *Bank) debugTyped(id uint32, want byte, name string) (*DebugObject, error) {
	idx := b.findByID(id)
	if idx < 0 {
		return nil, fmt.Errorf("bank: object %d: %w", id, ErrNotFound)
	}
	if b.HIRC[idx].Type != want {
		return nil, fmt.Errorf("bank: object %d is not a %s: %w", id, name, ErrBadInvariant)
	}
	return b.DebugObject(id)
}

// DebugOwners walks the object graph in reverse, returning every object id
// that directly references id (an Event referencing an action, a
// MusicSegment referencing a track, a MusicPlaylist referencing a segment).
func (b *Bank) DebugOwners(id uint32) ([]uint32, error) {
	if b.findByID(id) < 0 {
		return nil, fmt.Errorf("bank: object %d: %w", id, ErrNotFound)
	}
	var owners []uint32
	for _, obj := range b.HIRC {
		if referencesID(obj.Body, id) {
			owners = append(owners, obj.ID)
		}
	}
	return owners, nil
}

func referencesID(body ObjectBody, id uint32) bool {
	switch v := body.(type) {
	case *Event:
		return containsUint32(v.ActionIDs, id)
	case *MusicSegment:
		return containsUint32(v.ChildIDs, id)
	case *MusicPlaylist:
		if containsUint32(v.SegmentIDs, id) {
			return true
		}
		for _, t := range v.Transitions {
			if t.HasSegment && t.TransSegmentID == id {
				return true
			}
		}
		for _, e := range v.Elements {
			if e.MusicSegmentID == id {
				return true
			}
		}
	}
	return false
}

func containsUint32(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// DumpSounds writes each DIDX entry's payload to folder/<id>.wem.
func (b *Bank) DumpSounds(folder string) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("bank: mkdir %s: %w", folder, err)
	}
	for _, e := range b.DIDX {
		if int64(e.Offset)+int64(e.Size) > int64(len(b.Data)) {
			return fmt.Errorf("bank: DIDX entry %d out of bounds: %w", e.ID, ErrBadInvariant)
		}
		payload := b.Data[e.Offset : e.Offset+e.Size]
		path := filepath.Join(folder, fmt.Sprintf("%d.wem", e.ID))
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("bank: write %s: %w", path, err)
		}
	}
	return nil
}
