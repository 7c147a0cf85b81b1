// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bank

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/kelindar/soundbank-toolkit/internal/objectid"
	"github.com/kelindar/soundbank-toolkit/internal/playlist"
)

// ExportPlaylist serialises the MusicPlaylist with the given id to the flat
// text format described in the playlist exchange spec.
func (b *Bank) ExportPlaylist(playlistID uint32, w io.Writer) error {
	idx := b.findByID(playlistID)
	if idx < 0 {
		return fmt.Errorf("bank: playlist %d: %w", playlistID, ErrNotFound)
	}
	mp, ok := b.HIRC[idx].Body.(*MusicPlaylist)
	if !ok {
		return fmt.Errorf("bank: object %d is not a MusicPlaylist: %w", playlistID, ErrBadInvariant)
	}

	doc := &playlist.Document{Segments: append([]uint32(nil), mp.SegmentIDs...)}
	for _, t := range mp.Transitions {
		doc.Transitions = append(doc.Transitions, playlist.Transition{
			FadeInDuration:  t.FadeInDuration,
			FadeInCurve:     t.FadeInCurve,
			FadeInOffset:    t.FadeInOffset,
			FadeOutDuration: t.FadeOutDuration,
			FadeOutCurve:    t.FadeOutCurve,
			FadeOutOffset:   t.FadeOutOffset,
			HasSegment:      t.HasSegment,
			TransSegmentID:  t.TransSegmentID,
			FadeInType:      t.FadeInType,
			FadeOutType:     t.FadeOutType,
		})
	}
	for _, e := range mp.Elements {
		doc.Elements = append(doc.Elements, playlist.Element{
			Tracks:         b.childTracksOf(e.MusicSegmentID),
			MusicSegmentID: e.MusicSegmentID,
			ID:             e.ID,
			ChildElements:  e.ChildElements,
			PlaylistType:   e.PlaylistType,
			LoopCount:      e.LoopCount,
			Weight:         e.Weight,
			TimesInRow:     e.TimesInRow,
			Flag:           e.Flag,
			RandomType:     e.RandomType,
		})
	}
	return playlist.Encode(w, doc)
}

// childTracksOf returns the child MusicTrack ids of the MusicSegment with
// the given id, for the informational "tracks" field only.
func (b *Bank) childTracksOf(segmentID uint32) []uint32 {
	idx := b.findByID(segmentID)
	if idx < 0 {
		return nil
	}
	seg, ok := b.HIRC[idx].Body.(*MusicSegment)
	if !ok {
		return nil
	}
	return append([]uint32(nil), seg.ChildIDs...)
}

// ReimportPlaylist replaces the MusicPlaylist with the given id from the
// text format produced by ExportPlaylist, resolving <NEW ID> placeholders
// and relocating any [MOVE SEGMENTS] entries (with their child tracks)
// immediately after the playlist's position in HIRC.
func (b *Bank) ReimportPlaylist(playlistID uint32, r io.Reader) error {
	idx := b.findByID(playlistID)
	if idx < 0 {
		return fmt.Errorf("bank: playlist %d: %w", playlistID, ErrNotFound)
	}
	mp, ok := b.HIRC[idx].Body.(*MusicPlaylist)
	if !ok {
		return fmt.Errorf("bank: object %d is not a MusicPlaylist: %w", playlistID, ErrBadInvariant)
	}

	doc, err := playlist.Decode(r)
	if err != nil {
		return fmt.Errorf("bank: decode playlist text: %w", err)
	}

	existing := map[uint32]bool{}
	for _, e := range doc.Elements {
		if !e.NewID {
			existing[e.ID] = true
		}
	}
	used := func(id uint32) bool { return existing[id] }

	mp.SegmentIDs = append([]uint32(nil), doc.Segments...)
	mp.Transitions = mp.Transitions[:0]
	for _, t := range doc.Transitions {
		mp.Transitions = append(mp.Transitions, Transition{
			FadeInDuration:  t.FadeInDuration,
			FadeInCurve:     t.FadeInCurve,
			FadeInOffset:    t.FadeInOffset,
			FadeOutDuration: t.FadeOutDuration,
			FadeOutCurve:    t.FadeOutCurve,
			FadeOutOffset:   t.FadeOutOffset,
			HasSegment:      t.HasSegment,
			TransSegmentID:  t.TransSegmentID,
			FadeInType:      t.FadeInType,
			FadeOutType:     t.FadeOutType,
		})
	}
	mp.Elements = mp.Elements[:0]
	for _, e := range doc.Elements {
		id := e.ID
		if e.NewID {
			id, err = objectid.New(rand.Reader, used, nil)
			if err != nil {
				return err
			}
			existing[id] = true
		}
		mp.Elements = append(mp.Elements, PlaylistElement{
			MusicSegmentID: e.MusicSegmentID,
			ID:             id,
			ChildElements:  e.ChildElements,
			PlaylistType:   e.PlaylistType,
			LoopCount:      e.LoopCount,
			Weight:         e.Weight,
			TimesInRow:     e.TimesInRow,
			Flag:           e.Flag,
			RandomType:     e.RandomType,
		})
	}

	if len(doc.MoveSegments) > 0 {
		b.relocateSegments(idx, doc.MoveSegments)
	}

	b.invalidateIndex()
	return nil
}

// relocateSegments moves each listed MusicSegment (preceded by its child
// MusicTracks) to immediately follow the object at playlistIdx, advancing a
// cursor past each inserted group so multiple moved segments end up in
// [MOVE SEGMENTS] order right after the playlist.
func (b *Bank) relocateSegments(playlistIdx int, segmentIDs []uint32) {
	cursor := playlistIdx + 1
	for _, segID := range segmentIDs {
		segIdx := b.findIndexLive(segID)
		if segIdx < 0 {
			continue
		}
		seg, ok := b.HIRC[segIdx].Body.(*MusicSegment)
		if !ok {
			continue
		}

		var group []Object
		for _, trackID := range seg.ChildIDs {
			if ti := b.findIndexLive(trackID); ti >= 0 {
				group = append(group, b.extractAt(ti))
				if ti < segIdx {
					segIdx--
				}
				if ti < playlistIdx {
					playlistIdx--
				}
				if ti < cursor {
					cursor--
				}
			}
		}
		group = append(group, b.extractAt(segIdx))
		if segIdx < playlistIdx {
			playlistIdx--
		}
		if segIdx < cursor {
			cursor--
		}

		b.HIRC = append(b.HIRC[:cursor], append(group, b.HIRC[cursor:]...)...)
		cursor += len(group)
		b.invalidateIndex()
	}
}

// findIndexLive is findByID without relying on a cache that relocateSegments
// invalidates on every mutation.
func (b *Bank) findIndexLive(id uint32) int {
	for i, obj := range b.HIRC {
		if obj.ID == id {
			return i
		}
	}
	return -1
}

// extractAt removes and returns the object at idx, shifting later elements
// down by one.
func (b *Bank) extractAt(idx int) Object {
	obj := b.HIRC[idx]
	b.HIRC = append(b.HIRC[:idx], b.HIRC[idx+1:]...)
	return obj
}
