// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bank

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kelindar/soundbank-toolkit/internal/objectid"
	"github.com/kelindar/soundbank-toolkit/wem"
)

// audioIDFromWemPath treats the numeric basename of a WEM file as the
// target audio id, e.g. "12345.wem" -> 12345.
func audioIDFromWemPath(wemPath string) (uint32, error) {
	base := strings.TrimSuffix(filepath.Base(wemPath), filepath.Ext(wemPath))
	id, err := strconv.ParseUint(base, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bank: wem basename %q is not numeric: %w", base, ErrBadInvariant)
	}
	return uint32(id), nil
}

func newTimeMs(f *wem.File) float64 {
	return float64(f.SampleCount) / float64(f.SampleRate) * 1000
}

// RebuildMusic re-skins every MusicTrack whose audio source id matches
// wemPath's numeric basename with a "custom" layout derived from the WEM's
// sample_count/sample_rate, and patches the owning MusicSegment(s) to match
// the new duration.
func (b *Bank) RebuildMusic(wemPath string) error {
	f, err := wem.Read(wemPath)
	if err != nil {
		return fmt.Errorf("bank: read wem: %w", err)
	}
	audioID, err := audioIDFromWemPath(wemPath)
	if err != nil {
		return err
	}
	newTime := newTimeMs(f)

	trackIdx := map[uint32]int{} // track object id -> HIRC index
	for i, obj := range b.HIRC {
		if obj.Type != TypeMusicTrack {
			continue
		}
		mt, ok := obj.Body.(*MusicTrack)
		if !ok || mt.ID1 != audioID {
			continue
		}
		trackIdx[obj.ID] = i
	}
	if len(trackIdx) == 0 {
		return fmt.Errorf("bank: no MusicTrack uses audio id %d: %w", audioID, ErrNotFound)
	}

	segForTrack := map[uint32]uint32{} // track id -> owning segment id
	for _, obj := range b.HIRC {
		if obj.Type != TypeMusicSegment {
			continue
		}
		seg, ok := obj.Body.(*MusicSegment)
		if !ok {
			continue
		}
		matched := matchingChild(seg.ChildIDs, trackIdx)
		if matched == 0 {
			continue
		}
		if len(seg.ChildIDs) > 1 {
			seg.ChildIDs = []uint32{matched}
		}
		seg.UnkDouble1 = 1000.0
		seg.UnkUint64_1 = 0
		seg.UnkUint64_2 = 0
		seg.TimeLength = newTime
		seg.TimeLengthNext = newTime
		segForTrack[matched] = obj.ID
	}

	for trackID, idx := range trackIdx {
		parent := segForTrack[trackID]
		b.HIRC[idx].Body = NewMusicTrackCustom(audioID, newTime, parent)
	}

	b.invalidateIndex()
	return nil
}

// matchingChild returns the first childID present in trackIdx, or 0 if none
// matches.
func matchingChild(childIDs []uint32, trackIdx map[uint32]int) uint32 {
	for _, id := range childIDs {
		if _, ok := trackIdx[id]; ok {
			return id
		}
	}
	return 0
}

// AddMusic appends a brand-new MusicTrack/MusicSegment pair built from
// wemPath's sample data, cloning an existing MusicSegment as a template. It
// fails if any MusicTrack already targets the WEM's audio id. The new ids
// avoid every live HIRC id and, when an objectids.db file exists in the
// working directory, every id listed there. Returns the new segment's id.
func (b *Bank) AddMusic(wemPath string) (uint32, error) {
	f, err := wem.Read(wemPath)
	if err != nil {
		return 0, fmt.Errorf("bank: read wem: %w", err)
	}
	audioID, err := audioIDFromWemPath(wemPath)
	if err != nil {
		return 0, err
	}
	newTime := newTimeMs(f)

	for _, obj := range b.HIRC {
		if obj.Type != TypeMusicTrack {
			continue
		}
		if mt, ok := obj.Body.(*MusicTrack); ok && mt.ID1 == audioID {
			return 0, fmt.Errorf("bank: MusicTrack already uses audio id %d: %w", audioID, ErrBadInvariant)
		}
	}

	var template *MusicSegment
	for _, obj := range b.HIRC {
		if obj.Type != TypeMusicSegment {
			continue
		}
		if seg, ok := obj.Body.(*MusicSegment); ok {
			template = seg
			break
		}
	}
	if template == nil {
		return 0, fmt.Errorf("bank: no MusicSegment template available: %w", ErrNotFound)
	}

	var db *objectid.Database
	if raw, err := os.ReadFile("objectids.db"); err == nil {
		if db, err = objectid.ParseDatabase(raw); err != nil {
			return 0, fmt.Errorf("bank: objectids.db: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("bank: read objectids.db: %w", err)
	}

	used := func(id uint32) bool { return b.findByID(id) >= 0 }
	trackID, err := objectid.New(rand.Reader, used, db)
	if err != nil {
		return 0, err
	}
	segmentID, err := objectid.New(rand.Reader, used, db)
	if err != nil {
		return 0, err
	}

	newSeg := cloneMusicSegment(template)
	newSeg.ChildIDs = []uint32{trackID}
	newSeg.UnkDouble1 = 1000.0
	newSeg.UnkUint64_1 = 0
	newSeg.UnkUint64_2 = 0
	newSeg.TimeLength = newTime
	newSeg.TimeLengthNext = newTime
	if newSeg.Structure != nil {
		newSeg.Structure.ParentID = 0
	}

	b.HIRC = append(b.HIRC,
		Object{Type: TypeMusicTrack, ID: trackID, Body: NewMusicTrackCustom(audioID, newTime, segmentID)},
		Object{Type: TypeMusicSegment, ID: segmentID, Body: newSeg},
	)
	b.invalidateIndex()
	return segmentID, nil
}

func cloneMusicSegment(src *MusicSegment) *MusicSegment {
	dup := *src
	dup.ChildIDs = append([]uint32(nil), src.ChildIDs...)
	dup.Tail = append([]byte(nil), src.Tail...)
	if src.Structure != nil {
		s := *src.Structure
		dup.Structure = &s
	}
	return &dup
}

// GetPlaylistIDs resolves audioID -> owning MusicTracks -> owning
// MusicSegments -> owning MusicPlaylists, by scanning the object list three
// times.
func (b *Bank) GetPlaylistIDs(audioID uint32) ([]uint32, error) {
	trackIDs := map[uint32]bool{}
	for _, obj := range b.HIRC {
		if obj.Type != TypeMusicTrack {
			continue
		}
		if mt, ok := obj.Body.(*MusicTrack); ok && mt.ID1 == audioID {
			trackIDs[obj.ID] = true
		}
	}
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("bank: no MusicTrack uses audio id %d: %w", audioID, ErrNotFound)
	}

	segIDs := map[uint32]bool{}
	for _, obj := range b.HIRC {
		if obj.Type != TypeMusicSegment {
			continue
		}
		seg, ok := obj.Body.(*MusicSegment)
		if !ok {
			continue
		}
		for _, id := range seg.ChildIDs {
			if trackIDs[id] {
				segIDs[obj.ID] = true
				break
			}
		}
	}
	if len(segIDs) == 0 {
		return nil, fmt.Errorf("bank: no MusicSegment owns a matching track: %w", ErrNotFound)
	}

	var playlistIDs []uint32
	for _, obj := range b.HIRC {
		if obj.Type != TypeMusicPlaylist {
			continue
		}
		mp, ok := obj.Body.(*MusicPlaylist)
		if !ok {
			continue
		}
		for _, id := range mp.SegmentIDs {
			if segIDs[id] {
				playlistIDs = append(playlistIDs, obj.ID)
				break
			}
		}
	}
	if len(playlistIDs) == 0 {
		return nil, fmt.Errorf("bank: no MusicPlaylist owns a matching segment: %w", ErrNotFound)
	}
	return playlistIDs, nil
}
