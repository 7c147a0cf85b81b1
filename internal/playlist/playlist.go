// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package playlist encodes and decodes the flat, human-editable text format
// used to round-trip a MusicPlaylist object (section headers in square
// brackets, "key=value" lines). No third-party ini library appears anywhere
// in the reference corpus, so this hand-rolled scanner is the closest match
// to the reference tool's own approach.
package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformed is returned for any line that cannot be parsed as either a
// section header or a key=value pair. Keys absent from a section are not
// reported; the corresponding fields keep their zero values.
var ErrMalformed = errors.New("playlist: malformed text")

// NewIDPlaceholder marks a playlist-element id that must be replaced by a
// freshly allocated id, unique within the playlist, on reimport.
const NewIDPlaceholder = "<NEW ID>"

// Transition mirrors one [TRANSITION i] section.
type Transition struct {
	FadeInDuration  int32
	FadeInCurve     uint32
	FadeInOffset    int32
	FadeOutDuration int32
	FadeOutCurve    uint32
	FadeOutOffset   int32
	HasSegment      bool
	TransSegmentID  uint32
	FadeInType      uint8
	FadeOutType     uint8
}

// Element mirrors one [PLAYLIST ELEMENT i] section. Tracks is informational
// only: it documents which MusicTrack ids sit under MusicSegmentID and is
// never consulted on reimport.
type Element struct {
	Tracks         []uint32
	MusicSegmentID uint32
	ID             uint32
	NewID          bool
	ChildElements  uint32
	PlaylistType   int32
	LoopCount      uint16
	Weight         uint32
	TimesInRow     uint16
	Flag           uint8
	RandomType     uint8
}

// Document is a fully parsed (or about-to-be-serialised) playlist text file.
type Document struct {
	Segments     []uint32
	MoveSegments []uint32
	Transitions  []Transition
	Elements     []Element
}

// Encode writes d in the flat section/key format.
func Encode(w io.Writer, d *Document) error {
	bw := bufio.NewWriter(w)

	if len(d.Segments) > 0 {
		fmt.Fprintln(bw, "[SEGMENTS]")
		for i, id := range d.Segments {
			fmt.Fprintf(bw, "segment%d=%d\n", i+1, id)
		}
		fmt.Fprintln(bw)
	}
	if len(d.MoveSegments) > 0 {
		fmt.Fprintln(bw, "[MOVE SEGMENTS]")
		for i, id := range d.MoveSegments {
			fmt.Fprintf(bw, "move%d=%d\n", i+1, id)
		}
		fmt.Fprintln(bw)
	}
	for i, t := range d.Transitions {
		fmt.Fprintf(bw, "[TRANSITION %d]\n", i+1)
		fmt.Fprintf(bw, "fade_in_duration=%d\n", t.FadeInDuration)
		fmt.Fprintf(bw, "fade_in_curve=%d\n", t.FadeInCurve)
		fmt.Fprintf(bw, "fade_in_offset=%d\n", t.FadeInOffset)
		fmt.Fprintf(bw, "fade_out_duration=%d\n", t.FadeOutDuration)
		fmt.Fprintf(bw, "fade_out_curve=%d\n", t.FadeOutCurve)
		fmt.Fprintf(bw, "fade_out_offset=%d\n", t.FadeOutOffset)
		fmt.Fprintf(bw, "has_segment=%s\n", boolStr(t.HasSegment))
		fmt.Fprintf(bw, "trans_segment_id=%d\n", t.TransSegmentID)
		fmt.Fprintf(bw, "fade_in_type=%d\n", t.FadeInType)
		fmt.Fprintf(bw, "fade_out_type=%d\n", t.FadeOutType)
		fmt.Fprintln(bw)
	}
	for i, e := range d.Elements {
		fmt.Fprintf(bw, "[PLAYLIST ELEMENT %d]\n", i+1)
		fmt.Fprintf(bw, "tracks=%s\n", joinUint32(e.Tracks))
		fmt.Fprintf(bw, "music_segment_id=%d\n", e.MusicSegmentID)
		if e.NewID {
			fmt.Fprintf(bw, "id=%s\n", NewIDPlaceholder)
		} else {
			fmt.Fprintf(bw, "id=%d\n", e.ID)
		}
		fmt.Fprintf(bw, "child_elements=%d\n", e.ChildElements)
		fmt.Fprintf(bw, "playlist_type=%d\n", e.PlaylistType)
		fmt.Fprintf(bw, "loop_count=%d\n", e.LoopCount)
		fmt.Fprintf(bw, "weight=%d\n", e.Weight)
		fmt.Fprintf(bw, "times_in_row=%d\n", e.TimesInRow)
		fmt.Fprintf(bw, "unk_field8_1=%d\n", e.Flag)
		fmt.Fprintf(bw, "random_type=%d\n", e.RandomType)
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func joinUint32(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

// Decode parses the flat section/key format produced by Encode.
func Decode(r io.Reader) (*Document, error) {
	sc := bufio.NewScanner(r)
	doc := &Document{}

	var (
		section      string
		segments     = map[int]uint32{}
		moveSegments = map[int]uint32{}
		transitions  = map[int]Transition{}
		elements     = map[int]Element{}
	)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("playlist: line %q: %w", line, ErrMalformed)
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)

		switch {
		case section == "SEGMENTS" && strings.HasPrefix(key, "segment"):
			idx, id, err := indexedUint(key, "segment", val)
			if err != nil {
				return nil, err
			}
			segments[idx] = id
		case section == "MOVE SEGMENTS" && strings.HasPrefix(key, "move"):
			idx, id, err := indexedUint(key, "move", val)
			if err != nil {
				return nil, err
			}
			moveSegments[idx] = id
		case strings.HasPrefix(section, "TRANSITION "):
			idx, err := strconv.Atoi(strings.TrimSpace(section[len("TRANSITION "):]))
			if err != nil {
				return nil, fmt.Errorf("playlist: section %q: %w", section, ErrMalformed)
			}
			t := transitions[idx]
			if err := setTransitionField(&t, key, val); err != nil {
				return nil, err
			}
			transitions[idx] = t
		case strings.HasPrefix(section, "PLAYLIST ELEMENT "):
			idx, err := strconv.Atoi(strings.TrimSpace(section[len("PLAYLIST ELEMENT "):]))
			if err != nil {
				return nil, fmt.Errorf("playlist: section %q: %w", section, ErrMalformed)
			}
			e := elements[idx]
			if err := setElementField(&e, key, val); err != nil {
				return nil, err
			}
			elements[idx] = e
		default:
			return nil, fmt.Errorf("playlist: key %q in section %q: %w", key, section, ErrMalformed)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("playlist: scan: %w", err)
	}

	doc.Segments = orderedUint32(segments)
	doc.MoveSegments = orderedUint32(moveSegments)
	doc.Transitions = orderedTransitions(transitions)
	doc.Elements = orderedElements(elements)
	return doc, nil
}

func indexedUint(key, prefix, val string) (int, uint32, error) {
	idx, err := strconv.Atoi(strings.TrimPrefix(key, prefix))
	if err != nil {
		return 0, 0, fmt.Errorf("playlist: key %q: %w", key, ErrMalformed)
	}
	id, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("playlist: value %q: %w", val, ErrMalformed)
	}
	return idx, uint32(id), nil
}

func setTransitionField(t *Transition, key, val string) error {
	var err error
	switch key {
	case "fade_in_duration":
		t.FadeInDuration, err = parseInt32(val)
	case "fade_in_curve":
		t.FadeInCurve, err = parseUint32(val)
	case "fade_in_offset":
		t.FadeInOffset, err = parseInt32(val)
	case "fade_out_duration":
		t.FadeOutDuration, err = parseInt32(val)
	case "fade_out_curve":
		t.FadeOutCurve, err = parseUint32(val)
	case "fade_out_offset":
		t.FadeOutOffset, err = parseInt32(val)
	case "has_segment":
		t.HasSegment = val == "1" || strings.EqualFold(val, "true")
	case "trans_segment_id":
		t.TransSegmentID, err = parseUint32(val)
	case "fade_in_type":
		t.FadeInType, err = parseUint8(val)
	case "fade_out_type":
		t.FadeOutType, err = parseUint8(val)
	default:
		return fmt.Errorf("playlist: unknown transition key %q: %w", key, ErrMalformed)
	}
	if err != nil {
		return fmt.Errorf("playlist: transition key %q value %q: %w", key, val, ErrMalformed)
	}
	return nil
}

func setElementField(e *Element, key, val string) error {
	var err error
	switch key {
	case "tracks":
		e.Tracks = nil
		if val != "" {
			for _, part := range strings.Split(val, ",") {
				id, perr := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
				if perr != nil {
					return fmt.Errorf("playlist: tracks value %q: %w", val, ErrMalformed)
				}
				e.Tracks = append(e.Tracks, uint32(id))
			}
		}
	case "music_segment_id":
		e.MusicSegmentID, err = parseUint32(val)
	case "id":
		if val == NewIDPlaceholder {
			e.NewID = true
			e.ID = 0
		} else {
			e.NewID = false
			e.ID, err = parseUint32(val)
		}
	case "child_elements":
		e.ChildElements, err = parseUint32(val)
	case "playlist_type":
		e.PlaylistType, err = parseInt32(val)
	case "loop_count":
		e.LoopCount, err = parseUint16(val)
	case "weight":
		e.Weight, err = parseUint32(val)
	case "times_in_row":
		e.TimesInRow, err = parseUint16(val)
	case "unk_field8_1":
		e.Flag, err = parseUint8(val)
	case "random_type":
		e.RandomType, err = parseUint8(val)
	default:
		return fmt.Errorf("playlist: unknown element key %q: %w", key, ErrMalformed)
	}
	if err != nil {
		return fmt.Errorf("playlist: element key %q value %q: %w", key, val, ErrMalformed)
	}
	return nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	return uint16(v), err
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	return uint8(v), err
}

func orderedUint32(m map[int]uint32) []uint32 {
	if len(m) == 0 {
		return nil
	}
	keys := sortedKeys(m)
	out := make([]uint32, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

func orderedTransitions(m map[int]Transition) []Transition {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Transition, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

func orderedElements(m map[int]Element) []Element {
	if len(m) == 0 {
		return nil
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]Element, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

func sortedKeys(m map[int]uint32) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
