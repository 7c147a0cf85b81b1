// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bank

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/soundbank-toolkit/internal/sndstruct"
	"github.com/kelindar/soundbank-toolkit/wem"
)

func emptyStructure() *sndstruct.Structure {
	return &sndstruct.Structure{}
}

// writeTestWem builds a minimal, valid fake-vorb WEM file at dir/<audioID>.wem
// and returns its path.
func writeTestWem(t *testing.T, dir string, audioID uint32, sampleRate, sampleCount uint32) string {
	t.Helper()
	f := &wem.File{
		Channels:               2,
		SampleRate:             sampleRate,
		AvgBytesPerSecond:      sampleRate * 2,
		Subtype:                1,
		SampleCount:            sampleCount,
		ModSignal:              0x4A,
		DataSetup:              []byte{0x01, 0x02},
		Data:                   []byte{0x10, 0x11, 0x12, 0x13},
		UID:                    0xABCD,
		Blocksize0Pow:          8,
		Blocksize1Pow:          9,
		FirstAudioPacketOffset: 2,
	}

	path := filepath.Join(dir, strconv.FormatUint(uint64(audioID), 10)+".wem")
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()
	require.NoError(t, f.WriteTo(out))
	return path
}

// newTestBank builds an in-memory, non-init Bank with one Sound, one Event,
// one EventAction, a MusicTrack+MusicSegment pair (audio id 111) and a
// MusicPlaylist referencing that segment.
func newTestBank() *Bank {
	b := &Bank{
		BKHD: Header{Version: bankVersion, ID: 1},
		DIDX: []DidxEntry{{ID: 111, Offset: 0, Size: 4}},
		Data: []byte{0xAA, 0xBB, 0xCC, 0xDD},
		HIRC: []Object{
			{Type: TypeSound, ID: 1001, Body: &Sound{
				IncludeType: IncludeEmbedded,
				AudioID:     111,
				SourceID:    111,
				Structure:   emptyStructure(),
			}},
			{Type: TypeEvent, ID: 2001, Body: &Event{ActionIDs: []uint32{2002}}},
			{Type: TypeEventAction, ID: 2002, Body: &EventAction{
				ActionType: ActionSetState,
				SetState:   &SetStateParams{StateGroupID: 10, StateID: 20},
			}},
			{Type: TypeMusicTrack, ID: 3001, Body: &MusicTrack{
				ID1:      111,
				Extended: &MusicTrackExtended{ID2: 111, ID3: 111},
			}},
			{Type: TypeMusicSegment, ID: 3002, Body: &MusicSegment{
				Structure: emptyStructure(),
				ChildIDs:  []uint32{3001},
			}},
			{Type: TypeMusicPlaylist, ID: 3003, Body: &MusicPlaylist{
				Structure:  emptyStructure(),
				SegmentIDs: []uint32{3002},
				Transitions: []Transition{
					{HasSegment: true, TransSegmentID: 3002},
				},
				Elements: []PlaylistElement{
					{MusicSegmentID: 3002, ID: 9001},
				},
			}},
		},
	}
	return b
}

func TestRebuildRoundTrip(t *testing.T) {
	b := newTestBank()

	var buf bytes.Buffer
	require.NoError(t, b.Rebuild(&buf))

	got, err := decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.EqualValues(t, bankVersion, got.BKHD.Version)
	require.Len(t, got.DIDX, 1)
	assert.EqualValues(t, 111, got.DIDX[0].ID)
	assert.Equal(t, b.Data, got.Data)
	require.Len(t, got.HIRC, 6)

	sound, ok := got.HIRC[0].Body.(*Sound)
	require.True(t, ok)
	assert.EqualValues(t, 111, sound.AudioID)
	assert.EqualValues(t, 4, sound.Size)
}

func TestRebuildMusic(t *testing.T) {
	dir := t.TempDir()
	wemPath := writeTestWem(t, dir, 111, 48000, 96000)

	b := newTestBank()
	require.NoError(t, b.RebuildMusic(wemPath))

	trackObj := b.HIRC[3]
	custom, ok := trackObj.Body.(*MusicTrackCustom)
	require.True(t, ok)
	assert.EqualValues(t, 111, custom.ID1)
	assert.InDelta(t, 2000.0, custom.TimeLength, 0.001) // 96000/48000*1000
	assert.EqualValues(t, 3002, custom.Parent)

	seg := b.HIRC[4].Body.(*MusicSegment)
	assert.InDelta(t, 2000.0, seg.TimeLength, 0.001)
	assert.InDelta(t, 2000.0, seg.TimeLengthNext, 0.001)
	assert.Equal(t, []uint32{3001}, seg.ChildIDs)
}

func TestRebuildMusicNoMatch(t *testing.T) {
	dir := t.TempDir()
	wemPath := writeTestWem(t, dir, 999, 48000, 48000)

	b := newTestBank()
	err := b.RebuildMusic(wemPath)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMusic(t *testing.T) {
	dir := t.TempDir()
	wemPath := writeTestWem(t, dir, 222, 44100, 44100)

	b := newTestBank()
	segmentID, err := b.AddMusic(wemPath)
	require.NoError(t, err)
	assert.NotZero(t, segmentID)

	idx := b.findByID(segmentID)
	require.GreaterOrEqual(t, idx, 0)
	seg, ok := b.HIRC[idx].Body.(*MusicSegment)
	require.True(t, ok)
	require.Len(t, seg.ChildIDs, 1)

	trackIdx := b.findByID(seg.ChildIDs[0])
	require.GreaterOrEqual(t, trackIdx, 0)
	custom, ok := b.HIRC[trackIdx].Body.(*MusicTrackCustom)
	require.True(t, ok)
	assert.EqualValues(t, 222, custom.ID1)
	assert.EqualValues(t, segmentID, custom.Parent)
}

func TestAddMusicRejectsExistingAudioID(t *testing.T) {
	dir := t.TempDir()
	wemPath := writeTestWem(t, dir, 111, 48000, 48000)

	b := newTestBank()
	_, err := b.AddMusic(wemPath)
	assert.ErrorIs(t, err, ErrBadInvariant)
}

func TestGetPlaylistIDs(t *testing.T) {
	b := newTestBank()
	ids, err := b.GetPlaylistIDs(111)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3003}, ids)

	_, err = b.GetPlaylistIDs(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportReimportPlaylistRoundTrip(t *testing.T) {
	b := newTestBank()

	var buf bytes.Buffer
	require.NoError(t, b.ExportPlaylist(3003, &buf))
	assert.Contains(t, buf.String(), "[SEGMENTS]")
	assert.Contains(t, buf.String(), "[PLAYLIST ELEMENT 1]")

	require.NoError(t, b.ReimportPlaylist(3003, bytes.NewReader(buf.Bytes())))

	idx := b.findByID(3003)
	require.GreaterOrEqual(t, idx, 0)
	mp := b.HIRC[idx].Body.(*MusicPlaylist)
	assert.Equal(t, []uint32{3002}, mp.SegmentIDs)
	require.Len(t, mp.Elements, 1)
	assert.EqualValues(t, 9001, mp.Elements[0].ID)
}

func TestDebugReport(t *testing.T) {
	b := newTestBank()
	r := b.Debug()
	assert.EqualValues(t, 6, r.HircQuantity)
	assert.Equal(t, 1, r.DidxEntries)
	s := r.String()
	assert.Contains(t, s, "HEAD HIRC QUANTITY=6")
	assert.Contains(t, s, "TYPE")
}

func TestDebugEventAndSound(t *testing.T) {
	b := newTestBank()

	ev, err := b.DebugEvent(2001)
	require.NoError(t, err)
	assert.Contains(t, ev.String(), "2001")

	snd, err := b.DebugSound(1001)
	require.NoError(t, err)
	assert.Contains(t, snd.String(), "1001")

	_, err = b.DebugSound(2001)
	assert.ErrorIs(t, err, ErrBadInvariant)
}

func TestDebugOwners(t *testing.T) {
	b := newTestBank()
	owners, err := b.DebugOwners(3001)
	require.NoError(t, err)
	assert.Contains(t, owners, uint32(3002))

	owners, err = b.DebugOwners(3002)
	require.NoError(t, err)
	assert.Contains(t, owners, uint32(3003))
}

func TestDumpSounds(t *testing.T) {
	b := newTestBank()
	dir := t.TempDir()
	require.NoError(t, b.DumpSounds(dir))

	data, err := os.ReadFile(filepath.Join(dir, "111.wem"))
	require.NoError(t, err)
	assert.Equal(t, b.Data, data)
}
