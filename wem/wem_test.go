// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wem

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

// buildFakeVorb constructs a minimal, valid fake-vorb WEM byte stream for
// tests: fmt chunk of size 0x42 (no separate vorb chunk) plus a data chunk.
func buildFakeVorb(t *testing.T, sampleRate, sampleCount uint32, preData, dataSetup, data []byte) []byte {
	t.Helper()
	sw := &seekWriter{}
	bw := binio.NewWriter(sw)

	require.NoError(t, bw.Tag("RIFF"))
	require.NoError(t, bw.U32(0))
	require.NoError(t, bw.Tag("WAVE"))

	f := &File{
		Channels:               2,
		SampleRate:             sampleRate,
		AvgBytesPerSecond:      sampleRate * 2,
		ExtUnk:                 0,
		Subtype:                1,
		SampleCount:            sampleCount,
		ModSignal:              0x4A,
		SetupPacketOffset:      uint32(len(preData)),
		FirstAudioPacketOffset: uint32(len(preData) + len(dataSetup)),
		UID:                    0xABCD,
		Blocksize0Pow:          8,
		Blocksize1Pow:          9,
	}
	require.NoError(t, writeFmtChunk(bw, f))

	databuf := append(append(append([]byte{}, preData...), dataSetup...), data...)
	require.NoError(t, bw.Tag("data"))
	require.NoError(t, bw.U32(uint32(len(databuf))))
	require.NoError(t, bw.Bytes(databuf))

	total, err := bw.Tell()
	require.NoError(t, err)
	_, err = bw.Seek(4, 0)
	require.NoError(t, err)
	require.NoError(t, bw.U32(uint32(total-8)))

	return sw.buf
}

func TestReadFakeVorb(t *testing.T) {
	preData := []byte{0xAA, 0xBB}
	dataSetup := []byte{0x01, 0x02, 0x03}
	data := []byte{0x10, 0x11, 0x12, 0x13}

	raw := buildFakeVorb(t, 48000, 48000, preData, dataSetup, data)
	f, err := decode(raw)
	require.NoError(t, err)

	assert.EqualValues(t, 48000, f.SampleRate)
	assert.EqualValues(t, 48000, f.SampleCount)
	assert.Equal(t, preData, f.PreData)
	assert.Equal(t, dataSetup, f.DataSetup)
	assert.Equal(t, data, f.Data)
}

func TestReadRejectsPresentVorb(t *testing.T) {
	sw := &seekWriter{}
	bw := binio.NewWriter(sw)
	require.NoError(t, bw.Tag("RIFF"))
	require.NoError(t, bw.U32(0))
	require.NoError(t, bw.Tag("WAVE"))
	require.NoError(t, bw.Tag("fmt "))
	require.NoError(t, bw.U32(0x10))
	require.NoError(t, bw.Bytes(make([]byte, 0x10)))
	require.NoError(t, bw.Tag("vorb"))
	require.NoError(t, bw.U32(0x2A))
	require.NoError(t, bw.Bytes(make([]byte, 0x2A)))
	require.NoError(t, bw.Tag("data"))
	require.NoError(t, bw.U32(0))

	total, err := bw.Tell()
	require.NoError(t, err)
	_, err = bw.Seek(4, 0)
	require.NoError(t, err)
	require.NoError(t, bw.U32(uint32(total-8)))

	_, err = decode(sw.buf)
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestPrepareWaveS1(t *testing.T) {
	preData := []byte{}
	dataSetup := []byte{0x01}
	data := bytes.Repeat([]byte{0x7F}, 10)
	raw := buildFakeVorb(t, 48000, 48000, preData, dataSetup, data)

	f, err := decode(raw)
	require.NoError(t, err)

	unitSize := len(f.PreData) + len(f.DataSetup) + len(f.Data)
	out, err := PrepareWave(f, 3)
	require.NoError(t, err)

	r := binio.NewReader(bytes.NewReader(out))
	_, err = r.Tag()
	require.NoError(t, err)
	_, err = r.U32()
	require.NoError(t, err)
	_, err = r.Tag()
	require.NoError(t, err)
	_, err = r.Tag() // fmt
	require.NoError(t, err)
	fmtSize, err := r.U32()
	require.NoError(t, err)
	_, err = r.Seek(int64(fmtSize), 1)
	require.NoError(t, err)

	dataTag, err := r.Tag()
	require.NoError(t, err)
	require.Equal(t, "data", dataTag)
	dataSize, err := r.U32()
	require.NoError(t, err)

	assert.EqualValues(t, unitSize*4, dataSize)
}

func TestMergeImportsSourceCodecMetadata(t *testing.T) {
	source := &File{
		Subtype:       7,
		FmtUnk1:       1,
		FmtUnk2:       2,
		FmtUnk3:       3,
		FmtUnk4:       4,
		FmtUnk5:       5,
		ModSignal:     0x4A,
		UID:           0x99,
		Blocksize0Pow: 6,
		Blocksize1Pow: 7,
		DataSetup:     []byte{0xDE, 0xAD},
	}
	target := &File{
		Channels:    2,
		SampleRate:  44100,
		SampleCount: 88200,
		PreData:     []byte{0x01},
		Data:        []byte{0x02, 0x03},
		HasCue:      true,
		Cues:        []Cue{{ID: 1, Position: 0}},
	}

	merged, err := source.Merge(target)
	require.NoError(t, err)

	assert.Equal(t, target.Channels, merged.Channels)
	assert.Equal(t, target.SampleRate, merged.SampleRate)
	assert.Equal(t, source.Subtype, merged.Subtype)
	assert.Equal(t, source.UID, merged.UID)
	assert.Equal(t, source.DataSetup, merged.DataSetup)
	assert.Equal(t, target.PreData, merged.PreData)
	assert.Equal(t, target.Data, merged.Data)
	assert.EqualValues(t, len(target.PreData), merged.SetupPacketOffset)
	assert.EqualValues(t, len(target.PreData)+len(source.DataSetup), merged.FirstAudioPacketOffset)
}
