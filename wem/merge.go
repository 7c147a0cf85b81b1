// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wem

import (
	"fmt"
	"io"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

// Merge returns a new File that keeps target's audio payload (PreData,
// Data), channel/sample-rate identity and cue points, but imports the
// codec-setup bytes and metadata from source: subtype, the five
// fmt_unk_field32 words, uid, mod_signal, blocksize pow bytes, and the
// setup/first-audio packet bytes themselves (DataSetup). The new
// setup_packet_offset and first_audio_packet_offset are recomputed so they
// stay consistent with the spliced-together payload.
func (source *File) Merge(target *File) (*File, error) {
	merged := &File{
		Channels:          target.Channels,
		SampleRate:        target.SampleRate,
		AvgBytesPerSecond: target.AvgBytesPerSecond,
		ExtraFmtLength:    target.ExtraFmtLength,
		ExtUnk:            target.ExtUnk,
		Subtype:           source.Subtype,

		SampleCount: target.SampleCount,
		NoGranule:   true,
		ModSignal:   source.ModSignal,
		FmtUnk1:     source.FmtUnk1,
		FmtUnk2:     source.FmtUnk2,
		FmtUnk3:     source.FmtUnk3,
		FmtUnk4:     source.FmtUnk4,
		FmtUnk5:     source.FmtUnk5,
		UID:         source.UID,

		Blocksize0Pow: source.Blocksize0Pow,
		Blocksize1Pow: source.Blocksize1Pow,
		VorbSize:      0x2A,

		HasCue: target.HasCue,
		Cues:   target.Cues,

		PreData:   target.PreData,
		DataSetup: source.DataSetup,
		Data:      target.Data,
	}
	switch merged.ModSignal {
	case 0x4A, 0x4B, 0x69, 0x70:
	default:
		merged.ModPackets = true
	}

	merged.SetupPacketOffset = uint32(len(merged.PreData))
	merged.FirstAudioPacketOffset = merged.SetupPacketOffset + uint32(len(merged.DataSetup))

	return merged, nil
}

// WriteTo re-emits f as a RIFF/WAVE file: fmt, an optional cue chunk copied
// from f's own cue points, then a single data chunk holding
// PreData||DataSetup||Data. The RIFF size word is patched to total-8 once
// the full payload is known.
func (f *File) WriteTo(w io.Writer) error {
	sw := &seekWriter{}
	bw := binio.NewWriter(sw)

	if err := bw.Tag("RIFF"); err != nil {
		return err
	}
	if err := bw.U32(0); err != nil { // patched below
		return err
	}
	if err := bw.Tag("WAVE"); err != nil {
		return err
	}

	if err := writeFmtChunk(bw, f); err != nil {
		return err
	}
	if f.HasCue {
		if err := writeCueChunk(bw, f.Cues); err != nil {
			return err
		}
	}

	databuf := make([]byte, 0, len(f.PreData)+len(f.DataSetup)+len(f.Data))
	databuf = append(databuf, f.PreData...)
	databuf = append(databuf, f.DataSetup...)
	databuf = append(databuf, f.Data...)
	if err := bw.Tag("data"); err != nil {
		return err
	}
	if err := bw.U32(uint32(len(databuf))); err != nil {
		return err
	}
	if err := bw.Bytes(databuf); err != nil {
		return err
	}

	total, err := bw.Tell()
	if err != nil {
		return err
	}
	if _, err := bw.Seek(4, 0); err != nil {
		return err
	}
	if err := bw.U32(uint32(total - 8)); err != nil {
		return err
	}
	if _, err := bw.Seek(total, 0); err != nil {
		return err
	}

	if err := validateMergedShape(f); err != nil {
		return err
	}

	_, err = w.Write(sw.buf)
	return err
}

// writeFmtChunk emits the fake-vorb fmt chunk for f: the fixed-width base
// fields plus ext_unk/subtype, followed inline by the synthetic vorb record.
func writeFmtChunk(bw *binio.Writer, f *File) error {
	const fmtSize = uint32(0x42)
	if err := bw.Tag("fmt "); err != nil {
		return err
	}
	if err := bw.U32(fmtSize); err != nil {
		return err
	}
	if err := bw.U16(0xFFFF); err != nil {
		return err
	}
	if err := bw.U16(f.Channels); err != nil {
		return err
	}
	if err := bw.U32(f.SampleRate); err != nil {
		return err
	}
	if err := bw.U32(f.AvgBytesPerSecond); err != nil {
		return err
	}
	if err := bw.U16(0); err != nil { // block_alignment
		return err
	}
	if err := bw.U16(0); err != nil { // bps
		return err
	}
	if err := bw.U16(uint16(fmtSize - 0x12)); err != nil { // extra_fmt_length
		return err
	}
	if err := bw.U16(f.ExtUnk); err != nil {
		return err
	}
	if err := bw.U16(f.Subtype); err != nil {
		return err
	}
	if err := bw.U16(0); err != nil { // pads the base fields to 0x18; vorb follows
		return err
	}
	if err := bw.U32(f.SampleCount); err != nil {
		return err
	}
	if err := bw.U32(f.ModSignal); err != nil {
		return err
	}
	if err := bw.U32(f.FmtUnk1); err != nil {
		return err
	}
	if err := bw.U32(f.FmtUnk2); err != nil {
		return err
	}
	if err := bw.U32(f.SetupPacketOffset); err != nil {
		return err
	}
	if err := bw.U32(f.FirstAudioPacketOffset); err != nil {
		return err
	}
	if err := bw.U32(f.FmtUnk3); err != nil {
		return err
	}
	if err := bw.U32(f.FmtUnk4); err != nil {
		return err
	}
	if err := bw.U32(f.FmtUnk5); err != nil {
		return err
	}
	if err := bw.U32(f.UID); err != nil {
		return err
	}
	if err := bw.U8(f.Blocksize0Pow); err != nil {
		return err
	}
	return bw.U8(f.Blocksize1Pow)
}

func writeCueChunk(bw *binio.Writer, cues []Cue) error {
	if err := bw.Tag("cue "); err != nil {
		return err
	}
	if err := bw.U32(uint32(4 + 24*len(cues))); err != nil {
		return err
	}
	if err := bw.U32(uint32(len(cues))); err != nil {
		return err
	}
	for _, c := range cues {
		if err := bw.U32(c.ID); err != nil {
			return err
		}
		if err := bw.U32(c.Position); err != nil {
			return err
		}
		if err := bw.U32(c.DataChunkID); err != nil {
			return err
		}
		if err := bw.U32(c.ChunkStart); err != nil {
			return err
		}
		if err := bw.U32(c.BlockStart); err != nil {
			return err
		}
		if err := bw.U32(c.SampleOffset); err != nil {
			return err
		}
	}
	return nil
}

func validateMergedShape(f *File) error {
	if f.FirstAudioPacketOffset < f.SetupPacketOffset {
		return fmt.Errorf("wem: merged first_audio_packet_offset before setup_packet_offset: %w", ErrBadInvariant)
	}
	return nil
}

// seekWriter is a growable byte buffer implementing io.WriteSeeker: unlike
// *bytes.Buffer, Write honors the current position, so seeking back to patch
// a length placeholder overwrites in place instead of appending.
type seekWriter struct {
	buf []byte
	pos int
}

func (s *seekWriter) Write(p []byte) (int, error) {
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

func (s *seekWriter) Seek(offset int64, whence int) (int64, error) {
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
