// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wem

import (
	"fmt"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

// PrepareWave duplicates f's audio payload count+1 times back-to-back and
// returns a standalone WAVE file holding the result. When f carries a cue
// chunk, one cue point per repetition is re-emitted at the corresponding
// byte offset; otherwise the output has no cue chunk.
func PrepareWave(f *File, count int) ([]byte, error) {
	if count < 0 {
		return nil, fmt.Errorf("wem: prepare-wave count %d: %w", count, ErrBadInvariant)
	}

	unit := make([]byte, 0, len(f.PreData)+len(f.DataSetup)+len(f.Data))
	unit = append(unit, f.PreData...)
	unit = append(unit, f.DataSetup...)
	unit = append(unit, f.Data...)
	unitSize := len(unit)

	var cues []Cue
	if f.HasCue {
		for rep := 0; rep <= count; rep++ {
			for _, c := range f.Cues {
				nc := c
				nc.Position += uint32(rep * unitSize)
				nc.SampleOffset += uint32(rep * unitSize)
				cues = append(cues, nc)
			}
		}
	}

	sw := &seekWriter{}
	bw := binio.NewWriter(sw)

	if err := bw.Tag("RIFF"); err != nil {
		return nil, err
	}
	if err := bw.U32(0); err != nil {
		return nil, err
	}
	if err := bw.Tag("WAVE"); err != nil {
		return nil, err
	}
	if err := writeFmtChunk(bw, f); err != nil {
		return nil, err
	}
	if len(cues) > 0 {
		if err := writeCueChunk(bw, cues); err != nil {
			return nil, err
		}
	}

	if err := bw.Tag("data"); err != nil {
		return nil, err
	}
	if err := bw.U32(uint32(unitSize * (count + 1))); err != nil {
		return nil, err
	}
	for i := 0; i <= count; i++ {
		if err := bw.Bytes(unit); err != nil {
			return nil, err
		}
	}

	total, err := bw.Tell()
	if err != nil {
		return nil, err
	}
	if _, err := bw.Seek(4, 0); err != nil {
		return nil, err
	}
	if err := bw.U32(uint32(total - 8)); err != nil {
		return nil, err
	}

	return sw.buf, nil
}
