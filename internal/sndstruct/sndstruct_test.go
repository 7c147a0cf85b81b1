// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package sndstruct

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

type seekBuffer struct {
	bytes.Buffer
	pos int
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		s.pos = int(offset)
	case 1:
		s.pos += int(offset)
	case 2:
		s.pos = s.Len() + int(offset)
	}
	return int64(s.pos), nil
}

func roundTrip(t *testing.T, s *Structure) *Structure {
	t.Helper()
	var buf seekBuffer
	require.NoError(t, s.Write(binio.NewWriter(&buf)))

	got, err := Read(binio.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	return got
}

func TestRoundTripMinimal(t *testing.T) {
	s := &Structure{
		OutputBusID: 1,
		ParentID:    2,
	}
	got := roundTrip(t, s)
	assert.Equal(t, s, got)
}

func TestRoundTripEffectsAndAdditional(t *testing.T) {
	s := &Structure{
		EffectsOverride: true,
		EffectsBitmask:  0x0F,
		Effects: []Effect{
			{Index: 0, ID: 100, Unk16_1: 1},
			{Index: 1, ID: 200, Unk16_1: 2},
		},
		OutputBusID: 5,
		ParentID:    6,
		Additional: []Additional{
			{Type: 0x07, Raw: 42},
			{Type: 0x00, Raw: 0x3F800000}, // 1.0f
		},
		Unk8_1: 3,
	}
	got := roundTrip(t, s)
	assert.Equal(t, s, got)
	assert.Equal(t, float32(1.0), got.Additional[1].AsFloat32())
}

func TestRoundTripPositioning3DWorld(t *testing.T) {
	s := &Structure{
		Positioning: &Positioning{
			Type: 0x3D,
			D3: &Positioning3D{
				Source:        0x02,
				AttenuationID: 9,
				World: &PositionWorld{
					PlayType:                  1,
					DoLoop:                    true,
					TransitionTime:            500,
					FollowListenerOrientation: false,
				},
			},
		},
	}
	got := roundTrip(t, s)
	assert.Equal(t, s, got)
}

func TestRoundTripPositioning3DUser(t *testing.T) {
	s := &Structure{
		Positioning: &Positioning{
			Type: 0x3D,
			D3: &Positioning3D{
				Source:               0x03,
				AttenuationID:        1,
				EnableSpatialization: true,
				User:                 &PositionUser{UpdateAtEachFrame: true},
			},
		},
	}
	got := roundTrip(t, s)
	assert.Equal(t, s, got)
}

func TestRoundTripPositioningDefaultBranch(t *testing.T) {
	s := &Structure{
		Positioning: &Positioning{Type: 0x99, Unk32a: 11, Unk32b: 22},
	}
	got := roundTrip(t, s)
	assert.Equal(t, s, got)
}

func TestRoundTripAuxAndInstanceLimit(t *testing.T) {
	s := &Structure{
		OverrideUserAuxSends: true,
		AuxBus:               &AuxBus{ID0: 1, ID1: 2, ID2: 3, ID3: 4},
		InstanceLimit:        &InstanceLimit{PriorityEqual: 1, LimitReached: 0, LimitSoundInstances: 16},
	}
	got := roundTrip(t, s)
	assert.Equal(t, s, got)
}

func TestRoundTripStateGroupsAndRTPCs(t *testing.T) {
	s := &Structure{
		StateGroups: []StateGroup{
			{
				ID:               7,
				ChangeOccurs:     1,
				Different:        2,
				IDs:              []uint32{10, 20},
				IDsObjectContain: []uint32{0, 1},
			},
		},
		RTPCs: []RTPC{
			{
				XAxisID:     1,
				YAxisType:   2,
				PointsCount: 2,
				X:           []float32{0, 1},
				Y:           []float32{0.5, 1.5},
				CurveShape:  []uint32{0, 0},
			},
		},
	}
	got := roundTrip(t, s)
	assert.Equal(t, s, got)
}

func TestRoundTripTail(t *testing.T) {
	tail := bytes.Repeat([]byte{0xAB}, tailSize)
	s := &Structure{
		Unk32_3: 1,
		Tail:    tail,
	}
	got := roundTrip(t, s)
	assert.Equal(t, s, got)
}
