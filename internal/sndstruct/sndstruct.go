// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package sndstruct decodes and re-encodes the SoundStructure sub-record
// shared by several SoundBank object variants (Sound, MusicSegment,
// MusicTrack's relatives, MusicPlaylist). The record is order-sensitive and
// bit-packed: every optional section is gated by an inline boolean or
// counter read immediately before it, so the reader must never speculatively
// consume bytes past what the gate allows.
package sndstruct

import (
	"fmt"
	"math"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
)

// tailSize is the fixed length of the opaque trailer following a non-zero
// trailing 32-bit marker.
const tailSize = 0x3F

// Effect is one entry of the optional effects list.
type Effect struct {
	Index   uint8
	ID      uint32
	Unk16_1 uint16
}

// Additional is one entry of the additional-parameters list. Raw holds the
// parameter's 4-byte payload verbatim; its interpretation (uint32 vs float32)
// depends on Type, but storing the raw bits makes read/write byte-exact
// without needing to round-trip through a float conversion.
type Additional struct {
	Type uint8
	Raw  uint32
}

// AsFloat32 interprets Raw as an IEEE-754 float (valid when Type == 0x07).
func (a Additional) AsFloat32() float32 { return floatFromBits(a.Raw) }

// Positioning3D is the 0x3D positioning_type branch.
type Positioning3D struct {
	Source               uint32 // position_source
	AttenuationID        uint32
	EnableSpatialization bool
	World                *PositionWorld // present when Source == 0x02
	User                 *PositionUser  // present when Source == 0x03
}

// PositionWorld is the position_source == 0x02 branch of Positioning3D.
type PositionWorld struct {
	PlayType                  uint32
	DoLoop                    bool
	TransitionTime            uint32
	FollowListenerOrientation bool
}

// PositionUser is the position_source == 0x03 branch of Positioning3D.
type PositionUser struct {
	UpdateAtEachFrame bool
}

// Positioning is the optional positioning sub-record, present only when
// has_positioning is true.
type Positioning struct {
	Type  uint8 // positioning_type
	Panner bool          // valid when Type == 0x2D
	D3     *Positioning3D // valid when Type == 0x3D
	Unk16  uint16         // valid when Type == 0x01
	Unk32a uint32         // valid for any other Type
	Unk32b uint32
}

// AuxBus is the optional auxiliary-bus block, present only when
// user_auxiliary_sends_exists is true.
type AuxBus struct {
	ID0, ID1, ID2, ID3 uint32
}

// InstanceLimit is the optional voice-instance-limit block.
type InstanceLimit struct {
	PriorityEqual       uint8
	LimitReached        uint8
	LimitSoundInstances uint16
}

// StateGroup is one entry of the state-groups array.
type StateGroup struct {
	ID               uint32
	ChangeOccurs     uint8
	Different        uint16
	IDs              []uint32
	IDsObjectContain []uint32
}

// RTPC is one entry of the RTPC (real-time parameter control) array.
type RTPC struct {
	XAxisID     uint32
	YAxisType   uint32
	Unk32_1     uint32
	Unk8_1      uint8
	PointsCount uint8
	Unk8_2      uint8
	X           []float32
	Y           []float32
	CurveShape  []uint32
}

// Structure is a fully decoded SoundStructure record.
type Structure struct {
	EffectsOverride          bool
	EffectsBitmask           uint8
	Effects                  []Effect
	OutputBusID              uint32
	ParentID                 uint32
	OverridePlaybackPriority bool
	OffsetPriority           bool
	Additional               []Additional
	Unk8_1                   uint8
	Positioning              *Positioning // nil when has_positioning is false
	OverrideGameAuxSends     bool
	UseGameAuxSends          bool
	OverrideUserAuxSends     bool
	AuxBus                   *AuxBus // nil unless user_auxiliary_sends_exists
	InstanceLimit            *InstanceLimit
	HowToLimitSoundInstances uint8
	VirtualVoiceBehavior     uint8
	OverridePlaybackLimit    bool
	OverrideVirtualVoice     bool
	StateGroups              []StateGroup
	RTPCs                    []RTPC
	Unk32_3                  uint32
	Tail                     []byte // exactly tailSize bytes, present iff Unk32_3 != 0
}

// Read decodes one SoundStructure from r.
func Read(r *binio.Reader) (*Structure, error) {
	s := &Structure{}

	var err error
	if s.EffectsOverride, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("sndstruct: effects_override: %w", err)
	}
	effectsCount, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("sndstruct: effects_count: %w", err)
	}
	if effectsCount > 0 {
		if s.EffectsBitmask, err = r.U8(); err != nil {
			return nil, fmt.Errorf("sndstruct: effects_bitmask: %w", err)
		}
		s.Effects = make([]Effect, effectsCount)
		for i := range s.Effects {
			idx, err := r.U8()
			if err != nil {
				return nil, fmt.Errorf("sndstruct: effect[%d].index: %w", i, err)
			}
			id, err := r.U32()
			if err != nil {
				return nil, fmt.Errorf("sndstruct: effect[%d].id: %w", i, err)
			}
			unk, err := r.U16()
			if err != nil {
				return nil, fmt.Errorf("sndstruct: effect[%d].unk16_1: %w", i, err)
			}
			s.Effects[i] = Effect{Index: idx, ID: id, Unk16_1: unk}
		}
	}

	if s.OutputBusID, err = r.U32(); err != nil {
		return nil, fmt.Errorf("sndstruct: output_bus_id: %w", err)
	}
	if s.ParentID, err = r.U32(); err != nil {
		return nil, fmt.Errorf("sndstruct: parent_id: %w", err)
	}
	if s.OverridePlaybackPriority, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("sndstruct: override_playback_priority: %w", err)
	}
	if s.OffsetPriority, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("sndstruct: offset_priority: %w", err)
	}

	additionalCount, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("sndstruct: additional_parameters_count: %w", err)
	}
	if additionalCount > 0 {
		s.Additional = make([]Additional, additionalCount)
		for i := range s.Additional {
			typ, err := r.U8()
			if err != nil {
				return nil, fmt.Errorf("sndstruct: additional[%d].type: %w", i, err)
			}
			s.Additional[i].Type = typ
		}
		for i := range s.Additional {
			raw, err := r.U32()
			if err != nil {
				return nil, fmt.Errorf("sndstruct: additional[%d].value: %w", i, err)
			}
			s.Additional[i].Raw = raw
		}
	}

	if s.Unk8_1, err = r.U8(); err != nil {
		return nil, fmt.Errorf("sndstruct: unk_field8_1: %w", err)
	}

	hasPositioning, err := r.Bool()
	if err != nil {
		return nil, fmt.Errorf("sndstruct: has_positioning: %w", err)
	}
	if hasPositioning {
		p, err := readPositioning(r)
		if err != nil {
			return nil, err
		}
		s.Positioning = p
	}

	if s.OverrideGameAuxSends, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("sndstruct: override_game_auxiliary_sends: %w", err)
	}
	if s.UseGameAuxSends, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("sndstruct: use_game_auxiliary_sends: %w", err)
	}
	if s.OverrideUserAuxSends, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("sndstruct: override_user_auxiliary_sends: %w", err)
	}
	auxExists, err := r.Bool()
	if err != nil {
		return nil, fmt.Errorf("sndstruct: user_auxiliary_sends_exists: %w", err)
	}
	if auxExists {
		ab := &AuxBus{}
		for i, dst := range []*uint32{&ab.ID0, &ab.ID1, &ab.ID2, &ab.ID3} {
			if *dst, err = r.U32(); err != nil {
				return nil, fmt.Errorf("sndstruct: auxiliary_bus_id%d: %w", i, err)
			}
		}
		s.AuxBus = ab
	}

	hasLimit, err := r.Bool()
	if err != nil {
		return nil, fmt.Errorf("sndstruct: unk_field8_2: %w", err)
	}
	if hasLimit {
		il := &InstanceLimit{}
		if il.PriorityEqual, err = r.U8(); err != nil {
			return nil, fmt.Errorf("sndstruct: priority_equal: %w", err)
		}
		if il.LimitReached, err = r.U8(); err != nil {
			return nil, fmt.Errorf("sndstruct: limit_reached: %w", err)
		}
		if il.LimitSoundInstances, err = r.U16(); err != nil {
			return nil, fmt.Errorf("sndstruct: limit_sound_instances: %w", err)
		}
		s.InstanceLimit = il
	}

	if s.HowToLimitSoundInstances, err = r.U8(); err != nil {
		return nil, fmt.Errorf("sndstruct: how_to_limit_sound_instances: %w", err)
	}
	if s.VirtualVoiceBehavior, err = r.U8(); err != nil {
		return nil, fmt.Errorf("sndstruct: virtual_voice_behavior: %w", err)
	}
	if s.OverridePlaybackLimit, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("sndstruct: override_playback_limit: %w", err)
	}
	if s.OverrideVirtualVoice, err = r.Bool(); err != nil {
		return nil, fmt.Errorf("sndstruct: override_virtual_voice: %w", err)
	}

	stateGroupsCount, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("sndstruct: state_groups_count: %w", err)
	}
	if stateGroupsCount > 0 {
		s.StateGroups = make([]StateGroup, stateGroupsCount)
		for i := range s.StateGroups {
			sg, err := readStateGroup(r)
			if err != nil {
				return nil, fmt.Errorf("sndstruct: state_group[%d]: %w", i, err)
			}
			s.StateGroups[i] = sg
		}
	}

	rtpcCount, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("sndstruct: rtpc_count: %w", err)
	}
	if rtpcCount > 0 {
		s.RTPCs = make([]RTPC, rtpcCount)
		for i := range s.RTPCs {
			rtpc, err := readRTPC(r)
			if err != nil {
				return nil, fmt.Errorf("sndstruct: rtpc[%d]: %w", i, err)
			}
			s.RTPCs[i] = rtpc
		}
	}

	if s.Unk32_3, err = r.U32(); err != nil {
		return nil, fmt.Errorf("sndstruct: unk_field32_3: %w", err)
	}
	if s.Unk32_3 > 0 {
		if s.Tail, err = r.Slurp(tailSize); err != nil {
			return nil, fmt.Errorf("sndstruct: tail: %w", err)
		}
	}

	return s, nil
}

func readPositioning(r *binio.Reader) (*Positioning, error) {
	p := &Positioning{}
	typ, err := r.U8()
	if err != nil {
		return nil, fmt.Errorf("sndstruct: positioning_type: %w", err)
	}
	p.Type = typ

	switch typ {
	case 0x2D:
		if p.Panner, err = r.Bool(); err != nil {
			return nil, fmt.Errorf("sndstruct: enable_panner: %w", err)
		}
	case 0x3D:
		d3 := &Positioning3D{}
		if d3.Source, err = r.U32(); err != nil {
			return nil, fmt.Errorf("sndstruct: position_source: %w", err)
		}
		if d3.AttenuationID, err = r.U32(); err != nil {
			return nil, fmt.Errorf("sndstruct: attenuation_id: %w", err)
		}
		if d3.EnableSpatialization, err = r.Bool(); err != nil {
			return nil, fmt.Errorf("sndstruct: enable_spatialization: %w", err)
		}
		switch d3.Source {
		case 0x02:
			w := &PositionWorld{}
			if w.PlayType, err = r.U32(); err != nil {
				return nil, fmt.Errorf("sndstruct: play_type: %w", err)
			}
			if w.DoLoop, err = r.Bool(); err != nil {
				return nil, fmt.Errorf("sndstruct: do_loop: %w", err)
			}
			if w.TransitionTime, err = r.U32(); err != nil {
				return nil, fmt.Errorf("sndstruct: transition_time: %w", err)
			}
			if w.FollowListenerOrientation, err = r.Bool(); err != nil {
				return nil, fmt.Errorf("sndstruct: follow_listener_orientation: %w", err)
			}
			d3.World = w
		case 0x03:
			u := &PositionUser{}
			if u.UpdateAtEachFrame, err = r.Bool(); err != nil {
				return nil, fmt.Errorf("sndstruct: update_at_each_frame: %w", err)
			}
			d3.User = u
		}
		p.D3 = d3
	case 0x01:
		if p.Unk16, err = r.U16(); err != nil {
			return nil, fmt.Errorf("sndstruct: unk_field16_1: %w", err)
		}
	default:
		if p.Unk32a, err = r.U32(); err != nil {
			return nil, fmt.Errorf("sndstruct: unk_field32_1: %w", err)
		}
		if p.Unk32b, err = r.U32(); err != nil {
			return nil, fmt.Errorf("sndstruct: unk_field32_2: %w", err)
		}
	}
	return p, nil
}

func readStateGroup(r *binio.Reader) (StateGroup, error) {
	var sg StateGroup
	var err error
	if sg.ID, err = r.U32(); err != nil {
		return sg, err
	}
	if sg.ChangeOccurs, err = r.U8(); err != nil {
		return sg, err
	}
	if sg.Different, err = r.U16(); err != nil {
		return sg, err
	}
	sg.IDs = make([]uint32, sg.Different)
	sg.IDsObjectContain = make([]uint32, sg.Different)
	for i := 0; i < int(sg.Different); i++ {
		if sg.IDs[i], err = r.U32(); err != nil {
			return sg, err
		}
		if sg.IDsObjectContain[i], err = r.U32(); err != nil {
			return sg, err
		}
	}
	return sg, nil
}

func readRTPC(r *binio.Reader) (RTPC, error) {
	var rtpc RTPC
	var err error
	if rtpc.XAxisID, err = r.U32(); err != nil {
		return rtpc, err
	}
	if rtpc.YAxisType, err = r.U32(); err != nil {
		return rtpc, err
	}
	if rtpc.Unk32_1, err = r.U32(); err != nil {
		return rtpc, err
	}
	if rtpc.Unk8_1, err = r.U8(); err != nil {
		return rtpc, err
	}
	if rtpc.PointsCount, err = r.U8(); err != nil {
		return rtpc, err
	}
	if rtpc.Unk8_2, err = r.U8(); err != nil {
		return rtpc, err
	}
	n := int(rtpc.PointsCount)
	rtpc.X = make([]float32, n)
	rtpc.Y = make([]float32, n)
	rtpc.CurveShape = make([]uint32, n)
	for i := 0; i < n; i++ {
		if rtpc.X[i], err = r.F32(); err != nil {
			return rtpc, err
		}
		if rtpc.Y[i], err = r.F32(); err != nil {
			return rtpc, err
		}
		if rtpc.CurveShape[i], err = r.U32(); err != nil {
			return rtpc, err
		}
	}
	return rtpc, nil
}

// Write re-encodes s, mirroring Read field-for-field.
func (s *Structure) Write(w *binio.Writer) error {
	if err := w.Bool(s.EffectsOverride); err != nil {
		return err
	}
	if err := w.U8(uint8(len(s.Effects))); err != nil {
		return err
	}
	if len(s.Effects) > 0 {
		if err := w.U8(s.EffectsBitmask); err != nil {
			return err
		}
		for _, e := range s.Effects {
			if err := w.U8(e.Index); err != nil {
				return err
			}
			if err := w.U32(e.ID); err != nil {
				return err
			}
			if err := w.U16(e.Unk16_1); err != nil {
				return err
			}
		}
	}

	if err := w.U32(s.OutputBusID); err != nil {
		return err
	}
	if err := w.U32(s.ParentID); err != nil {
		return err
	}
	if err := w.Bool(s.OverridePlaybackPriority); err != nil {
		return err
	}
	if err := w.Bool(s.OffsetPriority); err != nil {
		return err
	}

	if err := w.U8(uint8(len(s.Additional))); err != nil {
		return err
	}
	if len(s.Additional) > 0 {
		for _, a := range s.Additional {
			if err := w.U8(a.Type); err != nil {
				return err
			}
		}
		for _, a := range s.Additional {
			if err := w.U32(a.Raw); err != nil {
				return err
			}
		}
	}

	if err := w.U8(s.Unk8_1); err != nil {
		return err
	}
	if err := w.Bool(s.Positioning != nil); err != nil {
		return err
	}
	if s.Positioning != nil {
		if err := writePositioning(w, s.Positioning); err != nil {
			return err
		}
	}

	if err := w.Bool(s.OverrideGameAuxSends); err != nil {
		return err
	}
	if err := w.Bool(s.UseGameAuxSends); err != nil {
		return err
	}
	if err := w.Bool(s.OverrideUserAuxSends); err != nil {
		return err
	}
	if err := w.Bool(s.AuxBus != nil); err != nil {
		return err
	}
	if s.AuxBus != nil {
		for _, v := range []uint32{s.AuxBus.ID0, s.AuxBus.ID1, s.AuxBus.ID2, s.AuxBus.ID3} {
			if err := w.U32(v); err != nil {
				return err
			}
		}
	}

	if err := w.Bool(s.InstanceLimit != nil); err != nil {
		return err
	}
	if s.InstanceLimit != nil {
		if err := w.U8(s.InstanceLimit.PriorityEqual); err != nil {
			return err
		}
		if err := w.U8(s.InstanceLimit.LimitReached); err != nil {
			return err
		}
		if err := w.U16(s.InstanceLimit.LimitSoundInstances); err != nil {
			return err
		}
	}

	if err := w.U8(s.HowToLimitSoundInstances); err != nil {
		return err
	}
	if err := w.U8(s.VirtualVoiceBehavior); err != nil {
		return err
	}
	if err := w.Bool(s.OverridePlaybackLimit); err != nil {
		return err
	}
	if err := w.Bool(s.OverrideVirtualVoice); err != nil {
		return err
	}

	if err := w.U32(uint32(len(s.StateGroups))); err != nil {
		return err
	}
	for _, sg := range s.StateGroups {
		if err := w.U32(sg.ID); err != nil {
			return err
		}
		if err := w.U8(sg.ChangeOccurs); err != nil {
			return err
		}
		if err := w.U16(sg.Different); err != nil {
			return err
		}
		for i := 0; i < int(sg.Different); i++ {
			if err := w.U32(sg.IDs[i]); err != nil {
				return err
			}
			if err := w.U32(sg.IDsObjectContain[i]); err != nil {
				return err
			}
		}
	}

	if err := w.U16(uint16(len(s.RTPCs))); err != nil {
		return err
	}
	for _, rtpc := range s.RTPCs {
		if err := w.U32(rtpc.XAxisID); err != nil {
			return err
		}
		if err := w.U32(rtpc.YAxisType); err != nil {
			return err
		}
		if err := w.U32(rtpc.Unk32_1); err != nil {
			return err
		}
		if err := w.U8(rtpc.Unk8_1); err != nil {
			return err
		}
		if err := w.U8(rtpc.PointsCount); err != nil {
			return err
		}
		if err := w.U8(rtpc.Unk8_2); err != nil {
			return err
		}
		for i := 0; i < int(rtpc.PointsCount); i++ {
			if err := w.F32(rtpc.X[i]); err != nil {
				return err
			}
			if err := w.F32(rtpc.Y[i]); err != nil {
				return err
			}
			if err := w.U32(rtpc.CurveShape[i]); err != nil {
				return err
			}
		}
	}

	if err := w.U32(s.Unk32_3); err != nil {
		return err
	}
	if s.Unk32_3 > 0 {
		if err := w.Bytes(s.Tail); err != nil {
			return err
		}
	}

	return nil
}

func writePositioning(w *binio.Writer, p *Positioning) error {
	if err := w.U8(p.Type); err != nil {
		return err
	}
	switch p.Type {
	case 0x2D:
		return w.Bool(p.Panner)
	case 0x3D:
		d3 := p.D3
		if err := w.U32(d3.Source); err != nil {
			return err
		}
		if err := w.U32(d3.AttenuationID); err != nil {
			return err
		}
		if err := w.Bool(d3.EnableSpatialization); err != nil {
			return err
		}
		switch d3.Source {
		case 0x02:
			ww := d3.World
			if err := w.U32(ww.PlayType); err != nil {
				return err
			}
			if err := w.Bool(ww.DoLoop); err != nil {
				return err
			}
			if err := w.U32(ww.TransitionTime); err != nil {
				return err
			}
			return w.Bool(ww.FollowListenerOrientation)
		case 0x03:
			return w.Bool(d3.User.UpdateAtEachFrame)
		}
		return nil
	case 0x01:
		return w.U16(p.Unk16)
	default:
		if err := w.U32(p.Unk32a); err != nil {
			return err
		}
		return w.U32(p.Unk32b)
	}
}

func floatFromBits(raw uint32) float32 {
	return math.Float32frombits(raw)
}
