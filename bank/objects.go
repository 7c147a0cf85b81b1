// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bank

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/kelindar/soundbank-toolkit/internal/binio"
	"github.com/kelindar/soundbank-toolkit/internal/sndstruct"
)

// Object type tags, per the HIRC record header.
const (
	TypeSound         byte = 0x02
	TypeEventAction    byte = 0x03
	TypeEvent          byte = 0x04
	TypeMusicSegment   byte = 0x0A
	TypeMusicTrack     byte = 0x0B
	TypeMusicPlaylist  byte = 0x0D
)

// Sound include_type values.
const (
	IncludeEmbedded   uint8 = 0
	IncludeStreamed   uint8 = 1
	IncludePrefetched uint8 = 2
)

// Sound sound_type values.
const (
	SoundSFX   uint8 = 0
	SoundVoice uint8 = 1
)

// ObjectBody is implemented by every decoded HIRC object variant plus Opaque.
type ObjectBody interface {
	write(w *binio.Writer) error
}

// Object is one HIRC record.
type Object struct {
	Type byte
	ID   uint32
	Body ObjectBody
}

// Sound is the 0x02 variant.
type Sound struct {
	Reserved32  uint32
	IncludeType uint8
	AudioID     uint32
	SourceID    uint32
	Offset      uint32 // valid only when IncludeType == IncludeEmbedded
	Size        uint32 // valid only when IncludeType == IncludeEmbedded
	SoundType   uint8
	Structure   *sndstruct.Structure
}

// Param is one entry of an additional-parameter list: an 8-bit type tag
// followed (in a separate pass) by a 4-byte value whose interpretation
// depends on the type.
type Param struct {
	Type uint8
	Raw  uint32
}

// AsFloat32 interprets Raw as an IEEE-754 float.
func (p Param) AsFloat32() float32 { return floatBits(p.Raw) }

// EventAction action_type values with a dedicated payload parser.
const (
	ActionSetState  uint8 = 0x12
	ActionSetSwitch uint8 = 0x19
)

// SetStateParams is the EventAction payload when ActionType == ActionSetState.
type SetStateParams struct {
	StateGroupID uint32
	StateID      uint32
}

// SetSwitchParams is the EventAction payload when ActionType == ActionSetSwitch.
type SetSwitchParams struct {
	SwitchGroupID uint32
	SwitchID      uint32
}

// EventAction is the 0x03 variant.
type EventAction struct {
	Scope        uint8
	ActionType   uint8
	GameObjectID uint32
	Reserved8_1  uint8
	Additional   []Param
	Reserved8_2  uint8
	SetState     *SetStateParams
	SetSwitch    *SetSwitchParams
	Tail         []byte
}

// Event is the 0x04 variant: a list of action ids.
type Event struct {
	ActionIDs []uint32
}

// MusicSegment is the 0x0A variant.
type MusicSegment struct {
	Structure      *sndstruct.Structure
	ChildIDs       []uint32
	UnkDouble1     float64
	UnkUint64_1    uint64
	Tempo          float32
	TimeSigUpper   uint8
	TimeSigLower   uint8
	UnkUint32_1    uint32
	UnkUint8_1     uint8
	TimeLength     float64
	UnkUint32_2    uint32
	UnkUint32_3    uint32
	UnkUint64_2    uint64
	UnkUint32_4    uint32
	UnkUint32_5    uint32
	TimeLengthNext float64
	UnkUint32_6    uint32
	Tail           []byte
}

// MusicTrackExtended is present on a MusicTrack only when ID1 > 0.
type MusicTrackExtended struct {
	ID2        uint32
	UnkUint32_1 uint32
	UnkUint32_2 uint32
	UnkUint8_1  uint8
	ID3         uint32
	UnkUint64_1 uint64
	UnkUint64_2 uint64
	UnkUint64_3 uint64
	TimeLength  float64
}

// MusicTrack is the 0x0B variant.
type MusicTrack struct {
	UnkUint32_1 uint32
	UnkUint32_2 uint32
	UnkUint32_3 uint32
	ID1         uint32 // audio-source id
	Extended    *MusicTrackExtended
	Tail        []byte
}

// MusicTrackCustom is the synthetic fixed-layout variant this toolkit writes
// when injecting new music (see (*Bank).AddMusic / RebuildMusic). Its exact
// field set is a best-effort reconstruction of the reference tool's constant
// template: only ID1, ID2 and ID3 (all set to the audio source id),
// TimeLength and Parent vary per call; every other field is zero.
type MusicTrackCustom struct {
	UnkUint32_1  uint32
	UnkUint32_2  uint32
	UnkUint32_3  uint32
	ID1          uint32
	ID2          uint32
	UnkUint32_4  uint32
	UnkUint32_5  uint32
	UnkUint8_1   uint8
	ID3          uint32
	UnkUint64_1  uint64
	UnkUint64_2  uint64
	UnkUint64_3  uint64
	TimeLength   float64
	UnkUint32_6  uint32
	UnkUint32_7  uint32
	UnkUint32_8  uint32
	UnkUint8_2   uint8
	UnkUint8_3   uint8
	UnkUint32_9  uint32
	UnkUint32_10 uint32
	UnkUint64_4  uint64
	UnkUint32_11 uint32
	UnkUint32_12 uint32
	UnkUint32_13 uint32
	Parent       uint32
}

// NewMusicTrackCustom builds the fixed-layout variant used by AddMusic and
// RebuildMusic: audio id and computed time length are threaded through, the
// rest of the template is zeroed defaults.
func NewMusicTrackCustom(audioID uint32, timeLengthMs float64, parent uint32) *MusicTrackCustom {
	return &MusicTrackCustom{
		ID1:        audioID,
		ID2:        audioID,
		ID3:        audioID,
		TimeLength: timeLengthMs,
		Parent:     parent,
	}
}

// Transition is one entry of a MusicPlaylist's transition array.
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

// PlaylistElement is one entry of a MusicPlaylist's element array (0x1A bytes).
type PlaylistElement struct {
	MusicSegmentID uint32
	ID             uint32
	ChildElements  uint32
	PlaylistType   int32
	LoopCount      uint16
	Weight         uint32
	TimesInRow     uint16
	Flag           uint8
	RandomType     uint8
}

// MusicPlaylist is the 0x0D variant.
type MusicPlaylist struct {
	Structure    *sndstruct.Structure
	SegmentIDs   []uint32
	UnkDouble1   float64
	UnkUint64_1  uint64
	Tempo        float32
	TimeSigUpper uint8
	TimeSigLower uint8
	UnkUint8_1   uint8
	UnkUint32_1  uint32
	Transitions  []Transition
	Elements     []PlaylistElement
}

// Opaque is the fallback for any object type this toolkit does not decode,
// including MusicSwitch (0x0C), and for any record of a decoded type whose
// payload fails to decode or is not consumed in full. EventAction subtypes
// without a dedicated parser stay EventAction and keep their bytes in Tail.
type Opaque struct {
	Payload []byte
}

func floatBits(raw uint32) float32 { return math.Float32frombits(raw) }

// readHirc reads the HIRC chunk body (length, quantity, then that many
// records) starting right after the "HIRC" tag has been consumed.
func readHirc(r *binio.Reader) ([]Object, error) {
	if _, err := r.U32(); err != nil { // length, recomputed on rebuild
		return nil, fmt.Errorf("bank: HIRC length: %w", err)
	}
	quantity, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("bank: HIRC quantity: %w", err)
	}

	objs := make([]Object, quantity)
	for i := range objs {
		typ, err := r.U8()
		if err != nil {
			return nil, fmt.Errorf("bank: object[%d] type: %w", i, err)
		}
		length, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("bank: object[%d] length: %w", i, err)
		}
		id, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("bank: object[%d] id: %w", i, err)
		}
		if length < 4 {
			return nil, fmt.Errorf("bank: object[%d] length %d: %w", i, length, ErrBadSize)
		}
		payload, err := r.Slurp(int64(length) - 4)
		if err != nil {
			return nil, fmt.Errorf("bank: object[%d] payload: %w", i, err)
		}
		body, err := decodeBody(typ, payload)
		if err != nil {
			return nil, fmt.Errorf("bank: object[%d] (type %#x, id %d): %w", i, typ, id, err)
		}
		objs[i] = Object{Type: typ, ID: id, Body: body}
	}
	return objs, nil
}

func decodeBody(typ byte, payload []byte) (ObjectBody, error) {
	sub := binio.NewReader(bytes.NewReader(payload))
	var (
		body ObjectBody
		err  error
	)
	switch typ {
	case TypeSound:
		body, err = readSound(sub, payload)
	case TypeEventAction:
		body, err = readEventAction(sub, payload)
	case TypeEvent:
		body, err = readEvent(sub)
	case TypeMusicSegment:
		body, err = readMusicSegment(sub, payload)
	case TypeMusicTrack:
		body, err = readMusicTrack(sub, payload)
	case TypeMusicPlaylist:
		body, err = readMusicPlaylist(sub, payload)
	default:
		return &Opaque{Payload: payload}, nil
	}
	if err != nil {
		// Any structural surprise degrades gracefully to opaque so a single
		// unanticipated record never blocks loading the rest of the bank.
		return &Opaque{Payload: payload}, nil
	}
	// A record whose decoded fields stop short of its length keeps its
	// bytes verbatim as opaque rather than dropping the remainder.
	if pos, err := sub.Tell(); err != nil || pos != int64(len(payload)) {
		return &Opaque{Payload: payload}, nil
	}
	return body, nil
}

func tailFrom(r *binio.Reader, payload []byte) ([]byte, error) {
	pos, err := r.Tell()
	if err != nil {
		return nil, err
	}
	if int(pos) > len(payload) {
		return nil, ErrTruncatedChunk
	}
	return append([]byte(nil), payload[pos:]...), nil
}

func readSound(r *binio.Reader, payload []byte) (*Sound, error) {
	s := &Sound{}
	var err error
	if s.Reserved32, err = r.U32(); err != nil {
		return nil, err
	}
	if s.IncludeType, err = r.U8(); err != nil {
		return nil, err
	}
	if s.AudioID, err = r.U32(); err != nil {
		return nil, err
	}
	if s.SourceID, err = r.U32(); err != nil {
		return nil, err
	}
	if s.IncludeType == IncludeEmbedded {
		if s.Offset, err = r.U32(); err != nil {
			return nil, err
		}
		if s.Size, err = r.U32(); err != nil {
			return nil, err
		}
	}
	if s.SoundType, err = r.U8(); err != nil {
		return nil, err
	}
	if s.Structure, err = sndstruct.Read(r); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sound) write(w *binio.Writer) error {
	if err := w.U32(s.Reserved32); err != nil {
		return err
	}
	if err := w.U8(s.IncludeType); err != nil {
		return err
	}
	if err := w.U32(s.AudioID); err != nil {
		return err
	}
	if err := w.U32(s.SourceID); err != nil {
		return err
	}
	if s.IncludeType == IncludeEmbedded {
		if err := w.U32(s.Offset); err != nil {
			return err
		}
		if err := w.U32(s.Size); err != nil {
			return err
		}
	}
	if err := w.U8(s.SoundType); err != nil {
		return err
	}
	return s.Structure.Write(w)
}

func readEventAction(r *binio.Reader, payload []byte) (*EventAction, error) {
	ea := &EventAction{}
	var err error
	if ea.Scope, err = r.U8(); err != nil {
		return nil, err
	}
	if ea.ActionType, err = r.U8(); err != nil {
		return nil, err
	}
	if ea.GameObjectID, err = r.U32(); err != nil {
		return nil, err
	}
	if ea.Reserved8_1, err = r.U8(); err != nil {
		return nil, err
	}
	count, err := r.U8()
	if err != nil {
		return nil, err
	}
	ea.Additional = make([]Param, count)
	for i := range ea.Additional {
		typ, err := r.U8()
		if err != nil {
			return nil, err
		}
		ea.Additional[i].Type = typ
	}
	for i := range ea.Additional {
		raw, err := r.U32()
		if err != nil {
			return nil, err
		}
		ea.Additional[i].Raw = raw
	}
	if ea.Reserved8_2, err = r.U8(); err != nil {
		return nil, err
	}
	switch ea.ActionType {
	case ActionSetState:
		p := &SetStateParams{}
		if p.StateGroupID, err = r.U32(); err != nil {
			return nil, err
		}
		if p.StateID, err = r.U32(); err != nil {
			return nil, err
		}
		ea.SetState = p
	case ActionSetSwitch:
		p := &SetSwitchParams{}
		if p.SwitchGroupID, err = r.U32(); err != nil {
			return nil, err
		}
		if p.SwitchID, err = r.U32(); err != nil {
			return nil, err
		}
		ea.SetSwitch = p
	}
	if ea.Tail, err = tailFrom(r, payload); err != nil {
		return nil, err
	}
	return ea, nil
}

func (ea *EventAction) write(w *binio.Writer) error {
	if err := w.U8(ea.Scope); err != nil {
		return err
	}
	if err := w.U8(ea.ActionType); err != nil {
		return err
	}
	if err := w.U32(ea.GameObjectID); err != nil {
		return err
	}
	if err := w.U8(ea.Reserved8_1); err != nil {
		return err
	}
	if err := w.U8(uint8(len(ea.Additional))); err != nil {
		return err
	}
	for _, p := range ea.Additional {
		if err := w.U8(p.Type); err != nil {
			return err
		}
	}
	for _, p := range ea.Additional {
		if err := w.U32(p.Raw); err != nil {
			return err
		}
	}
	if err := w.U8(ea.Reserved8_2); err != nil {
		return err
	}
	switch ea.ActionType {
	case ActionSetState:
		if err := w.U32(ea.SetState.StateGroupID); err != nil {
			return err
		}
		if err := w.U32(ea.SetState.StateID); err != nil {
			return err
		}
	case ActionSetSwitch:
		if err := w.U32(ea.SetSwitch.SwitchGroupID); err != nil {
			return err
		}
		if err := w.U32(ea.SetSwitch.SwitchID); err != nil {
			return err
		}
	}
	return w.Bytes(ea.Tail)
}

func readEvent(r *binio.Reader) (*Event, error) {
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	e := &Event{ActionIDs: make([]uint32, count)}
	for i := range e.ActionIDs {
		if e.ActionIDs[i], err = r.U32(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Event) write(w *binio.Writer) error {
	if err := w.U32(uint32(len(e.ActionIDs))); err != nil {
		return err
	}
	for _, id := range e.ActionIDs {
		if err := w.U32(id); err != nil {
			return err
		}
	}
	return nil
}

func readMusicSegment(r *binio.Reader, payload []byte) (*MusicSegment, error) {
	m := &MusicSegment{}
	var err error
	if m.Structure, err = sndstruct.Read(r); err != nil {
		return nil, err
	}
	childCount, err := r.U32()
	if err != nil {
		return nil, err
	}
	m.ChildIDs = make([]uint32, childCount)
	for i := range m.ChildIDs {
		if m.ChildIDs[i], err = r.U32(); err != nil {
			return nil, err
		}
	}
	if m.UnkDouble1, err = r.F64(); err != nil {
		return nil, err
	}
	if m.UnkUint64_1, err = r.U64(); err != nil {
		return nil, err
	}
	if m.Tempo, err = r.F32(); err != nil {
		return nil, err
	}
	if m.TimeSigUpper, err = r.U8(); err != nil {
		return nil, err
	}
	if m.TimeSigLower, err = r.U8(); err != nil {
		return nil, err
	}
	if m.UnkUint32_1, err = r.U32(); err != nil {
		return nil, err
	}
	if m.UnkUint8_1, err = r.U8(); err != nil {
		return nil, err
	}
	if m.TimeLength, err = r.F64(); err != nil {
		return nil, err
	}
	if m.UnkUint32_2, err = r.U32(); err != nil {
		return nil, err
	}
	if m.UnkUint32_3, err = r.U32(); err != nil {
		return nil, err
	}
	if m.UnkUint64_2, err = r.U64(); err != nil {
		return nil, err
	}
	if m.UnkUint32_4, err = r.U32(); err != nil {
		return nil, err
	}
	if m.UnkUint32_5, err = r.U32(); err != nil {
		return nil, err
	}
	if m.TimeLengthNext, err = r.F64(); err != nil {
		return nil, err
	}
	if m.UnkUint32_6, err = r.U32(); err != nil {
		return nil, err
	}
	if m.Tail, err = tailFrom(r, payload); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MusicSegment) write(w *binio.Writer) error {
	if err := m.Structure.Write(w); err != nil {
		return err
	}
	if err := w.U32(uint32(len(m.ChildIDs))); err != nil {
		return err
	}
	for _, id := range m.ChildIDs {
		if err := w.U32(id); err != nil {
			return err
		}
	}
	if err := w.F64(m.UnkDouble1); err != nil {
		return err
	}
	if err := w.U64(m.UnkUint64_1); err != nil {
		return err
	}
	if err := w.F32(m.Tempo); err != nil {
		return err
	}
	if err := w.U8(m.TimeSigUpper); err != nil {
		return err
	}
	if err := w.U8(m.TimeSigLower); err != nil {
		return err
	}
	if err := w.U32(m.UnkUint32_1); err != nil {
		return err
	}
	if err := w.U8(m.UnkUint8_1); err != nil {
		return err
	}
	if err := w.F64(m.TimeLength); err != nil {
		return err
	}
	if err := w.U32(m.UnkUint32_2); err != nil {
		return err
	}
	if err := w.U32(m.UnkUint32_3); err != nil {
		return err
	}
	if err := w.U64(m.UnkUint64_2); err != nil {
		return err
	}
	if err := w.U32(m.UnkUint32_4); err != nil {
		return err
	}
	if err := w.U32(m.UnkUint32_5); err != nil {
		return err
	}
	if err := w.F64(m.TimeLengthNext); err != nil {
		return err
	}
	if err := w.U32(m.UnkUint32_6); err != nil {
		return err
	}
	return w.Bytes(m.Tail)
}

func readMusicTrack(r *binio.Reader, payload []byte) (*MusicTrack, error) {
	mt := &MusicTrack{}
	var err error
	if mt.UnkUint32_1, err = r.U32(); err != nil {
		return nil, err
	}
	if mt.UnkUint32_2, err = r.U32(); err != nil {
		return nil, err
	}
	if mt.UnkUint32_3, err = r.U32(); err != nil {
		return nil, err
	}
	if mt.ID1, err = r.U32(); err != nil {
		return nil, err
	}
	if mt.ID1 > 0 {
		ext := &MusicTrackExtended{}
		if ext.ID2, err = r.U32(); err != nil {
			return nil, err
		}
		if ext.UnkUint32_1, err = r.U32(); err != nil {
			return nil, err
		}
		if ext.UnkUint32_2, err = r.U32(); err != nil {
			return nil, err
		}
		if ext.UnkUint8_1, err = r.U8(); err != nil {
			return nil, err
		}
		if ext.ID3, err = r.U32(); err != nil {
			return nil, err
		}
		if ext.UnkUint64_1, err = r.U64(); err != nil {
			return nil, err
		}
		if ext.UnkUint64_2, err = r.U64(); err != nil {
			return nil, err
		}
		if ext.UnkUint64_3, err = r.U64(); err != nil {
			return nil, err
		}
		if ext.TimeLength, err = r.F64(); err != nil {
			return nil, err
		}
		mt.Extended = ext
	}
	if mt.Tail, err = tailFrom(r, payload); err != nil {
		return nil, err
	}
	return mt, nil
}

func (mt *MusicTrack) write(w *binio.Writer) error {
	if err := w.U32(mt.UnkUint32_1); err != nil {
		return err
	}
	if err := w.U32(mt.UnkUint32_2); err != nil {
		return err
	}
	if err := w.U32(mt.UnkUint32_3); err != nil {
		return err
	}
	if err := w.U32(mt.ID1); err != nil {
		return err
	}
	if mt.ID1 > 0 {
		ext := mt.Extended
		if err := w.U32(ext.ID2); err != nil {
			return err
		}
		if err := w.U32(ext.UnkUint32_1); err != nil {
			return err
		}
		if err := w.U32(ext.UnkUint32_2); err != nil {
			return err
		}
		if err := w.U8(ext.UnkUint8_1); err != nil {
			return err
		}
		if err := w.U32(ext.ID3); err != nil {
			return err
		}
		if err := w.U64(ext.UnkUint64_1); err != nil {
			return err
		}
		if err := w.U64(ext.UnkUint64_2); err != nil {
			return err
		}
		if err := w.U64(ext.UnkUint64_3); err != nil {
			return err
		}
		if err := w.F64(ext.TimeLength); err != nil {
			return err
		}
	}
	return w.Bytes(mt.Tail)
}

func (mc *MusicTrackCustom) write(w *binio.Writer) error {
	vals32 := []uint32{
		mc.UnkUint32_1, mc.UnkUint32_2, mc.UnkUint32_3, mc.ID1, mc.ID2,
		mc.UnkUint32_4, mc.UnkUint32_5,
	}
	for _, v := range vals32 {
		if err := w.U32(v); err != nil {
			return err
		}
	}
	if err := w.U8(mc.UnkUint8_1); err != nil {
		return err
	}
	if err := w.U32(mc.ID3); err != nil {
		return err
	}
	for _, v := range []uint64{mc.UnkUint64_1, mc.UnkUint64_2, mc.UnkUint64_3} {
		if err := w.U64(v); err != nil {
			return err
		}
	}
	if err := w.F64(mc.TimeLength); err != nil {
		return err
	}
	for _, v := range []uint32{mc.UnkUint32_6, mc.UnkUint32_7, mc.UnkUint32_8} {
		if err := w.U32(v); err != nil {
			return err
		}
	}
	for _, v := range []uint8{mc.UnkUint8_2, mc.UnkUint8_3} {
		if err := w.U8(v); err != nil {
			return err
		}
	}
	for _, v := range []uint32{mc.UnkUint32_9, mc.UnkUint32_10} {
		if err := w.U32(v); err != nil {
			return err
		}
	}
	if err := w.U64(mc.UnkUint64_4); err != nil {
		return err
	}
	for _, v := range []uint32{mc.UnkUint32_11, mc.UnkUint32_12, mc.UnkUint32_13, mc.Parent} {
		if err := w.U32(v); err != nil {
			return err
		}
	}
	return nil
}

func readMusicPlaylist(r *binio.Reader, payload []byte) (*MusicPlaylist, error) {
	mp := &MusicPlaylist{}
	var err error
	if mp.Structure, err = sndstruct.Read(r); err != nil {
		return nil, err
	}
	segCount, err := r.U32()
	if err != nil {
		return nil, err
	}
	mp.SegmentIDs = make([]uint32, segCount)
	for i := range mp.SegmentIDs {
		if mp.SegmentIDs[i], err = r.U32(); err != nil {
			return nil, err
		}
	}
	if mp.UnkDouble1, err = r.F64(); err != nil {
		return nil, err
	}
	if mp.UnkUint64_1, err = r.U64(); err != nil {
		return nil, err
	}
	if mp.Tempo, err = r.F32(); err != nil {
		return nil, err
	}
	if mp.TimeSigUpper, err = r.U8(); err != nil {
		return nil, err
	}
	if mp.TimeSigLower, err = r.U8(); err != nil {
		return nil, err
	}
	if mp.UnkUint8_1, err = r.U8(); err != nil {
		return nil, err
	}
	if mp.UnkUint32_1, err = r.U32(); err != nil {
		return nil, err
	}
	transCount, err := r.U32()
	if err != nil {
		return nil, err
	}
	mp.Transitions = make([]Transition, transCount)
	for i := range mp.Transitions {
		t := &mp.Transitions[i]
		var v32 int32
		if v32, err = r.I32(); err != nil {
			return nil, err
		}
		t.FadeInDuration = v32
		if t.FadeInCurve, err = r.U32(); err != nil {
			return nil, err
		}
		if v32, err = r.I32(); err != nil {
			return nil, err
		}
		t.FadeInOffset = v32
		if v32, err = r.I32(); err != nil {
			return nil, err
		}
		t.FadeOutDuration = v32
		if t.FadeOutCurve, err = r.U32(); err != nil {
			return nil, err
		}
		if v32, err = r.I32(); err != nil {
			return nil, err
		}
		t.FadeOutOffset = v32
		if t.HasSegment, err = r.Bool(); err != nil {
			return nil, err
		}
		if t.TransSegmentID, err = r.U32(); err != nil {
			return nil, err
		}
		if t.FadeInType, err = r.U8(); err != nil {
			return nil, err
		}
		if t.FadeOutType, err = r.U8(); err != nil {
			return nil, err
		}
	}
	elemCount, err := r.U32()
	if err != nil {
		return nil, err
	}
	mp.Elements = make([]PlaylistElement, elemCount)
	for i := range mp.Elements {
		e := &mp.Elements[i]
		if e.MusicSegmentID, err = r.U32(); err != nil {
			return nil, err
		}
		if e.ID, err = r.U32(); err != nil {
			return nil, err
		}
		if e.ChildElements, err = r.U32(); err != nil {
			return nil, err
		}
		if e.PlaylistType, err = r.I32(); err != nil {
			return nil, err
		}
		if e.LoopCount, err = r.U16(); err != nil {
			return nil, err
		}
		if e.Weight, err = r.U32(); err != nil {
			return nil, err
		}
		if e.TimesInRow, err = r.U16(); err != nil {
			return nil, err
		}
		if e.Flag, err = r.U8(); err != nil {
			return nil, err
		}
		if e.RandomType, err = r.U8(); err != nil {
			return nil, err
		}
	}
	return mp, nil
}

func (mp *MusicPlaylist) write(w *binio.Writer) error {
	if err := mp.Structure.Write(w); err != nil {
		return err
	}
	if err := w.U32(uint32(len(mp.SegmentIDs))); err != nil {
		return err
	}
	for _, id := range mp.SegmentIDs {
		if err := w.U32(id); err != nil {
			return err
		}
	}
	if err := w.F64(mp.UnkDouble1); err != nil {
		return err
	}
	if err := w.U64(mp.UnkUint64_1); err != nil {
		return err
	}
	if err := w.F32(mp.Tempo); err != nil {
		return err
	}
	if err := w.U8(mp.TimeSigUpper); err != nil {
		return err
	}
	if err := w.U8(mp.TimeSigLower); err != nil {
		return err
	}
	if err := w.U8(mp.UnkUint8_1); err != nil {
		return err
	}
	if err := w.U32(mp.UnkUint32_1); err != nil {
		return err
	}
	if err := w.U32(uint32(len(mp.Transitions))); err != nil {
		return err
	}
	for _, t := range mp.Transitions {
		if err := w.I32(t.FadeInDuration); err != nil {
			return err
		}
		if err := w.U32(t.FadeInCurve); err != nil {
			return err
		}
		if err := w.I32(t.FadeInOffset); err != nil {
			return err
		}
		if err := w.I32(t.FadeOutDuration); err != nil {
			return err
		}
		if err := w.U32(t.FadeOutCurve); err != nil {
			return err
		}
		if err := w.I32(t.FadeOutOffset); err != nil {
			return err
		}
		if err := w.Bool(t.HasSegment); err != nil {
			return err
		}
		if err := w.U32(t.TransSegmentID); err != nil {
			return err
		}
		if err := w.U8(t.FadeInType); err != nil {
			return err
		}
		if err := w.U8(t.FadeOutType); err != nil {
			return err
		}
	}
	if err := w.U32(uint32(len(mp.Elements))); err != nil {
		return err
	}
	for _, e := range mp.Elements {
		if err := w.U32(e.MusicSegmentID); err != nil {
			return err
		}
		if err := w.U32(e.ID); err != nil {
			return err
		}
		if err := w.U32(e.ChildElements); err != nil {
			return err
		}
		if err := w.I32(e.PlaylistType); err != nil {
			return err
		}
		if err := w.U16(e.LoopCount); err != nil {
			return err
		}
		if err := w.U32(e.Weight); err != nil {
			return err
		}
		if err := w.U16(e.TimesInRow); err != nil {
			return err
		}
		if err := w.U8(e.Flag); err != nil {
			return err
		}
		if err := w.U8(e.RandomType); err != nil {
			return err
		}
	}
	return nil
}

func (o *Opaque) write(w *binio.Writer) error {
	return w.Bytes(o.Payload)
}

// bodyBytes serializes body and returns the bytes, whose length Rebuild uses
// to recompute each object record's length field from its current payload.
func bodyBytes(body ObjectBody) ([]byte, error) {
	sw := &seekWriter{}
	w := binio.NewWriter(sw)
	if err := body.write(w); err != nil {
		return nil, err
	}
	return sw.buf, nil
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
