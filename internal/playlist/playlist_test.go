// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package playlist

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := &Document{
		Segments: []uint32{1001, 1002},
		Transitions: []Transition{
			{FadeInDuration: -1, FadeInCurve: 4, FadeOutCurve: 4, HasSegment: true, TransSegmentID: 55, FadeInType: 1, FadeOutType: 2},
		},
		Elements: []Element{
			{Tracks: []uint32{5001, 5002}, MusicSegmentID: 1001, ID: 6001, ChildElements: 0, PlaylistType: 3, LoopCount: 2, Weight: 50, TimesInRow: 1, Flag: 0, RandomType: 1},
			{MusicSegmentID: 1002, NewID: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))

	got, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, doc.Segments, got.Segments)
	require.Len(t, got.Transitions, 1)
	assert.Equal(t, doc.Transitions[0], got.Transitions[0])
	require.Len(t, got.Elements, 2)
	assert.Equal(t, doc.Elements[0], got.Elements[0])
	assert.True(t, got.Elements[1].NewID)
}

func TestDecodeMoveSegments(t *testing.T) {
	text := "[MOVE SEGMENTS]\nmove1=42\nmove2=43\n"
	doc, err := Decode(bytes.NewBufferString(text))
	require.NoError(t, err)
	assert.Equal(t, []uint32{42, 43}, doc.MoveSegments)
}

func TestDecodeRejectsMalformedLine(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("[SEGMENTS]\nnot-a-keyvalue\n"))
	assert.ErrorIs(t, err, ErrMalformed)
}
