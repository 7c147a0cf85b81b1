// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package objectid draws random 32-bit object ids that avoid collisions
// with a live object set and an external "known ids" database.
package objectid

import (
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/kelindar/intmap"
)

// Errors.
var (
	ErrDatabaseCorrupt = errors.New("objectid: database corrupt")
)

const digestSize = 20

// Database is the parsed contents of an objectids.db file: a 20-byte SHA-1
// digest of the payload followed by a packed array of known 32-bit ids.
type Database struct {
	ids *intmap.Map
}

// ParseDatabase validates the leading SHA-1 digest against the remaining
// payload and indexes the packed id array for O(1) membership checks.
func ParseDatabase(raw []byte) (*Database, error) {
	if len(raw) < digestSize {
		return nil, fmt.Errorf("objectid: database shorter than digest: %w", ErrDatabaseCorrupt)
	}
	digest, payload := raw[:digestSize], raw[digestSize:]
	sum := sha1.Sum(payload)
	if !equalBytes(sum[:], digest) {
		return nil, fmt.Errorf("objectid: digest mismatch: %w", ErrDatabaseCorrupt)
	}
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("objectid: payload not a multiple of 4: %w", ErrDatabaseCorrupt)
	}

	m := intmap.New(len(payload)/4, .95)
	for i := 0; i+4 <= len(payload); i += 4 {
		id := binary.LittleEndian.Uint32(payload[i : i+4])
		m.Store(id, 1)
	}
	return &Database{ids: m}, nil
}

// Contains reports whether id appears in the database.
func (d *Database) Contains(id uint32) bool {
	if d == nil {
		return false
	}
	_, ok := d.ids.Load(id)
	return ok
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// New draws a uniformly random 32-bit id from rnd that collides with
// neither the live ids in used nor db (which may be nil). rnd is injected
// so tests can supply a deterministic source.
func New(rnd io.Reader, used func(id uint32) bool, db *Database) (uint32, error) {
	var buf [4]byte
	for {
		if _, err := io.ReadFull(rnd, buf[:]); err != nil {
			return 0, fmt.Errorf("objectid: read random: %w", err)
		}
		id := binary.LittleEndian.Uint32(buf[:])
		if id == 0 {
			continue
		}
		if used(id) {
			continue
		}
		if db.Contains(id) {
			continue
		}
		return id, nil
	}
}
