// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bank

import "errors"

// Structural errors returned by the bank package. Each wraps additional
// context via fmt.Errorf("...: %w", err) at the call site.
var (
	ErrBadHeader        = errors.New("bank: bad header")
	ErrTruncatedChunk   = errors.New("bank: truncated chunk")
	ErrBadSize          = errors.New("bank: bad size")
	ErrUnsupportedShape = errors.New("bank: unsupported shape")
	ErrBadInvariant     = errors.New("bank: invariant violated")
	ErrIDCollision      = errors.New("bank: id collision")
	ErrDatabaseCorrupt  = errors.New("bank: objectids.db corrupt")
	ErrNotFound         = errors.New("bank: object not found")
)
