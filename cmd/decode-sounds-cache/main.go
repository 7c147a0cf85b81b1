// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Command decode-sounds-cache reads a SoundsCache archive and extracts its
// members next to the input file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kelindar/soundbank-toolkit/cache"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: decode-sounds-cache INPUT")
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		log.Error().Err(err).Msg("decode-sounds-cache failed")
		os.Exit(1)
	}
}

func run(inputPath string) error {
	a, err := cache.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	out := inputPath + ".extracted"
	if err := a.Extract(out); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	log.Info().Int("files", len(a.Files)).Str("folder", out).Msg("extracted")
	return nil
}
