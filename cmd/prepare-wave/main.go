// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Command prepare-wave repeats a WEM's audio payload COUNT+1 times into a
// standalone, cued WAVE file.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kelindar/soundbank-toolkit/wem"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: prepare-wave FILE [COUNT]")
	}
	flag.Parse()
	if flag.NArg() != 1 && flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	count := 0
	if flag.NArg() == 2 {
		n, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			log.Error().Err(err).Msg("invalid COUNT")
			os.Exit(1)
		}
		count = n
	}

	if err := run(flag.Arg(0), count); err != nil {
		log.Error().Err(err).Msg("prepare-wave failed")
		os.Exit(1)
	}
}

func run(path string, count int) error {
	f, err := wem.Read(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	out, err := wem.PrepareWave(f, count)
	if err != nil {
		return fmt.Errorf("prepare-wave: %w", err)
	}

	outPath := path + ".cued"
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	log.Info().Str("path", outPath).Int("count", count).Msg("cued WAVE written")
	return nil
}
