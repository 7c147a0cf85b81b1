// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Command create-sounds-cache packs a folder of .wem/.bnk files into a
// soundspc.cache archive.
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
		fmt.Fprintln(os.Stderr, "usage: create-sounds-cache FOLDER")
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		log.Error().Err(err).Msg("create-sounds-cache failed")
		os.Exit(1)
	}
}

func run(folder string) error {
	f, err := os.Create("soundspc.cache")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if err := cache.Pack(folder, f); err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	log.Info().Str("folder", folder).Msg("soundspc.cache written")
	return nil
}
