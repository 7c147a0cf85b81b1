// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Command get-sounds looks up File entries in a soundbanksinfo.xml by
// language and basename substring.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kelindar/soundbank-toolkit/internal/xmlinfo"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: get-sounds SFX_TYPE SUBSTRING SRC_FILE")
	}
	flag.Parse()
	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Arg(1), flag.Arg(2)); err != nil {
		log.Error().Err(err).Msg("get-sounds failed")
		os.Exit(1)
	}
}

func run(sfxType, substring, srcFile string) error {
	results, err := xmlinfo.Lookup(srcFile, sfxType, substring)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	for _, r := range results {
		fmt.Printf("%s\t%s\n", r.ID, r.ShortName)
	}
	log.Info().Int("matches", len(results)).Msg("get-sounds done")
	return nil
}
