// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Command compare-wem merges the codec metadata of one WEM into another and
// writes the result alongside the target, after an interactive confirmation.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kelindar/soundbank-toolkit/wem"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: compare-wem INPUT OUTPUT")
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		log.Error().Err(err).Msg("compare-wem failed")
		os.Exit(1)
	}
}

func run(inputPath, outputPath string) error {
	source, err := wem.Read(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	target, err := wem.Read(outputPath)
	if err != nil {
		return fmt.Errorf("read output: %w", err)
	}

	merged, err := source.Merge(target)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}

	if !confirm(outputPath) {
		log.Info().Msg("aborted by user")
		return nil
	}

	mergedPath := outputPath + ".merged"
	f, err := os.Create(mergedPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", mergedPath, err)
	}
	defer f.Close()

	if err := merged.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", mergedPath, err)
	}
	log.Info().Str("path", mergedPath).Msg("merged WEM written")
	return nil
}

func confirm(target string) bool {
	fmt.Fprintf(os.Stderr, "merge codec metadata into %s? [y/N] ", target)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = trimNewline(answer)
	return answer == "y" || answer == "Y"
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
