// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Command rebuild-soundbank is the multi-mode entry point for every
// structural edit this toolkit supports on a SoundBank: folder-driven
// rebuild, music re-skinning/injection, playlist export/reimport, sound
// dumping, and the debug dumps.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kelindar/soundbank-toolkit/bank"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var (
		music               = flag.Bool("music", false, "rebuild_music(BNK, WEM)")
		addNewMusic         = flag.Bool("add-new-music", false, "add_music(BNK, WEM)")
		playlistIDFromTrack = flag.Bool("playlist-id-from-track", false, "get_playlist_ids(BNK, AUDIO_ID)")
		exportPlaylist      = flag.Bool("export-playlist", false, "export_playlist(BNK, PLAYLIST_ID)")
		reimportPlaylist    = flag.Bool("reimport-playlist", false, "reimport_playlist(BNK, PLAYLIST_ID)")
		dumpSounds          = flag.Bool("dump-sounds", false, "dump_sounds(BNK, FOLDER)")
		debug               = flag.Bool("debug", false, "print the default debug report")
		debugEvent          = flag.Bool("debug-event", false, "print a single Event object")
		debugSound          = flag.Bool("debug-sound", false, "print a single Sound object")
		debugObject         = flag.Bool("debug-object", false, "print a single object of any type")
		debugOwner          = flag.Bool("debug-owner", false, "print every object referencing ID")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, `usage:
  rebuild-soundbank BNK FOLDER
  rebuild-soundbank --music BNK WEM
  rebuild-soundbank --add-new-music BNK WEM
  rebuild-soundbank --playlist-id-from-track BNK TRACK_ID
  rebuild-soundbank --export-playlist BNK PLAYLIST_ID
  rebuild-soundbank --reimport-playlist BNK PLAYLIST_ID
  rebuild-soundbank --dump-sounds BNK FOLDER
  rebuild-soundbank --debug[-event|-sound|-object|-owner] BNK [ID]`)
	}
	flag.Parse()

	if err := dispatch(mode{
		music:               *music,
		addNewMusic:         *addNewMusic,
		playlistIDFromTrack: *playlistIDFromTrack,
		exportPlaylist:      *exportPlaylist,
		reimportPlaylist:    *reimportPlaylist,
		dumpSounds:          *dumpSounds,
		debug:               *debug,
		debugEvent:          *debugEvent,
		debugSound:          *debugSound,
		debugObject:         *debugObject,
		debugOwner:          *debugOwner,
	}, flag.Args()); err != nil {
		log.Error().Err(err).Msg("rebuild-soundbank failed")
		os.Exit(1)
	}
}

type mode struct {
	music, addNewMusic, playlistIDFromTrack                bool
	exportPlaylist, reimportPlaylist, dumpSounds           bool
	debug, debugEvent, debugSound, debugObject, debugOwner bool
}

func (m mode) any() bool {
	return m.music || m.addNewMusic || m.playlistIDFromTrack || m.exportPlaylist ||
		m.reimportPlaylist || m.dumpSounds || m.debug || m.debugEvent || m.debugSound ||
		m.debugObject || m.debugOwner
}

func dispatch(m mode, args []string) error {
	switch {
	case m.music:
		return requireArgs(args, 2, runMusic)
	case m.addNewMusic:
		return requireArgs(args, 2, runAddNewMusic)
	case m.playlistIDFromTrack:
		return requireArgs(args, 2, runPlaylistIDFromTrack)
	case m.exportPlaylist:
		return requireArgs(args, 2, runExportPlaylist)
	case m.reimportPlaylist:
		return requireArgs(args, 2, runReimportPlaylist)
	case m.dumpSounds:
		return requireArgs(args, 2, runDumpSounds)
	case m.debug, m.debugEvent, m.debugSound, m.debugObject, m.debugOwner:
		return runDebug(m, args)
	case !m.any() && len(args) == 2:
		return runRebuildFromFolder(args[0], args[1])
	default:
		flag.Usage()
		os.Exit(1)
		return nil
	}
}

func requireArgs(args []string, n int, fn func([]string) error) error {
	if len(args) != n {
		flag.Usage()
		os.Exit(1)
	}
	return fn(args)
}

func runRebuildFromFolder(bnkPath, folder string) error {
	b, err := bank.Read(bnkPath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := b.RebuildFromFolder(folder); err != nil {
		return fmt.Errorf("rebuild from folder: %w", err)
	}
	return rebuildTo(b, bnkPath)
}

func runMusic(args []string) error {
	b, err := bank.Read(args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := b.RebuildMusic(args[1]); err != nil {
		return fmt.Errorf("rebuild music: %w", err)
	}
	return rebuildTo(b, args[0])
}

func runAddNewMusic(args []string) error {
	b, err := bank.Read(args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	segmentID, err := b.AddMusic(args[1])
	if err != nil {
		return fmt.Errorf("add music: %w", err)
	}
	log.Info().Uint32("segment_id", segmentID).Msg("music added")
	return rebuildTo(b, args[0])
}

func runPlaylistIDFromTrack(args []string) error {
	b, err := bank.Read(args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	audioID, err := parseUint32(args[1])
	if err != nil {
		return err
	}
	ids, err := b.GetPlaylistIDs(audioID)
	if err != nil {
		return fmt.Errorf("get playlist ids: %w", err)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runExportPlaylist(args []string) error {
	b, err := bank.Read(args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	playlistID, err := parseUint32(args[1])
	if err != nil {
		return err
	}
	outPath := fmt.Sprintf("%s.playlist-%d.txt", args[0], playlistID)
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := b.ExportPlaylist(playlistID, f); err != nil {
		return fmt.Errorf("export playlist: %w", err)
	}
	log.Info().Str("path", outPath).Msg("playlist exported")
	return nil
}

func runReimportPlaylist(args []string) error {
	b, err := bank.Read(args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	playlistID, err := parseUint32(args[1])
	if err != nil {
		return err
	}
	inPath := fmt.Sprintf("%s.playlist-%d.txt", args[0], playlistID)
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", inPath, err)
	}
	defer f.Close()

	if err := b.ReimportPlaylist(playlistID, f); err != nil {
		return fmt.Errorf("reimport playlist: %w", err)
	}
	return rebuildTo(b, args[0])
}

func runDumpSounds(args []string) error {
	b, err := bank.Read(args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := b.DumpSounds(args[1]); err != nil {
		return fmt.Errorf("dump sounds: %w", err)
	}
	log.Info().Str("folder", args[1]).Msg("sounds dumped")
	return nil
}

func runDebug(m mode, args []string) error {
	if len(args) != 1 && len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	b, err := bank.Read(args[0])
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var id uint32
	if len(args) == 2 {
		if id, err = parseUint32(args[1]); err != nil {
			return err
		}
	}

	switch {
	case m.debugEvent:
		obj, err := b.DebugEvent(id)
		if err != nil {
			return err
		}
		fmt.Print(obj.String())
	case m.debugSound:
		obj, err := b.DebugSound(id)
		if err != nil {
			return err
		}
		fmt.Print(obj.String())
	case m.debugObject:
		obj, err := b.DebugObject(id)
		if err != nil {
			return err
		}
		fmt.Print(obj.String())
	case m.debugOwner:
		owners, err := b.DebugOwners(id)
		if err != nil {
			return err
		}
		for _, o := range owners {
			fmt.Println(o)
		}
	default:
		fmt.Print(b.Debug().String())
	}
	return nil
}

func rebuildTo(b *bank.Bank, bnkPath string) error {
	outPath := bnkPath + ".rebuilt"
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := b.Rebuild(f); err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	log.Info().Str("path", outPath).Msg("soundbank rebuilt")
	return nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return uint32(v), nil
}
