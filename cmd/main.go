// Command wwtools converts Wwise WEM audio files to Ogg Vorbis and
// extracts WEMs from SoundBank (.bnk) files.
//
// With no arguments, every .wem in the current directory is converted.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jfreymuth/oggvorbis"

	wwtools "github.com/tnt-coders/wwise-audio-tools"
	"github.com/tnt-coders/wwise-audio-tools/bnk"
	"github.com/tnt-coders/wwise-audio-tools/util"
	"github.com/tnt-coders/wwise-audio-tools/wem"
)

const wemExtension = ".wem"
const oggExtension = ".ogg"

var soundBankExtensions = []string{".nbnk", ".bnk"}

var showInfo bool
var codebooksPath string
var inlineCodebooks bool
var fullSetup bool
var forceModPackets bool
var forceNoModPackets bool
var noConvert bool
var verify bool
var output string

type flagError string

func init() {
	const (
		usage    = "show information about the parsed file instead of converting it"
		flagName = "info"
	)
	flag.BoolVar(&showInfo, flagName, false, usage)
	flag.BoolVar(&showInfo, "i", false, shorthandDesc(flagName))
}

func init() {
	const (
		usage = "the path to a packed codebooks file, needed for wems that " +
			"reference external codebooks"
		flagName = "codebooks"
	)
	flag.StringVar(&codebooksPath, flagName, "", usage)
	flag.StringVar(&codebooksPath, "cb", "", shorthandDesc(flagName))
}

func init() {
	const (
		usage    = "read codebooks from the wem's setup data instead of a codebooks file"
		flagName = "inline-codebooks"
	)
	flag.BoolVar(&inlineCodebooks, flagName, false, usage)
}

func init() {
	const (
		usage    = "copy the full setup header instead of rebuilding a stripped one"
		flagName = "full-setup"
	)
	flag.BoolVar(&fullSetup, flagName, false, usage)
}

func init() {
	const (
		usage    = "treat audio packets as modified Vorbis packets regardless of the vorb chunk"
		flagName = "force-mod-packets"
	)
	flag.BoolVar(&forceModPackets, flagName, false, usage)
}

func init() {
	const (
		usage    = "treat audio packets as standard Vorbis packets regardless of the vorb chunk"
		flagName = "force-no-mod-packets"
	)
	flag.BoolVar(&forceNoModPackets, flagName, false, usage)
}

func init() {
	const (
		usage    = "when extracting a SoundBank, write the raw .wem files without converting them"
		flagName = "no-convert"
	)
	flag.BoolVar(&noConvert, flagName, false, usage)
}

func init() {
	const (
		usage    = "fully decode each converted file to check that the output is playable"
		flagName = "verify"
	)
	flag.BoolVar(&verify, flagName, false, usage)
}

func init() {
	const (
		usage    = "the directory to write output files to, instead of next to the inputs"
		flagName = "output"
	)
	flag.StringVar(&output, flagName, "", usage)
	flag.StringVar(&output, "o", "", shorthandDesc(flagName))
}

func shorthandDesc(flagName string) string {
	return "(shorthand for -" + flagName + ")"
}

func verifyFlags() {
	var err flagError
	switch {
	case forceModPackets && forceNoModPackets:
		err = "Both force-mod-packets and force-no-mod-packets cannot be specified"
	case inlineCodebooks && codebooksPath != "":
		err = "Both inline-codebooks and codebooks cannot be specified"
	}

	if err != "" {
		flag.Usage()
		log.Fatal(err)
	}
}

func conversionOptions() (wem.Options, error) {
	opts := wem.Options{
		InlineCodebooks: inlineCodebooks,
		FullSetup:       fullSetup,
	}
	switch {
	case forceModPackets:
		opts.PacketFormat = wem.PacketFormatForceMod
	case forceNoModPackets:
		opts.PacketFormat = wem.PacketFormatForceNoMod
	}
	if codebooksPath != "" {
		blob, err := os.ReadFile(codebooksPath)
		if err != nil {
			return opts, fmt.Errorf("could not read codebooks: %w", err)
		}
		opts.CodebookData = blob
	}
	return opts, nil
}

func contains(sources []string, target string) bool {
	for _, s := range sources {
		if s == target {
			return true
		}
	}
	return false
}

// outputPath places name in the output directory if one was given, or next
// to the input file otherwise.
func outputPath(inputPath, name string) string {
	if output != "" {
		return filepath.Join(output, name)
	}
	return filepath.Join(filepath.Dir(inputPath), name)
}

func createOutputDirIfEmpty() {
	if output == "" {
		return
	}
	if _, err := os.Stat(output); os.IsNotExist(err) {
		if err := os.Mkdir(output, os.ModePerm); err != nil {
			log.Fatalln("Could not create output directory:", err)
		}
	}
}

func convertData(data []byte, opts wem.Options, outPath string) error {
	ogg, err := wwtools.ConvertWemToOggOptions(data, opts)
	if err != nil {
		return err
	}
	if verify {
		if _, _, err := oggvorbis.ReadAll(bytes.NewReader(ogg)); err != nil {
			return fmt.Errorf("output did not decode: %w", err)
		}
	}
	return os.WriteFile(outPath, ogg, 0644)
}

func processWem(path string, opts wem.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if showInfo {
		f, err := wem.NewFile(data, opts)
		if err != nil {
			return err
		}
		fmt.Printf("%s:\n%s", path, f.Info())
		return nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return convertData(data, opts, outputPath(path, base+oggExtension))
}

func processSoundBank(path string, opts wem.Options) error {
	f, err := bnk.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if showInfo {
		fmt.Printf("%s: bank id %d, version %d, %d wem(s)\n%s",
			path, f.BankId(), f.Version(), f.WemCount(), f)
		return nil
	}

	wems, err := f.Extract()
	if err != nil {
		return err
	}

	for i, w := range wems {
		name := util.CanonicalWemName(i, len(wems))
		if w.Streamed {
			log.Printf("%s: wem %d is streamed; its embedded data is only a prefetch stub "+
				"(the full audio is in %d.wem)", path, w.Id, w.Id)
		}
		if noConvert {
			if err := os.WriteFile(outputPath(path, name), w.Data, 0644); err != nil {
				return err
			}
			continue
		}
		outName := strings.TrimSuffix(name, wemExtension) + oggExtension
		if err := convertData(w.Data, opts, outputPath(path, outName)); err != nil {
			return fmt.Errorf("wem %d: %w", w.Id, err)
		}
	}
	fmt.Printf("Extracted %d wem(s) from %s\n", len(wems), path)
	return nil
}

func inputFiles() []string {
	if flag.NArg() > 0 {
		return flag.Args()
	}

	// no arguments: process every wem in the current directory
	matches, err := filepath.Glob("*" + wemExtension)
	if err != nil || len(matches) == 0 {
		log.Fatal("No input files given and no .wem files in the current directory")
	}
	return matches
}

func main() {
	flag.Parse()
	verifyFlags()

	opts, err := conversionOptions()
	if err != nil {
		log.Fatal(err)
	}
	createOutputDirIfEmpty()

	failures := 0
	for _, path := range inputFiles() {
		if contains(soundBankExtensions, filepath.Ext(path)) {
			err = processSoundBank(path, opts)
		} else {
			err = processWem(path, opts)
		}
		if err != nil {
			log.Printf("%s: %s", path, err)
			failures++
		}
	}

	if failures > 0 {
		log.Fatalf("%d file(s) failed", failures)
	}
}
