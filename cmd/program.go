package cmd

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/openlink-tools/cf5223dbg/pkg/flash"
	"github.com/openlink-tools/cf5223dbg/pkg/loader"
	"github.com/openlink-tools/cf5223dbg/pkg/util"
	"github.com/spf13/cobra"
)

var (
	programBaseAddr string
	programVerify   bool
	programWatch    bool
)

// programCmd is the standalone `program FILE` subcommand.
var programCmd = &cobra.Command{
	Use:   "program <file>",
	Short: "Erase, program, and optionally verify flash from a binary/ELF/S-Record image",
	Long: `Program the target's on-chip flash from FILE.

FILE may be a raw binary (use --base to place it), an ELF image, or an
S-Record file; format is detected by extension with a content-sniff
fallback.

Example:
  cf5223dbg program firmware.bin --base 0 -v
  cf5223dbg program firmware.elf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProgram(args[0])
	},
}

func init() {
	rootCmd.AddCommand(programCmd)
	programCmd.Flags().StringVar(&programBaseAddr, "base", "0", "base address for a raw binary image (hex)")
	programCmd.Flags().BoolVarP(&programVerify, "verify", "v", false, "verify flash contents after programming")
	programCmd.Flags().BoolVar(&programWatch, "watch", false, "re-flash automatically whenever the file changes on disk")
}

func runProgram(path string) error {
	if programWatch {
		return watchAndProgram(path)
	}
	return programOnce(path)
}

func programOnce(path string) error {
	base, err := util.ParseHexAddress(programBaseAddr)
	if err != nil {
		return fmt.Errorf("invalid --base: %w", err)
	}

	img, err := loader.Load(path, base)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	data := loader.ContiguousImage(img)

	sess, ld, err := openStandaloneSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	engine := flash.New(ld, sess)
	printInfo("programming %d bytes at %#x...\n", len(data), img.MinAddr)
	if err := engine.ProgramBinary(data, img.MinAddr, programVerify); err != nil {
		return fmt.Errorf("flash programming failed: %w", err)
	}
	printInfo("flash programming complete.\n")
	return nil
}

// watchAndProgram re-runs programOnce every time path changes on disk —
// a convenience for iterating on firmware without re-invoking the CLI
// after every build.
func watchAndProgram(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	printInfo("watching %s for changes (ctrl-c to stop)...\n", path)
	if err := programOnce(path); err != nil {
		printError("%v", err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			printInfo("%s changed, reprogramming...\n", path)
			if err := programOnce(path); err != nil {
				printError("%v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError("watcher: %v", err)
		}
	}
}
