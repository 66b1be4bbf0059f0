package cmd

import (
	"fmt"

	"github.com/openlink-tools/cf5223dbg/pkg/flash"
	"github.com/openlink-tools/cf5223dbg/pkg/util"
	"github.com/spf13/cobra"
)

// eraseCmd is the standalone `erase` subcommand.
var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Mass-erase the target's on-chip flash",
	Long: `Mass-erase the entire 256 KB flash device on the attached MCF5223x.

⚠️  WARNING: This is a destructive operation that cannot be undone.

Example:
  cf5223dbg erase`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runErase()
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}

func runErase() error {
	if !util.ConfirmDanger("You are about to mass-erase the entire on-chip flash") {
		printInfo("Operation cancelled.\n")
		return nil
	}

	sess, ld, err := openStandaloneSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	engine := flash.New(ld, sess)
	printInfo("erasing flash...\n")
	if err := engine.MassErase(); err != nil {
		return fmt.Errorf("mass erase failed: %w", err)
	}
	printInfo("flash erased.\n")
	return nil
}
