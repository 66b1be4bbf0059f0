// Package cmd implements the cf5223dbg command-line interface: the
// default GDB-server mode plus the standalone erase/program/list-devices
// modes.
package cmd

import (
	"fmt"
	"os"

	"github.com/openlink-tools/cf5223dbg/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Global configuration instance, loaded once in PersistentPreRunE.
	cfg *config.Config

	// Global flags
	portFlag    int
	usbVidFlag  string
	usbPidFlag  string
	verboseFlag bool
)

// rootCmd is also the default GDB-server mode: `cf5223dbg` with no
// subcommand brings up the target and serves RSP on --port.
var rootCmd = &cobra.Command{
	Use:   "cf5223dbg",
	Short: "GDB remote-serial debug agent for ColdFire V2 (MCF5223x) over a USB BDM pod",
	Long: `cf5223dbg drives a USB-attached BDM pod for the ColdFire V2 (MCF5223x)
family and presents a GDB Remote Serial Protocol server, so a developer
can run "gdb ... target remote :3333" to halt, step, set hardware and
software breakpoints and watchpoints, and program on-chip flash
(including GDB's vFlash* packets).

With no subcommand, cf5223dbg brings up the target and serves GDB on
the configured TCP port. Use the erase or program subcommand for
standalone flash operations without a GDB session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if portFlag != 0 {
			cfg.GDBPort = portFlag
		}
		if usbVidFlag != "" {
			v, err := parseHex16(usbVidFlag)
			if err != nil {
				return fmt.Errorf("invalid --usb-vid: %w", err)
			}
			cfg.USBVendor = v
		}
		if usbPidFlag != "" {
			v, err := parseHex16(usbPidFlag)
			if err != nil {
				return fmt.Errorf("invalid --usb-pid: %w", err)
			}
			cfg.USBProduct = v
		}
		if verboseFlag {
			cfg.Verbose = true
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGDBServer()
	},
}

// Execute adds all child commands to rootCmd and runs it. Called once
// by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", 0, "GDB RSP TCP listen port (default 3333)")
	rootCmd.PersistentFlags().StringVar(&usbVidFlag, "usb-vid", "", "override pod USB vendor ID (hex, e.g. 1357)")
	rootCmd.PersistentFlags().StringVar(&usbPidFlag, "usb-pid", "", "override pod USB product ID (hex, e.g. 0503)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "trace every USB request/response frame")
	rootCmd.Flags().Bool("gdb", true, "run the GDB RSP server (default behavior; present for explicitness)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func parseHex16(s string) (uint16, error) {
	var v uint32
	if _, err := fmt.Sscanf(s, "%x", &v); err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// printInfo writes an informational line to stdout.
func printInfo(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// printError writes an error line to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
