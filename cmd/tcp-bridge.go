package cmd

import (
	"github.com/openlink-tools/cf5223dbg/pkg/podrelay"
	"github.com/spf13/cobra"
)

// tcpBridgeCmd forwards raw USB bulk-transfer bytes between a TCP
// listener and the local pod: a second cf5223dbg instance elsewhere can
// dial this listener (pkg/usbchan.OpenTCP) instead of a local pod,
// letting one physical pod be shared with a remote debugger session one
// connection at a time.
var tcpBridgeCmd = &cobra.Command{
	Use:   "tcp-bridge <host:port>",
	Short: "Relay raw USB bulk traffic between a TCP listener and the local pod",
	Long: `Start a TCP server that forwards raw BDM pod bulk-transfer bytes to and
from a single client, one connection at a time. This lets a remote
debugger reach a pod it cannot see over USB directly.

Example:
  cf5223dbg tcp-bridge 0.0.0.0:2560`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return startTCPBridge(args[0])
	},
}

func init() {
	rootCmd.AddCommand(tcpBridgeCmd)
}

func startTCPBridge(addr string) error {
	printInfo("relaying pod at vid=%#04x pid=%#04x on %s\n", cfg.USBVendor, cfg.USBProduct, addr)
	server := podrelay.NewServer(addr, cfg.USBVendor, cfg.USBProduct)
	server.Logf = func(format string, args ...interface{}) { printError(format, args...) }
	return server.Serve()
}
