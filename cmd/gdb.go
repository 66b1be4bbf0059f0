package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openlink-tools/cf5223dbg/pkg/bdm"
	"github.com/openlink-tools/cf5223dbg/pkg/debugger"
	"github.com/openlink-tools/cf5223dbg/pkg/flashloader"
	"github.com/openlink-tools/cf5223dbg/pkg/rsp"
	"github.com/openlink-tools/cf5223dbg/pkg/usbchan"
)

// runGDBServer is the default mode: open the pod, run bring-up, wire
// the flashloader if its image can be found, and serve GDB RSP until
// interrupted.
func runGDBServer() error {
	sess, err := usbchan.NewSession(cfg.USBVendor, cfg.USBProduct, cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to open pod: %w", err)
	}
	defer sess.Close()

	printInfo("bringing up target...\n")
	info, err := bdm.Bringup(sess)
	if err != nil {
		return fmt.Errorf("target bring-up failed: %w", err)
	}
	if info != nil {
		printInfo("target: %s rev %d, flash %d KB\n", info.PartNumber, info.Revision, info.FlashSizeKB)
	}

	ld, err := openFlashloader(sess)
	if err != nil {
		printInfo("warning: flashloader unavailable, vFlash* will fail: %v\n", err)
	}

	coord := debugger.New(sess, info, ld)

	addr := fmt.Sprintf(":%d", cfg.GDBPort)
	printInfo("listening for GDB on %s\n", addr)
	server := rsp.NewServer(addr, coord)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		printInfo("signal received, shutting down...\n")
		server.Stop()
	}()

	return server.Serve()
}

// openFlashloader resolves and parses the flashloader ELF image. A
// missing image is not fatal to GDB mode — debugging still works, only
// vFlash* operations will fail.
func openFlashloader(sess *usbchan.Session) (*flashloader.Loader, error) {
	path, err := cfg.ResolveFlashloaderPath()
	if err != nil {
		return nil, err
	}
	return flashloader.New(bdm.New(sess), path)
}
