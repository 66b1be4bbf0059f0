package cmd

import (
	"fmt"

	"github.com/openlink-tools/cf5223dbg/pkg/bdm"
	"github.com/openlink-tools/cf5223dbg/pkg/flashloader"
	"github.com/openlink-tools/cf5223dbg/pkg/usbchan"
)

// openStandaloneSession opens the pod, runs bring-up, and resolves the
// flashloader image — the shared setup every standalone (non-GDB) flash
// mode needs before it can touch the flash engine.
func openStandaloneSession() (*usbchan.Session, *flashloader.Loader, error) {
	sess, err := usbchan.NewSession(cfg.USBVendor, cfg.USBProduct, cfg.Verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pod: %w", err)
	}

	printInfo("bringing up target...\n")
	if _, err := bdm.Bringup(sess); err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("target bring-up failed: %w", err)
	}

	path, err := cfg.ResolveFlashloaderPath()
	if err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("flashloader image required for this mode: %w", err)
	}
	ld, err := flashloader.New(bdm.New(sess), path)
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	return sess, ld, nil
}
