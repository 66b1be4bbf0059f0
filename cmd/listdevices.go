package cmd

import (
	"github.com/google/gousb"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

// listDevicesCmd enumerates every USB device matching the pod's VID so
// a developer can confirm a pod is attached and see which PID it's
// presenting before wiring up a real target.
var listDevicesCmd = &cobra.Command{
	Use:     "list-devices",
	Aliases: []string{"list-ports"},
	Short:   "List attached USB devices matching the pod's vendor ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListDevices()
	},
}

func init() {
	rootCmd.AddCommand(listDevicesCmd)
}

func runListDevices() error {
	ctx := gousb.NewContext()
	defer ctx.Close()

	found := 0
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor == gousb.ID(cfg.USBVendor) {
			found++
			printInfo("bus %03d addr %03d: vid=%04x pid=%04x\n", desc.Bus, desc.Address, uint16(desc.Vendor), uint16(desc.Product))
		}
		return false // never actually open; we only want the descriptor scan
	})
	if err != nil {
		return err
	}
	for _, d := range devs {
		d.Close()
	}
	if found == 0 {
		printInfo("no pod found at vendor id %#04x\n", cfg.USBVendor)
	}

	// Some pod revisions also enumerate a CDC-ACM serial port alongside
	// the bulk USB interface; list OS serial ports too so a developer
	// can rule that case out without reaching for a separate tool.
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil
	}
	if len(ports) > 0 {
		printInfo("serial ports present on this host:\n")
		for _, p := range ports {
			printInfo("  %s\n", p)
		}
	}
	return nil
}
