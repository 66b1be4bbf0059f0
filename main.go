// cf5223dbg is a host-side debug agent for ColdFire V2 MCF5223x targets.
// It drives a USB-attached BDM pod and presents a GDB Remote Serial
// Protocol server so `gdb ... target remote :3333` can halt, step,
// breakpoint and flash-program the target.
package main

import (
	"fmt"
	"os"

	"github.com/openlink-tools/cf5223dbg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
