// Command poolacctctl is an operator tool for exercising and
// inspecting the pool-account leasing core outside of a real host
// process. It is not part of the plugin protocol and is never invoked
// by the host; it exists so an operator can validate a pool directory
// and its accounts before wiring them into production.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "poolacctctl:", err)
		os.Exit(1)
	}
}
