// Command bizagent runs the invoice, sales and to-do agents from a terminal.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(AppOptions{}).ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}
