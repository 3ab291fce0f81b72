// Command anomalyctl runs anomaly detection on a local CSV file and prints
// the result as JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		msg := core.MapError(err)
		fmt.Fprintf(os.Stderr, "error [%s]: %s\n", msg.Code, core.ErrorDetail(err))
		if msg.Action != "" {
			fmt.Fprintln(os.Stderr, msg.Action)
		}
		stop()
		os.Exit(1)
	}
}
