// main is the entry point of the idbhealth CLI.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rbpanama/idbhealth/cmd"
	"github.com/rbpanama/idbhealth/internal/contract"
	"github.com/rbpanama/idbhealth/internal/history"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cmd.SetHistoryManager(history.Manager)

	err := cmd.Execute(ctx)
	history.CloseHistory()
	stop()
	if err != nil {
		contract.LogFatal("Error", err)
	}
}
