// cmd/scribe/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vulntor/scribe/cmd/scribe/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commands.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
