package main

import (
	"context"

	"econwatcher/cmd/econwatcher/commands"
	"econwatcher/internal/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
