package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tranvo/nihongo/internal/cli"
	"github.com/tranvo/nihongo/internal/domain"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		// A clean interrupt between reviews is a normal session end;
		// committed reviews are already durable.
		if stderrors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		if stderrors.Is(err, domain.ErrBackend) || stderrors.Is(err, domain.ErrIntegrity) {
			fmt.Fprintln(os.Stderr, "the database reported a failure; try again")
		}
		os.Exit(1)
	}
}
