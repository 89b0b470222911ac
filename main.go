package main

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/kgcourse/geopub/cmd"
	"github.com/kgcourse/geopub/internal/cmdutil"
	"github.com/kgcourse/geopub/internal/ctxutil"
	"github.com/kgcourse/geopub/internal/output"
)

func main() {
	ctx, stop := ctxutil.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	var handled cmdutil.HandledCliError
	if !errors.As(err, &handled) {
		output.Error(os.Stderr, cmdutil.TranslateError(err))
	}
	os.Exit(1)
}
