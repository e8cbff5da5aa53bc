package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	envFile := flag.String("env", ".env", "env file to read configuration from")
	clearCache := flag.Bool("clear-cache", false, "remove the compiled container artifact and exit")
	compileOnly := flag.Bool("compile-only", false, "bootstrap the container (writing the artifact outside debug mode) and exit")
	flag.Parse()

	application, err := app.New(app.Options{EnvFiles: []string{*envFile}})
	if err != nil {
		return err
	}
	defer application.Close()

	switch {
	case *clearCache:
		return application.ClearCache()
	case *compileOnly:
		application.Logger().Info("container ready", zap.Stringer("state", application.State()))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}
