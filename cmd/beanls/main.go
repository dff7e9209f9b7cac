// Command beanls is the beancount language server: a JSON-RPC/LSP
// process speaking over stdio. CLI wiring uses urfave/cli's App shape.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/polarmutex/beancount-language-server/internal/config"
	"github.com/polarmutex/beancount-language-server/internal/debug"
	"github.com/polarmutex/beancount-language-server/internal/diagnostics"
	"github.com/polarmutex/beancount-language-server/internal/dispatch"
	"github.com/polarmutex/beancount-language-server/internal/version"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "beanls",
		Usage:   "Language server for the beancount plain-text accounting format",
		Version: version.FullInfo(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "stdio",
				Usage: "communicate over stdin/stdout (the only supported transport)",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "write logs to this file instead of discarding them",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn, or error",
				Value: "info",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func run(c *cli.Context) error {
	if logPath := c.String("log"); logPath != "" {
		if err := debug.InitLogFile(logPath); err != nil {
			return fmt.Errorf("beanls: failed to open log file %s: %w", logPath, err)
		}
		defer debug.Close()
	}

	level, err := debug.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("beanls: invalid --log-level: %w", err)
	}
	debug.SetLevel(level)

	workspaceRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("beanls: failed to determine working directory: %w", err)
	}

	cfg, err := config.Load(workspaceRoot, nil)
	if err != nil {
		return fmt.Errorf("beanls: failed to load configuration: %w", err)
	}

	registry := diagnostics.NewRegistry(
		&diagnostics.SystemValidator{Cmd: cfg.BeanCheck.BeanCheckCmd},
		&diagnostics.PythonSystemValidator{PythonCmd: cfg.BeanCheck.PythonCmd},
	)

	uriForPath := func(path string) string {
		if filepath.IsAbs(path) {
			return "file://" + path
		}
		return "file://" + filepath.Join(workspaceRoot, path)
	}
	rootFile := func() string { return cfg.JournalFile }

	loop := dispatch.NewLoop(os.Stdin, os.Stdout, cfg, registry, workspaceRoot, uriForPath, rootFile)
	exitCode := loop.Run()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
