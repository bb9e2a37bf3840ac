// loom validates workflow definitions, renders their diagrams, and runs the
// template store housekeeping daemon.
//
// Usage:
//
//	loom validate <definition.json>
//	loom diagram [-format mermaid|ascii|png] [-o out] <definition.json>
//	loom serve
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loomworks/loom/internal/diagram"
	"github.com/loomworks/loom/internal/logging"
	"github.com/loomworks/loom/internal/maintenance"
	"github.com/loomworks/loom/internal/store"
	"github.com/loomworks/loom/internal/validation"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "diagram":
		err = runDiagram(os.Args[2:])
	case "serve":
		err = runServe()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: loom <validate|diagram|serve> [args]")
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("validate: expected one definition file")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	v, err := validation.NewWorkflowValidator()
	if err != nil {
		return err
	}

	_, result := v.ValidateBytes(raw)
	for _, w := range result.Warnings {
		fmt.Printf("warning %s: %s\n", w.Path, w.Message)
	}
	if !result.Valid() {
		for _, e := range result.Errors {
			fmt.Printf("error %s: %s\n", e.Path, e.Message)
		}
		return fmt.Errorf("definition is invalid (%d errors)", len(result.Errors))
	}
	fmt.Println("definition is valid")
	return nil
}

func runDiagram(args []string) error {
	fs := flag.NewFlagSet("diagram", flag.ExitOnError)
	format := fs.String("format", "mermaid", "output format: mermaid, ascii, or png")
	out := fs.String("o", "", "output file (default stdout; required for png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("diagram: expected one definition file")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	v, err := validation.NewWorkflowValidator()
	if err != nil {
		return err
	}
	def, result := v.ValidateBytes(raw)
	if def == nil {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "error %s: %s\n", e.Path, e.Message)
		}
		return fmt.Errorf("definition could not be parsed")
	}

	rendered, err := diagram.Render(def, diagram.Format(*format))
	if err != nil {
		return err
	}

	if *out == "" {
		if diagram.Format(*format) == diagram.FormatPNG {
			return fmt.Errorf("diagram: -o is required for png output")
		}
		fmt.Print(string(rendered))
		return nil
	}
	return os.WriteFile(*out, rendered, 0o644)
}

func runServe() error {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	if err := os.MkdirAll(loomDir(), 0o755); err != nil {
		return err
	}

	s, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("store ready", slog.String("db_path", cfg.DBPath))

	janitor, err := maintenance.NewJanitor(s, cfg.VacuumSchedule, logger)
	if err != nil {
		return err
	}
	janitor.Start(ctx)
	defer janitor.Stop()

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}
