package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up | down | status      run goose against the migrations directory
  to <version>            migrate up or down to YYYYMMDDHHMMSS
  create <name>           write a new empty migration (no database needed)
  validate                lint migration filenames and goose markers (no database needed)
`

type options struct {
	dir      string
	embedded bool
	command  string
	arg      string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	fs.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into the binary instead of -dir")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return options{}, fmt.Errorf("command is required")
	}
	opts.command = rest[0]
	switch opts.command {
	case "to", "create":
		if len(rest) < 2 {
			return options{}, fmt.Errorf("%s needs an argument", opts.command)
		}
		opts.arg = rest[1]
	case "up", "down", "status", "validate":
	default:
		return options{}, fmt.Errorf("unknown command %q", opts.command)
	}
	return opts, nil
}

func main() {
	_ = godotenv.Load()

	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.command, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	switch opts.command {
	case "create":
		path, err := migrate.CreateSQLMigration(opts.dir, opts.arg)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"command":  opts.command,
		"dir":      opts.dir,
		"embedded": opts.embedded,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}

	source, err := migrate.Source(opts.dir, opts.embedded)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	if err != nil {
		return err
	}

	logg.Info(ctx, "migrate.start")
	err = apply(ctx, runner, opts, os.Stdout)
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}

func apply(ctx context.Context, runner *migrate.Runner, opts options, out io.Writer) error {
	switch opts.command {
	case "up":
		applied, err := runner.Up(ctx)
		fmt.Fprintf(out, "applied %d migrations\n", len(applied))
		return err
	case "down":
		version, err := runner.Down(ctx)
		if err == nil {
			fmt.Fprintf(out, "rolled back %d\n", version)
		}
		return err
	case "to":
		target, err := migrate.ParseVersion(opts.arg)
		if err != nil {
			return err
		}
		moved, err := runner.To(ctx, target)
		fmt.Fprintf(out, "ran %d migrations toward %d\n", len(moved), target)
		return err
	case "status":
		return runner.Status(ctx, out)
	}
	return fmt.Errorf("unknown command %q", opts.command)
}
