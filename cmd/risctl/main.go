package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// CLI is the risctl command tree.
type CLI struct {
	Globals

	Search   SearchCmd   `cmd:"" help:"Search the catalogue by text, image or vector."`
	Semantic SemanticCmd `cmd:"" help:"Embed a query locally and run a vector search."`
	Chat     ChatCmd     `cmd:"" help:"Start an interactive chat session."`
	Summary  SummaryCmd  `cmd:"" help:"Show catalogue analytics."`
	Health   HealthCmd   `cmd:"" help:"Check backend health."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Globals are flags shared by every command. They override the config file.
type Globals struct {
	Config   string            `help:"Path to a YAML config file (default: config/<env>.yaml)." env:"RIS_CONFIG"`
	Env      string            `help:"Config environment (local, dev, prod)." env:"ENV" default:"local"`
	BaseURL  string            `help:"Backend base URL." name:"base-url"`
	Header   map[string]string `help:"Extra request header as key=value." mapsep:"none"`
	LogLevel string            `help:"Log level: debug, info, warn, error." name:"log-level"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// .env опционален
	_ = godotenv.Load()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("risctl"),
		kong.Description("Command-line client for the retrieval backend"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("build cli: %w", err)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return kctx.Run(&runContext{
		ctx:     ctx,
		globals: &cli.Globals,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	})
}
