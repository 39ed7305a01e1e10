// Command catalogctl manages the travel catalog from the terminal through the admin API.
//
//	catalogctl -api https://api.agencia.example login -email admin@agencia.com
//	catalogctl list -type internacional -month Julho
//	catalogctl save pacote.json
//	catalogctl banner set banner.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/Vinicius-jafe/bookish-broccoli/client"
)

const usage = `usage: catalogctl [flags] <command> [args]

commands:
  login -email E [-password P]   log in and store the token (password also read from CATALOG_PASSWORD)
  logout                         forget the stored token
  whoami                         show the admin the stored token belongs to
  list [filters]                 list packages (-type, -region, -month, -q, -min, -max, -featured)
  get <slug>                     print a package as JSON
  save <file.json>               create or replace a package from a JSON file
  delete <id>                    delete a package
  upload <image>...              upload package images and print their paths
  banner [set <image>]           show or replace the homepage banner
  stats                          show catalog counters
  logs [-limit N]                show the latest audit log entries

flags:
`

func defaultSessionDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".catalogctl"
	}
	return filepath.Join(base, "catalogctl")
}

func defaultAPI() string {
	if api := os.Getenv("CATALOG_API"); api != "" {
		return api
	}
	return "http://localhost:4000"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("catalogctl", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	apiURL := flags.String("api", defaultAPI(), "base URL of the catalog API")
	sessionDir := flags.String("session", defaultSessionDir(), "directory holding the session token")
	debug := flags.Bool("debug", false, "dump every request and response to stderr")
	verbose := flags.Bool("v", false, "log client activity to stderr")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	session, err := client.OpenSession(*sessionDir)
	if err != nil {
		fmt.Fprintf(stderr, "catalogctl: %v\n", err)
		return 1
	}

	options := []client.Option{client.WithSession(session)}
	if *debug {
		options = append(options, client.WithDebug(stderr))
	}
	if *verbose {
		options = append(options, client.WithLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	c, err := client.New(*apiURL, options...)
	if err != nil {
		fmt.Fprintf(stderr, "catalogctl: %v\n", err)
		return 1
	}

	name, rest := flags.Arg(0), flags.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "catalogctl: unknown command %q\n", name)
		flags.Usage()
		return 2
	}

	if err := cmd(ctx, &env{client: c, stdout: stdout, stderr: stderr}, rest); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "catalogctl %s: %v\n", name, err)
			return 2
		}
		if errors.Is(err, client.ErrNotAuthenticated) {
			fmt.Fprintln(stderr, "catalogctl: not logged in, run catalogctl login")
			return 1
		}
		fmt.Fprintf(stderr, "catalogctl %s: %v\n", name, err)
		return 1
	}
	return 0
}
