package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/client"
	"github.com/Vinicius-jafe/bookish-broccoli/domain"
)

// env is what a command gets to work with.
type env struct {
	client *client.Client
	stdout io.Writer
	stderr io.Writer
}

type command func(ctx context.Context, e *env, args []string) error

// usageError marks bad arguments, reported with exit code 2.
type usageError struct{ msg string }

func (u usageError) Error() string { return u.msg }

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":  loginCommand,
		"logout": logoutCommand,
		"whoami": whoamiCommand,
		"list":   listCommand,
		"get":    getCommand,
		"save":   saveCommand,
		"delete": deleteCommand,
		"upload": uploadCommand,
		"banner": bannerCommand,
		"stats":  statsCommand,
		"logs":   logsCommand,
	}
}

func newFlagSet(name string, e *env) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(e.stderr)
	return flags
}

func parse(flags *flag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	return nil
}

func loginCommand(ctx context.Context, e *env, args []string) error {
	flags := newFlagSet("login", e)
	email := flags.String("email", "", "admin e-mail")
	password := flags.String("password", os.Getenv("CATALOG_PASSWORD"), "admin password")
	if err := parse(flags, args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return usageError{"-email and -password (or CATALOG_PASSWORD) are required"}
	}

	ok, err := e.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("invalid e-mail or password")
	}
	token := e.client.Session().Token()
	fmt.Fprintf(e.stdout, "logged in as %s until %s\n", *email, token.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

func logoutCommand(_ context.Context, e *env, _ []string) error {
	if err := e.client.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, "logged out")
	return nil
}

func whoamiCommand(ctx context.Context, e *env, _ []string) error {
	me, err := e.client.Verify(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s (%s)\n", me.Email, me.ID)
	return nil
}

func listCommand(ctx context.Context, e *env, args []string) error {
	flags := newFlagSet("list", e)
	var filter domain.PackageFilter
	packageType := flags.String("type", "", "nacional or internacional")
	flags.StringVar(&filter.Region, "region", "", "region")
	flags.StringVar(&filter.Month, "month", "", "month the trip is offered in, e.g. Julho")
	flags.StringVar(&filter.Term, "q", "", "search title and destination")
	flags.IntVar(&filter.MinDuration, "min", 0, "minimum duration in days")
	flags.IntVar(&filter.MaxDuration, "max", 0, "maximum duration in days")
	flags.BoolVar(&filter.FeaturedOnly, "featured", false, "only packages featured on the homepage")
	if err := parse(flags, args); err != nil {
		return err
	}
	if *packageType != "" {
		filter.Type = domain.PackageType(*packageType)
		if !filter.Type.Valid() {
			return usageError{fmt.Sprintf("invalid -type %q", *packageType)}
		}
	}

	packages, err := e.client.ListPackages(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tTYPE\tDESTINATION\tDAYS\tFROM\tFEATURED")
	for _, pkg := range packages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f\t%t\n",
			pkg.ID, pkg.Slug, pkg.Type, pkg.Destination, pkg.Duration, pkg.PriceFrom, pkg.FeaturedHome)
	}
	return w.Flush()
}

func getCommand(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError{"get takes exactly one slug"}
	}
	pkg, err := e.client.GetPackageBySlug(ctx, args[0])
	if err != nil {
		return err
	}
	if pkg == nil {
		return fmt.Errorf("no package published under %q", args[0])
	}
	return printJSON(e.stdout, pkg)
}

func saveCommand(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError{"save takes exactly one JSON file"}
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var pkg domain.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	id, err := e.client.UpsertPackage(ctx, &pkg)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "saved %s as %s\n", id, pkg.Slug)
	return nil
}

func deleteCommand(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError{"delete takes exactly one package id"}
	}
	if err := e.client.DeletePackage(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "deleted %s\n", args[0])
	return nil
}

func uploadCommand(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return usageError{"upload needs at least one image"}
	}
	paths, err := e.client.UploadPackageImages(ctx, args...)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(e.stdout, p)
	}
	return nil
}

func bannerCommand(ctx context.Context, e *env, args []string) error {
	switch {
	case len(args) == 0:
		current, err := e.client.CurrentBanner(ctx)
		if err != nil {
			return err
		}
		if current == nil {
			fmt.Fprintln(e.stdout, "no banner uploaded")
			return nil
		}
		fmt.Fprintf(e.stdout, "%s (updated %s)\n", current.URL, current.UpdatedAt.Local().Format(time.DateTime))
		return nil
	case len(args) == 2 && args[0] == "set":
		url, err := e.client.ReplaceBanner(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, url)
		return nil
	default:
		return usageError{"usage: banner [set <image>]"}
	}
}

func statsCommand(ctx context.Context, e *env, _ []string) error {
	stats, err := e.client.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "packages: %d\nfeatured: %d\n", stats.Packages, stats.Featured)
	for _, t := range []domain.PackageType{domain.Nacional, domain.Internacional} {
		fmt.Fprintf(e.stdout, "%s: %d\n", t, stats.ByType[t])
	}
	return nil
}

func logsCommand(ctx context.Context, e *env, args []string) error {
	flags := newFlagSet("logs", e)
	limit := flags.Int("limit", 20, "number of entries")
	if err := parse(flags, args); err != nil {
		return err
	}

	entries, err := e.client.AuditLogs(ctx, *limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tLEVEL\tACTOR\tMESSAGE")
	for _, entry := range entries {
		actor := entry.Actor
		if actor == "" {
			actor = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entry.Timestamp.Local().Format(time.DateTime), entry.Level, actor, strings.TrimSpace(entry.Message))
	}
	return w.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
