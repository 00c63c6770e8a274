// Command diag offers small operator checks against the reservations
// database.
//
//	diag reservation --trip 1 --seat 7
//	diag login --email admin@example.com --password Pass1234
//	diag token --user 1
//	diag set-password --email admin@example.com --password Pass1234
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/diagnosis/luxbus/pkg/config"
	"github.com/diagnosis/luxbus/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *env, args []string) error
}

type env struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	out  io.Writer
}

var commands = []command{
	{"reservation", "print the reservation holding a seat", runReservation},
	{"login", "check an email and password against the stored hash", runLogin},
	{"token", "mint an access token for a user", runToken},
	{"set-password", "replace a user's password", runSetPassword},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printUsage(os.Stderr)
		return nil
	}

	cmd, ok := lookup(args[0])
	if !ok {
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	return cmd.run(ctx, &env{cfg: cfg, pool: pool, out: os.Stdout}, args[1:])
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: diag <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.usage)
	}
}

// parse returns errHelp when the user asked for help, which callers treat as
// success.
func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

var errHelp = errors.New("help requested")

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
