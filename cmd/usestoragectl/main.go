package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/docopt/docopt-go"
)

const Version = "0.1.0"

const usage = `usestoragectl - inspect and edit persisted namespaces.

Namespaces hold JSON objects. The backend is chosen with USESTORAGE_BACKEND
(memory, file, bolt, sqlite, redis, bigcache, ristretto); memory, bigcache and
ristretto only live for one invocation. USESTORAGE_CODEC picks the encoding at
rest (json, cbor, msgpack).

Usage:
    usestoragectl get <namespace> [--rule=<expr>...]
    usestoragectl set <namespace> <json> [--rule=<expr>...]
    usestoragectl merge <namespace> <json> [--rule=<expr>...]
    usestoragectl clear <namespace>
    usestoragectl names
    usestoragectl -h | --help
    usestoragectl --version

Options:
    -h --help        Show this screen.
    --version        Show version.
    --rule=<expr>    Validation rule over the document, bound as self.
                     e.g. --rule='self.volume <= 100'`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns the process exit code: 0 ok, 1 failure, 2 usage error.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	helped := false
	parser := &docopt.Parser{
		HelpHandler: func(err error, out string) {
			helped = true
			if err != nil {
				fmt.Fprintln(stderr, out)
				return
			}
			fmt.Fprintln(stdout, strings.TrimSpace(out))
		},
	}
	opts, err := parser.ParseArgs(usage, argv, Version)
	if err != nil {
		return 2
	}
	if helped {
		return 0
	}

	cmd, err := commandFrom(opts)
	if err != nil {
		fmt.Fprintf(stderr, "usestoragectl: %v\n", err)
		return 2
	}
	if err := cmd.exec(ctx, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "usestoragectl: %v\n", err)
		return 1
	}
	return 0
}
