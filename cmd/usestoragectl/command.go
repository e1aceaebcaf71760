package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/docopt/docopt-go"

	usestorage "github.com/Hampfh/use-storage"
	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/codec"
	asynchook "github.com/Hampfh/use-storage/hooks/async"
	"github.com/Hampfh/use-storage/internal/config"
	"github.com/Hampfh/use-storage/schema"
	"github.com/Hampfh/use-storage/sloghooks"
)

type document = map[string]any

type command struct {
	name      string // get, set, merge, clear, names
	namespace string
	payload   string
	rules     []schema.Rule
}

func commandFrom(opts docopt.Opts) (command, error) {
	var c command
	for _, name := range []string{"get", "set", "merge", "clear", "names"} {
		if ok, _ := opts.Bool(name); ok {
			c.name = name
			break
		}
	}
	if c.name == "" {
		return c, errors.New("no command given")
	}
	c.namespace, _ = opts.String("<namespace>")
	c.payload, _ = opts.String("<json>")
	if raw, ok := opts["--rule"].([]string); ok {
		for _, r := range raw {
			c.rules = append(c.rules, schema.Rule{Expr: r})
		}
	}
	return c, nil
}

func documentCodec(name string) codec.Codec[document] {
	switch name {
	case config.CodecCBOR:
		return codec.MustCBOR[document](true)
	case config.CodecMsgpack:
		return codec.Msgpack[document]{}
	default:
		return codec.JSON[document]{Indent: "  "}
	}
}

func namespaceSchema(name, codecName string, rules []schema.Rule) (*schema.Schema[document], error) {
	var opts []schema.Option[document]
	if len(rules) > 0 {
		v, err := schema.NewExpr[document](rules...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.WithValidator[document](v))
	}
	return schema.New[document](name, documentCodec(codecName), opts...), nil
}

func parseDocument(s string) (document, error) {
	doc, err := (codec.JSON[document]{}).Decode([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if doc == nil {
		return nil, errors.New("parse json: expected an object")
	}
	return doc, nil
}

func printDocument(w io.Writer, doc document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func (c command) exec(ctx context.Context, stdout, stderr io.Writer) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, events, flush, err := newLoggers(cfg, stderr)
	if err != nil {
		return err
	}
	defer flush()

	hooks := asynchook.New(sloghooks.New(events, sloghooks.Options{}), 1, 256)
	defer hooks.Close()

	adp, err := openAdapter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}

	if c.name == "names" {
		defer adp.Close(context.Background())
		return listNames(ctx, adp, stdout)
	}

	s, err := namespaceSchema(c.namespace, cfg.Codec, c.rules)
	if err != nil {
		_ = adp.Close(ctx)
		return err
	}
	eng, err := usestorage.New(usestorage.Options{
		Registry:      schema.MustRegistry(s),
		Adapter:       adp,
		Logger:        logger,
		Hooks:         hooks,
		LoadTimeout:   cfg.LoadTimeout,
		GuardRollback: cfg.GuardRollback,
		OnCorrupt: func(_ context.Context, cerr *usestorage.CorruptError) {
			fmt.Fprintf(stderr, "warning: stored %q is unreadable: %v\n", cerr.Namespace, cerr.Err)
		},
	})
	if err != nil {
		_ = adp.Close(ctx)
		return err
	}
	defer func() {
		err = errors.Join(err, eng.Close(context.Background()))
	}()

	h, err := usestorage.Open(eng, s)
	if err != nil {
		return err
	}
	defer h.Close()
	if err := h.Wait(ctx); err != nil {
		return err
	}

	switch c.name {
	case "get":
		doc, ok := h.Value()
		if !ok {
			return fmt.Errorf("%s: not found", c.namespace)
		}
		return printDocument(stdout, doc)
	case "set":
		doc, err := parseDocument(c.payload)
		if err != nil {
			return err
		}
		ok, err := eng.Write(ctx, c.namespace, doc)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: write failed", c.namespace)
		}
		return nil
	case "merge":
		fields, err := parseDocument(c.payload)
		if err != nil {
			return err
		}
		if !h.Merge(ctx, fields) {
			return fmt.Errorf("%s: merge rejected", c.namespace)
		}
		doc, _ := h.Value()
		return printDocument(stdout, doc)
	case "clear":
		if !eng.Clear(ctx, c.namespace) {
			return fmt.Errorf("%s: clear failed", c.namespace)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", c.name)
	}
}

func listNames(ctx context.Context, a adapter.Adapter, w io.Writer) error {
	l, ok := a.(adapter.Lister)
	if !ok {
		return errors.New("backend cannot list namespaces")
	}
	names, err := l.Names(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}
