package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/config"
)

type callOptions struct {
	force   bool
	named   map[string]string
	search  string
	backend string
}

func (a *App) newCallCmd() *cobra.Command {
	opts := &callOptions{}

	cmd := &cobra.Command{
		Use:   "call <client> <path> [args...]",
		Short: "Call one path of a client and print the JSON result",
		Long: `Call one path of a client and print the JSON result.

Positional arguments are passed as strings. Named arguments given with
--named are passed as booleans or integers when they parse as one.
--search filters the result with the client's search backend, or the one
given with --search-backend.

Examples:
  apicall call shodan dns.resolve google.com example.com
  apicall call shodan shodan.host 8.8.8.8 --named minify=true
  apicall call pwnedpasswords count password -c apicall.yaml
  apicall call shodan shodan.host.search nginx --search 'matches[].ip_str' --search-backend jmespath`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.call(cmd, args[0], args[1], args[2:], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Bypass the cache and refresh the entry")
	cmd.Flags().StringToStringVar(&opts.named, "named", nil, "Named argument as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.search, "search", "", "Query applied to the result")
	cmd.Flags().StringVar(&opts.backend, "search-backend", "", "Search backend: regex, jmespath or jsonpath")
	return cmd
}

func (a *App) call(cmd *cobra.Command, client, path string, positional []string, opts *callOptions) (err error) {
	ctx := cmd.Context()
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	rt, err := config.Open(ctx, cfg, config.WithLogWriter(a.stderr))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	c, err := rt.Client(ctx, client)
	if err != nil {
		return err
	}

	values := make([]any, len(positional))
	for i, v := range positional {
		values[i] = v
	}
	args := api.Positional(values...)
	for k, v := range opts.named {
		args = args.With(k, parseValue(v))
	}
	if opts.force {
		args.Force = true
	}

	backend := c.SearchBackend()
	if opts.backend != "" {
		backend = api.SearchBackend(opts.backend)
		if !backend.Valid() {
			return fmt.Errorf("%w: %q", api.ErrInvalidSearchBackend, opts.backend)
		}
	}

	out, err := c.Invoke(ctx, path, args)
	if err != nil {
		return err
	}
	if opts.search != "" {
		if out, err = api.Search(backend, opts.search, out); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// parseValue reads a named argument as a bool or an int, falling back to the
// raw string.
func parseValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
