package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/apicall/config"
	"github.com/jonwraymond/apicall/health"
)

// errUnhealthy is returned when any check fails.
var errUnhealthy = errors.New("one or more checks are unhealthy")

func (a *App) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the cache backend and the configured API keys",
		Long: `Check the cache backend and the configured API keys.

Every configured client is built so its cache can be checked. No remote API
is called.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
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

			for _, name := range cfg.ClientNames() {
				// Failures surface through the secret check.
				_, _ = rt.Client(ctx, name)
			}

			agg := rt.Checks()
			results := agg.CheckAll(ctx)
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHECK\tSTATUS\tMESSAGE")
			for _, name := range agg.Names() {
				r := results[name]
				msg := r.Message
				if r.Error != nil {
					msg += ": " + r.Error.Error()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, r.Status, msg)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			overall := health.Overall(results)
			fmt.Fprintf(a.stdout, "overall: %s\n", overall)
			if overall == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
}
