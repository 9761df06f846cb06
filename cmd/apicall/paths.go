package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/apis"
)

func (a *App) newClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List the registered API clients",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range apis.Names() {
				fmt.Fprintln(a.stdout, name)
			}
		},
	}
}

func (a *App) newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths <client>",
		Short: "List the call paths of a client",
		Long: `List every call path of a client with its kind, cache TTL, throttle and
the buckets it invalidates.

Examples:
  apicall paths shodan
  apicall paths haveibeenpwned`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := apis.Class(args[0])
			if err != nil {
				return err
			}
			tree, err := class.Build()
			if err != nil {
				return err
			}
			return a.printPaths(tree)
		},
	}
}

func (a *App) printPaths(tree *api.Tree) error {
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tKIND\tCACHE\tTHROTTLE\tFLAGS")
	for _, spec := range tree.Specs() {
		ttl := "-"
		if spec.Cache != nil {
			ttl = spec.Cache.TTL.String()
			if spec.Cache.TTL == 0 {
				ttl = "default"
			}
		}
		throttle := "-"
		if t := spec.Throttle; t != nil {
			throttle = fmt.Sprintf("%d/%s", max(t.Requests, 1), t.Period)
		}
		var flags []string
		if spec.Private {
			flags = append(flags, "private")
		}
		if len(spec.Invalidates) > 0 {
			flags = append(flags, "invalidates="+strings.Join(spec.Invalidates, ","))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", spec.Path(), spec.Kind, ttl, throttle, strings.Join(flags, " "))
	}
	return w.Flush()
}
