package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/morabah/posalpro-app-sub013/internal/server"
	"github.com/morabah/posalpro-app-sub013/pkg/route"
)

var routesCmd = &cobra.Command{
	Use:   "routes [file]",
	Short: "Validate a routes file and list the effective routes",
	Long: `Parses the routes file (or the one named in the configuration), merges it
over the built-in declarations and prints one line per route.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		} else {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path = cfg.RoutesFile
		}

		var overrides map[string]route.Config
		if path != "" {
			var err error
			if overrides, err = route.LoadConfigs(path); err != nil {
				return err
			}
		}
		routes, err := server.MergeRoutes(overrides)
		if err != nil {
			return err
		}

		profile := termenv.Ascii
		if isTerminal(os.Stdout) {
			profile = termenv.ColorProfile()
		}
		return printRoutes(cmd.OutOrStdout(), routes, profile)
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func printRoutes(w io.Writer, routes map[string]route.Config, p termenv.Profile) error {
	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMETHOD\tPATH\tAUTH\tROLES\tIDEMPOTENCY\tVERSION")
	for _, name := range names {
		cfg := routes[name]

		auth := "required"
		if !cfg.AuthRequired() {
			auth = "anonymous"
		}
		roles := "-"
		if len(cfg.Roles) > 0 {
			roles = strings.Join(cfg.Roles, ",")
		}
		idem := "off"
		if cfg.Idempotency.IsEnabled() {
			scope := cfg.Idempotency.Scope
			if scope == "" {
				scope = route.ScopeUser
			}
			idem = fmt.Sprintf("%s/%s", scope, cfg.Idempotency.TTL())
		}
		version := cfg.APIVersion
		if version == "" {
			version = route.DefaultAPIVersion
		}
		label := termenv.String(name).Foreground(p.Color("#a78bfa")).String()
		if cfg.Deprecation != nil {
			version += " (deprecated)"
			label = termenv.String(name).Foreground(p.Color("#fb7185")).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", label, cfg.Method, cfg.Path, auth, roles, idem, version)
	}
	return tw.Flush()
}
