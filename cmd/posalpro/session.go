package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/morabah/posalpro-app-sub013/internal/config"
	"github.com/morabah/posalpro-app-sub013/internal/server"
	"github.com/morabah/posalpro-app-sub013/pkg/domain"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions in the configured session store",
	Long:  `Issue and revoke session tokens directly in the redis or postgres session store.`,
}

var sessionIssueCmd = &cobra.Command{
	Use:   "issue <user-id>",
	Short: "Mint a session token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := sharedSessionApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		email, _ := cmd.Flags().GetString("email")
		roles, _ := cmd.Flags().GetStringSlice("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := app.Sessions.Issue(cmd.Context(), domain.Caller{ID: args[0], Email: email, Roles: roles}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var sessionRevokeCmd = &cobra.Command{
	Use:   "revoke <token>...",
	Short: "Revoke one or more session tokens",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := sharedSessionApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, token := range args {
			if err := app.Sessions.Revoke(cmd.Context(), token); err != nil {
				return fmt.Errorf("revoke: %w", err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d session(s)\n", len(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionIssueCmd)
	sessionCmd.AddCommand(sessionRevokeCmd)

	sessionIssueCmd.Flags().String("email", "", "Email recorded on the session")
	sessionIssueCmd.Flags().StringSlice("role", nil, "Role granted to the session (repeatable)")
	sessionIssueCmd.Flags().Duration("ttl", 0, "Session lifetime (default from configuration)")
}

// sharedSessionApp builds the app for commands that touch the session store.
// An in-memory store would vanish with this process, so it is rejected.
func sharedSessionApp(cmd *cobra.Command) (*server.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Session.Store == config.BackendMemory {
		return nil, fmt.Errorf("session store %q is process-local; configure redis or postgres", cfg.Session.Store)
	}
	return server.Build(cmd.Context(), cfg, newLogger(cfg), Version)
}

