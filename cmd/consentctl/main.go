package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "consentctl",
	Short: "Consent dashboard CLI",
	Long:  "A CLI for inspecting and acting on consent state via a local consentd daemon.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		// Env var overrides are applied in newClient()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(activeCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(denyCmd())
	rootCmd.AddCommand(revokeCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(configCmd())
}

func pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List pending consent requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().get("/v1/consents/pending")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func activeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List active consents",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().get("/v1/consents/active")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the consent audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/consents/audit"
			if trails, _ := cmd.Flags().GetBool("trails"); trails {
				path = "/v1/consents/trails"
			} else if mirrored, _ := cmd.Flags().GetBool("mirror"); mirrored {
				path = "/v1/consents/mirror"
			}
			result, err := newClient().get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().Bool("trails", false, "Group entries into per-agent trails")
	cmd.Flags().Bool("mirror", false, "Read from the local audit mirror")
	return cmd
}

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <request-id>",
		Short: "Approve a pending consent request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().post("/v1/consents/"+args[0]+"/approve", nil)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func denyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deny <request-id>",
		Short: "Deny a pending consent request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().post("/v1/consents/"+args[0]+"/deny", nil)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func revokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <scope>",
		Short: "Revoke an active consent by scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().post("/v1/consents/revoke", map[string]any{"scope": args[0]})
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show local session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().get("/v1/session")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a full refresh against the backend of record",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().post("/v1/sys/refresh", nil)
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func notificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Drain pending notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().get("/v1/notifications")
			if err != nil {
				printError(err.Error())
				return nil
			}
			printResult(result)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage CLI configuration"}

	setCmd := &cobra.Command{
		Use:   "set-address <addr>",
		Short: "Set the consentd address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Address = args[0]
			return saveConfig()
		},
	}

	cmd.AddCommand(setCmd)
	return cmd
}
