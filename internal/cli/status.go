package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soyeahso/ai4cs/internal/config"
	"github.com/soyeahso/ai4cs/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ai4cs status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ai4cs %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:   %s\n", paths.Config)
			fmt.Fprintf(out, "Data:     %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:     %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := loadedConfig()
			if err != nil {
				fmt.Fprintf(out, "Config:   error loading: %v\n", err)
				return nil
			}
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:   not found (using defaults)")
			}

			fmt.Fprintf(out, "Gateway:  port=%d bind=%s origins=%v\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.AllowedOrigins)

			key := "unset"
			if cfg.Provider.APIKey != "" {
				key = "set"
			}
			endpoint := cfg.Provider.Endpoint
			if endpoint == "" {
				endpoint = "(default)"
			}
			fmt.Fprintf(out, "Provider: %s model=%s endpoint=%s apiKey=%s timeout=%s\n",
				cfg.Provider.Name, cfg.Provider.Model, endpoint, key, cfg.Provider.Timeout())

			ttl := "never"
			if cfg.Session.TTL() > 0 {
				ttl = cfg.Session.TTL().String()
			}
			capacity := "unbounded"
			if cfg.Session.MaxSessions > 0 {
				capacity = fmt.Sprint(cfg.Session.MaxSessions)
			}
			fmt.Fprintf(out, "Sessions: expire=%s max=%s onProviderFailure=%s\n",
				ttl, capacity, cfg.Session.OnProviderFailure)

			if cfg.Journal.IsEnabled() {
				fmt.Fprintf(out, "Journal:  %s\n", paths.JournalPath(cfg.Journal))
			} else {
				fmt.Fprintln(out, "Journal:  disabled")
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
