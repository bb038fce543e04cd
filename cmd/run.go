// -- cmd/run.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/renamer-cli/internal/events"
	"github.com/xkilldash9x/renamer-cli/internal/flow"
	"github.com/xkilldash9x/renamer-cli/internal/observability"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	var (
		proxyStr   string
		accountStr string
		token      string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Change an account's username through a freshly provisioned browser profile",
		Long: `Provisions a proxied browser profile, signs in with the supplied
credentials (fetching the two-factor code automatically), and drives the
username-change dialog to completion. Progress is streamed to stdout.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flag overrides follow the usual viper precedence.
			return viper.BindPFlag("provisioner.token", cmd.Flags().Lookup("token"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg := appConfig

			if token == "" {
				token = cfg.Provisioner.Token
			}
			if token == "" {
				return fmt.Errorf("a provisioner API token is required (--token or RENAMER_PROVISIONER_TOKEN)")
			}

			runner := flow.NewRunner(cfg, logger)
			out := cmd.OutOrStdout()

			for ev := range runner.Run(cmd.Context(), token, proxyStr, accountStr) {
				switch ev.Kind {
				case events.KindProgress:
					fmt.Fprintln(out, ev.Message)
				case events.KindCompleted:
					fmt.Fprintf(out, "OK: %s\n", ev.Message)
				case events.KindFailed:
					logger.Error("Run failed",
						zap.String("class", string(ev.Class)),
						zap.String("message", ev.Message))
					return fmt.Errorf("%s: %s", ev.Class, ev.Message)
				}
			}
			return nil
		},
	}

	runCmd.Flags().StringVar(&proxyStr, "proxy", "", "proxy as host:port:user:pass (required)")
	runCmd.Flags().StringVar(&accountStr, "account", "", "account as newusername|currentusername|password|2fa_secret (required)")
	runCmd.Flags().StringVar(&token, "token", "", "provisioner API token (or RENAMER_PROVISIONER_TOKEN)")
	_ = runCmd.MarkFlagRequired("proxy")
	_ = runCmd.MarkFlagRequired("account")

	return runCmd
}
