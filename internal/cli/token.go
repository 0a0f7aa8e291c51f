package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gridview/internal/source/httpsource"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens in the OS keyring",
		Long: `Store or remove the API token browse --api sends as a bearer token.
$` + httpsource.TokenEnv + ` overrides any stored token.`,
	}
	cmd.PersistentFlags().StringVar(&profile, "profile", "default", "keyring profile")

	set := &cobra.Command{
		Use:           "set <token>",
		Short:         "Store a token",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			token := strings.TrimSpace(args[0])
			if token == "" {
				_ = formatter.Error(ErrCodeGeneric, "token is empty", nil)
				return NewExitError(ExitCommandError, "token is empty")
			}
			if err := httpsource.SaveToken(profile, token); err != nil {
				_ = formatter.Error(ErrCodeIO, err.Error(), nil)
				return WrapExitError(ExitFailure, "failed to store token", err)
			}
			if formatter.IsJSON() {
				return formatter.Success(map[string]string{"profile": profile})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token stored for profile %s\n", profile)
			return nil
		},
	}

	del := &cobra.Command{
		Use:           "delete",
		Short:         "Remove a stored token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			if err := httpsource.DeleteToken(profile); err != nil {
				_ = formatter.Error(ErrCodeIO, err.Error(), nil)
				return WrapExitError(ExitFailure, "failed to delete token", err)
			}
			if formatter.IsJSON() {
				return formatter.Success(map[string]string{"profile": profile})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token deleted for profile %s\n", profile)
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
