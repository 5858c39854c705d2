package cmds

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const maskedAPIKey = "••••••••"

func NewAPIKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api-key",
		Short: "Manage the stored Gemini API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key, prompting for it when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				key, err = askSecret(cmd, "Gemini API key")
				if err != nil {
					return err
				}
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("API key is empty")
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				app.Store.SetAPIKey(key)
				if err := app.Store.LastPersistError(); err != nil {
					return errors.Wrap(err, "could not save API key")
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
				return err
			})
		},
	})

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show whether an API key is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reveal, err := cmd.Flags().GetBool("reveal")
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), displayAPIKey(app.Store.APIKey(), reveal))
				return err
			})
		},
	}
	showCmd.Flags().Bool("reveal", false, "Print the key in clear text")
	cmd.AddCommand(showCmd)

	return cmd
}

func displayAPIKey(key string, reveal bool) string {
	switch {
	case key == "":
		return "Not set"
	case reveal:
		return key
	default:
		return maskedAPIKey
	}
}
