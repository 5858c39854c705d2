package cmds

import (
	"context"
	"fmt"

	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/go-go-golems/gemchat/pkg/generation"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var selectModelLong = "Use a model for the current conversation and record it as the selected model.\n" +
	"New conversations still start with " + conversation.DefaultModel + "."

func NewModelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "List and select Gemini models",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the supported models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := cmd.Flags().GetString("match")
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				selected := app.Store.SelectedModel()
				models := []generation.Model{}
				var cells [][]string
				for _, m := range generation.SupportedModels {
					if pattern != "" {
						matching, err := glob.Match(pattern, m.ID)
						if err != nil {
							return errors.Wrapf(err, "invalid pattern %q", pattern)
						}
						if !matching {
							continue
						}
					}
					models = append(models, m)
					marker := ""
					if m.ID == selected {
						marker = "*"
					}
					cells = append(cells, []string{marker, m.ID, m.Name})
				}
				return printRows(cmd, cmd.OutOrStdout(),
					[]string{"", "id", "name"}, cells, models)
			})
		},
	}
	addOutputFlag(listCmd)
	listCmd.Flags().String("match", "", "Only list model ids matching this glob")
	cmd.AddCommand(listCmd)

	selectCmd := &cobra.Command{
		Use:   "select <id>",
		Short: "Use a model for the current conversation and record it as the selected model",
		Long:  selectModelLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			if !force && !generation.IsSupportedModel(args[0]) {
				return errors.Errorf("unknown model %s, pass --force to use it anyway", args[0])
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				app.Controller.SelectModel(args[0])
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", args[0])
				return err
			})
		},
	}
	selectCmd.Flags().Bool("force", false, "Accept model ids that are not in the supported list")
	cmd.AddCommand(selectCmd)

	return cmd
}
