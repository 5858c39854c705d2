package cmds

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewSystemPromptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system-prompt",
		Short: "Show and set the system prompt of a conversation",
	}

	setCmd := &cobra.Command{
		Use:   "set <text...>",
		Short: "Replace the system prompt, an empty text clears it",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			return withApp(cmd, func(ctx context.Context, app *App) error {
				id, err := conversationID(cmd, app)
				if err != nil {
					return err
				}
				app.Controller.SaveSystemPrompt(id, prompt)
				return app.Store.LastPersistError()
			})
		},
	}
	addConversationFlag(setCmd)
	cmd.AddCommand(setCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the system prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				id, err := conversationID(cmd, app)
				if err != nil {
					return err
				}
				c, _ := app.Store.Conversation(id)
				_, err = fmt.Fprintln(cmd.OutOrStdout(), c.SystemPrompt)
				return err
			})
		},
	}
	addConversationFlag(showCmd)
	cmd.AddCommand(showCmd)

	return cmd
}
