package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/gemchat/pkg/chat"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <text...>",
		Short: "Send a message and print the reply (use - to read stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "could not read stdin")
				}
				text = string(b)
			}
			newConversation, err := cmd.Flags().GetBool("new")
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				if newConversation {
					app.Store.CreateConversation()
				}
				id, err := conversationID(cmd, app)
				if err != nil {
					return err
				}
				reply, err := app.Controller.SendTo(ctx, id, text)
				if errors.Is(err, chat.ErrMissingAPIKey) {
					return errors.Wrap(err, "set one with 'gemchat api-key set' or GEMCHAT_API_KEY")
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
				return err
			})
		},
	}
	addConversationFlag(cmd)
	cmd.Flags().Bool("new", false, "Start a new conversation first")
	return cmd
}
