package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/gemchat/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tiktoken-go/tokenizer"
)

func NewTokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Estimate token usage",
	}

	countCmd := &cobra.Command{
		Use:   "count [text...]",
		Short: "Count the tokens of a text, stdin (-) or a conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			encoding, err := cmd.Flags().GetString("encoding")
			if err != nil {
				return err
			}
			counter, err := tokens.NewCounter(tokenizer.Encoding(encoding))
			if err != nil {
				return err
			}

			if len(args) > 0 {
				text := strings.Join(args, " ")
				if text == "-" {
					b, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return errors.Wrap(err, "could not read stdin")
					}
					text = string(b)
				}
				n, err := counter.Count(text)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				id, err := conversationID(cmd, app)
				if err != nil {
					return err
				}
				c, _ := app.Store.Conversation(id)
				n, err := counter.CountConversation(c)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), tokens.FormatUsage(n))
				return err
			})
		},
	}
	countCmd.Flags().String("encoding", string(tokens.DefaultEncoding), "Tokenizer encoding")
	addConversationFlag(countCmd)
	cmd.AddCommand(countCmd)

	return cmd
}
