package cmds

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type conversationRow struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Current     bool   `json:"current" yaml:"current"`
	Messages    int    `json:"messages" yaml:"messages"`
	Model       string `json:"model" yaml:"model"`
	LastUpdated string `json:"lastUpdated" yaml:"lastUpdated"`
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format(time.RFC3339)
}

func NewConversationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "List and manage conversations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, err := cmd.Flags().GetString("match")
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				currentID := app.Store.CurrentConversationID()
				rows := []conversationRow{}
				var cells [][]string
				for _, c := range app.Store.Conversations() {
					if pattern != "" {
						matching, err := glob.Match(pattern, c.DisplayTitle())
						if err != nil {
							return errors.Wrapf(err, "invalid pattern %q", pattern)
						}
						if !matching {
							continue
						}
					}
					row := conversationRow{
						ID:          c.ID,
						Title:       c.DisplayTitle(),
						Current:     c.ID == currentID,
						Messages:    len(c.Messages),
						Model:       c.RunSettings.Model,
						LastUpdated: formatMillis(c.LastUpdated),
					}
					rows = append(rows, row)
					marker := ""
					if row.Current {
						marker = "*"
					}
					cells = append(cells, []string{
						marker, row.ID, row.Title, strconv.Itoa(row.Messages), row.Model, row.LastUpdated,
					})
				}
				return printRows(cmd, cmd.OutOrStdout(),
					[]string{"", "id", "title", "messages", "model", "updated"},
					cells, rows)
			})
		},
	}
	addOutputFlag(listCmd)
	listCmd.Flags().String("match", "", "Only list conversations whose title matches this glob")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Create a conversation and make it current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				id := app.Store.CreateConversation()
				_, err := fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <id>",
		Short: "Make a conversation current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if _, ok := app.Store.Conversation(args[0]); !ok {
					return errors.Errorf("conversation %s not found", args[0])
				}
				app.Store.SetCurrentConversation(args[0])
				return nil
			})
		},
	})

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				c, ok := app.Store.Conversation(args[0])
				if !ok {
					return errors.Errorf("conversation %s not found", args[0])
				}
				if !yes {
					ok, err := confirm(cmd, fmt.Sprintf("Delete %q with %d messages?", c.DisplayTitle(), len(c.Messages)))
					if err != nil {
						return err
					}
					if !ok {
						return nil
					}
				}
				app.Store.DeleteConversation(args[0])
				return nil
			})
		},
	}
	deleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(deleteCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Print the transcript of a conversation (default: current)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				id := app.Store.CurrentConversationID()
				if len(args) == 1 {
					id = args[0]
				}
				c, ok := app.Store.Conversation(id)
				if !ok {
					return errors.New("no such conversation")
				}
				return printTranscript(cmd, c)
			})
		},
	})

	return cmd
}

func printTranscript(cmd *cobra.Command, c *conversation.Conversation) error {
	w := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(w, "# %s (%s)\n", c.DisplayTitle(), c.ID); err != nil {
		return err
	}
	if c.SystemPrompt != "" {
		if _, err := fmt.Fprintf(w, "\n[system] %s\n", c.SystemPrompt); err != nil {
			return err
		}
	}
	for _, m := range c.Messages {
		if _, err := fmt.Fprintf(w, "\n[%s %s]\n%s\n", m.Role, m.Time().Format(time.Kitchen), m.Content); err != nil {
			return err
		}
	}
	return nil
}
