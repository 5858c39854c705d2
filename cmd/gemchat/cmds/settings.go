package cmds

import (
	"context"
	"fmt"

	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// conversationID resolves --conversation, falling back to the current conversation.
func conversationID(cmd *cobra.Command, app *App) (string, error) {
	id, err := cmd.Flags().GetString("conversation")
	if err != nil {
		return "", err
	}
	if id == "" {
		id = app.Store.CurrentConversationID()
	}
	if id == "" {
		return "", errors.New("no conversation selected, create one with 'conversations new'")
	}
	if _, ok := app.Store.Conversation(id); !ok {
		return "", errors.Errorf("conversation %s not found", id)
	}
	return id, nil
}

func addConversationFlag(cmd *cobra.Command) {
	cmd.Flags().String("conversation", "", "Conversation id (default: current)")
}

func runSettingsPatch(cmd *cobra.Command) (conversation.RunSettingsPatch, error) {
	var patch conversation.RunSettingsPatch
	flags := cmd.Flags()
	if flags.Changed("temperature") {
		v, err := flags.GetFloat64("temperature")
		if err != nil {
			return patch, err
		}
		patch.Temperature = &v
	}
	if flags.Changed("top-p") {
		v, err := flags.GetFloat64("top-p")
		if err != nil {
			return patch, err
		}
		patch.TopP = &v
	}
	if flags.Changed("max-output-tokens") {
		v, err := flags.GetInt("max-output-tokens")
		if err != nil {
			return patch, err
		}
		patch.MaxOutputTokens = &v
	}
	if flags.Changed("model") {
		v, err := flags.GetString("model")
		if err != nil {
			return patch, err
		}
		patch.Model = &v
	}
	return patch, nil
}

func NewSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change the run settings of a conversation",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the run settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				id, err := conversationID(cmd, app)
				if err != nil {
					return err
				}
				c, _ := app.Store.Conversation(id)
				s := c.RunSettings
				return printRows(cmd, cmd.OutOrStdout(),
					[]string{"setting", "value"},
					[][]string{
						{"model", s.Model},
						{"temperature", fmt.Sprintf("%.2f", s.Temperature)},
						{"top-p", fmt.Sprintf("%.2f", s.TopP)},
						{"max-output-tokens", fmt.Sprintf("%d", s.MaxOutputTokens)},
					}, s)
			})
		},
	}
	addConversationFlag(showCmd)
	addOutputFlag(showCmd)
	cmd.AddCommand(showCmd)

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more run settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := runSettingsPatch(cmd)
			if err != nil {
				return err
			}
			if patch.IsEmpty() {
				return errors.New("nothing to change, pass at least one setting flag")
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				id, err := conversationID(cmd, app)
				if err != nil {
					return err
				}
				app.Store.UpdateRunSettings(id, patch)
				return app.Store.LastPersistError()
			})
		},
	}
	addConversationFlag(setCmd)
	setCmd.Flags().Float64("temperature", 0, "Sampling temperature")
	setCmd.Flags().Float64("top-p", 0, "Nucleus sampling probability")
	setCmd.Flags().Int("max-output-tokens", 0, "Maximum number of tokens in a reply")
	setCmd.Flags().String("model", "", "Model id")
	cmd.AddCommand(setCmd)

	return cmd
}
