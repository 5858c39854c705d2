package cmds

import (
	"context"
	"os"

	"github.com/go-go-golems/gemchat/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat UI",
		Annotations: map[string]string{
			interactiveAnnotation: "true",
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New("chat needs a terminal, use send for scripted use")
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return ui.Run(ctx, app.Controller, app.Prefs)
			})
		},
	}
}
