package cmds

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

func promptUI(cmd *cobra.Command) (*input.UI, bool) {
	in := cmd.InOrStdin()
	terminal := false
	if f, ok := in.(*os.File); ok {
		terminal = isatty.IsTerminal(f.Fd())
	}
	return &input.UI{
		Writer: cmd.ErrOrStderr(),
		Reader: in,
	}, terminal
}

// askSecret reads a value from stdin, hiding it when stdin is a terminal.
func askSecret(cmd *cobra.Command, query string) (string, error) {
	ui, terminal := promptUI(cmd)
	answer, err := ui.Ask(query, &input.Options{
		Required:  true,
		Mask:      terminal,
		HideOrder: true,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to read input")
	}
	return answer, nil
}

func confirm(cmd *cobra.Command, query string) (bool, error) {
	ui, _ := promptUI(cmd)
	answer, err := ui.Ask(query+" [y/n]", &input.Options{
		Default:   "n",
		Required:  true,
		Loop:      true,
		HideOrder: true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N":
				return nil
			default:
				return errors.New("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to read input")
	}
	return answer == "y" || answer == "Y", nil
}
