package cmds

import (
	"fmt"
	"strconv"

	"github.com/go-go-golems/gemchat/pkg/prefs"
	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewPrefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show and change UI preferences",
	}

	themeCmd := &cobra.Command{
		Use:   "theme",
		Short: "Manage the color theme",
	}
	themeCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrefs(func(p *prefs.Prefs) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), p.Theme())
				return err
			})
		},
	})
	themeCmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrefs(func(p *prefs.Prefs) error {
				theme, err := p.ToggleTheme()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), theme)
				return err
			})
		},
	})
	cmd.AddCommand(themeCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print all preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrefs(func(p *prefs.Prefs) error {
				values := map[string]interface{}{
					"theme":                     p.Theme(),
					"sidebarWidth":              p.SidebarWidth(),
					"runSettingsWidth":          p.RunSettingsWidth(),
					"systemPromptInputExpanded": p.SystemPromptInputExpanded(),
				}
				var cells [][]string
				for _, key := range []string{"theme", "sidebarWidth", "runSettingsWidth", "systemPromptInputExpanded"} {
					cells = append(cells, []string{strcase.ToKebab(key), fmt.Sprint(values[key])})
				}
				return printRows(cmd, cmd.OutOrStdout(),
					[]string{"preference", "value"}, cells, values)
			})
		},
	}
	addOutputFlag(showCmd)
	cmd.AddCommand(showCmd)

	widthCmd := &cobra.Command{
		Use:   "width <sidebar|run-settings> <columns>",
		Short: "Set a panel width",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, err := strconv.Atoi(args[1])
			if err != nil || columns <= 0 {
				return errors.Errorf("invalid width %q", args[1])
			}
			return withPrefs(func(p *prefs.Prefs) error {
				switch args[0] {
				case "sidebar":
					return p.SetSidebarWidth(columns)
				case "run-settings":
					return p.SetRunSettingsWidth(columns)
				default:
					return errors.Errorf("unknown panel %q", args[0])
				}
			})
		},
	}
	cmd.AddCommand(widthCmd)

	return cmd
}

// withPrefs opens only the storage backend; preferences do not need the chat state.
func withPrefs(f func(p *prefs.Prefs) error) error {
	slots, err := openSlots()
	if err != nil {
		return err
	}
	defer func() {
		_ = slots.Close()
	}()
	return f(prefs.New(slots))
}
