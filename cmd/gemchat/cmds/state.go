package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func NewStateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Export, import and validate the persisted chat state",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chat state to stdout or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			outputFile, err := cmd.Flags().GetString("output-file")
			if err != nil {
				return err
			}
			redact, err := cmd.Flags().GetBool("redact-api-key")
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				session := app.Store.Snapshot()
				if redact {
					session.APIKey = ""
				}

				var w io.Writer = cmd.OutOrStdout()
				if outputFile != "" {
					if !cmd.Flags().Changed("format") {
						format = string(conversation.FormatFromFilename(outputFile))
					}
					f, err := os.Create(outputFile)
					if err != nil {
						return errors.Wrapf(err, "could not create %s", outputFile)
					}
					defer func() {
						_ = f.Close()
					}()
					w = f
				}
				return conversation.Export(w, session, conversation.Format(format))
			})
		},
	}
	exportCmd.Flags().String("format", string(conversation.FormatJSON), "Output format (json, yaml)")
	exportCmd.Flags().String("output-file", "", "Write to this file instead of stdout")
	exportCmd.Flags().Bool("redact-api-key", false, "Leave the API key out of the export")
	cmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the chat state with the content of a json or yaml export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := conversation.ImportFile(args[0])
			if err != nil {
				return err
			}
			keepAPIKey, err := cmd.Flags().GetBool("keep-api-key")
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if keepAPIKey && session.APIKey == "" {
					session.APIKey = app.Store.APIKey()
				}
				app.Store.Replace(session)
				if err := app.Store.LastPersistError(); err != nil {
					return errors.Wrap(err, "could not save imported state")
				}
				log.Info().
					Int("conversations", len(session.Conversations)).
					Str("file", args[0]).
					Msg("Imported chat state")
				return nil
			})
		},
	}
	importCmd.Flags().Bool("keep-api-key", true, "Keep the stored API key when the import has none")
	cmd.AddCommand(importCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the persisted chat state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(conversation.Schema())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Check a json export, or the stored state, against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc []byte
			var err error
			if len(args) == 1 {
				doc, err = os.ReadFile(args[0])
				if err != nil {
					return errors.Wrapf(err, "could not read %s", args[0])
				}
			} else {
				doc, err = storedState()
				if err != nil {
					return err
				}
			}

			if err := conversation.Validate(doc); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "chat state is valid")
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := viper.AllSettings()
			if _, ok := settings["api-key"]; ok {
				settings["api-key"] = displayAPIKey(viper.GetString("api-key"), false)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer func() {
				_ = enc.Close()
			}()
			return enc.Encode(settings)
		},
	})

	return cmd
}

// storedState reads the raw slot without parsing it, so that a corrupt state can
// still be validated.
func storedState() ([]byte, error) {
	slots, err := openSlots()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = slots.Close()
	}()

	raw, found, err := slots.Get(conversation.StateKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("no chat state stored yet")
	}
	return []byte(raw), nil
}
