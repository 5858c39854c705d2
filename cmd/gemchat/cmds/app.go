package cmds

import (
	"context"
	"time"

	"github.com/go-go-golems/gemchat/pkg/chat"
	"github.com/go-go-golems/gemchat/pkg/conversation"
	"github.com/go-go-golems/gemchat/pkg/events"
	"github.com/go-go-golems/gemchat/pkg/generation"
	"github.com/go-go-golems/gemchat/pkg/kv"
	"github.com/go-go-golems/gemchat/pkg/prefs"
	"github.com/go-go-golems/gemchat/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const DefaultBackend = kv.BackendFile

// annotation set on commands that take over the terminal
const interactiveAnnotation = "gemchat/interactive"

// IsInteractive reports whether cmd runs the full screen UI.
func IsInteractive(cmd *cobra.Command) bool {
	return cmd.Annotations[interactiveAnnotation] == "true"
}

// App wires storage, the conversation store, the generation client and the event router
// for a single command invocation.
type App struct {
	Slots      kv.Store
	Store      *conversation.Store
	Prefs      *prefs.Prefs
	Controller *chat.Controller

	router *events.EventRouter
	cancel context.CancelFunc
	eg     *errgroup.Group
}

func storageSettings() kv.Settings {
	return kv.Settings{
		Backend: kv.Backend(viper.GetString("storage.backend")),
		Path:    viper.GetString("storage.path"),
	}
}

// openStore loads the persisted session. With reset-corrupt-state a session that cannot
// be parsed is replaced by an empty one instead of aborting.
func openStore(slots kv.Store) (*conversation.Store, error) {
	store, err := conversation.OpenStore(slots)
	if err == nil {
		return store, nil
	}

	var corrupt *conversation.CorruptStateError
	if errors.As(err, &corrupt) && viper.GetBool("reset-corrupt-state") {
		log.Warn().Err(err).Msg("Stored chat state is corrupt, starting from an empty session")
		return conversation.NewStore(slots, nil), nil
	}
	return nil, errors.Wrap(err, "could not load chat state")
}

// blockingPublish defaults to true so that chat events are logged before a command exits.
func blockingPublish() bool {
	if !viper.IsSet("events.blocking-publish") {
		return true
	}
	return viper.GetBool("events.blocking-publish")
}

func newClient() generation.Client {
	if viper.GetBool("dry-run") {
		return &generation.EchoClient{}
	}
	var options []generation.GeminiOption
	if baseURL := viper.GetString("gemini-base-url"); baseURL != "" {
		options = append(options, generation.WithBaseURL(baseURL))
	}
	return generation.NewGeminiClient(options...)
}

func openSlots() (kv.Store, error) {
	settings := storageSettings()
	slots, err := kv.Open(settings)
	if err != nil {
		return nil, errors.Wrap(err, "could not open storage")
	}
	log.Debug().
		Str("backend", string(settings.Backend)).
		Str("path", settings.Path).
		Msg("Opened storage")
	return slots, nil
}

// NewApp opens the configured storage backend and starts the event router.
// Callers must Close the app.
func NewApp(ctx context.Context) (*App, error) {
	slots, err := openSlots()
	if err != nil {
		return nil, err
	}

	store, err := openStore(slots)
	if err != nil {
		_ = slots.Close()
		return nil, err
	}

	if apiKey := viper.GetString("api-key"); apiKey != "" && store.APIKey() == "" {
		log.Debug().Msg("Seeding API key from configuration")
		store.SetAPIKey(apiKey)
	}

	router, err := events.NewEventRouter(
		events.WithVerbose(viper.GetBool("verbose")),
		events.WithBlockingPublish(blockingPublish()),
	)
	if err != nil {
		_ = slots.Close()
		return nil, errors.Wrap(err, "could not create event router")
	}
	router.AddEventHandler("log-chat-events", events.TopicChat, events.LogEvents)

	controllerOptions := []chat.Option{
		chat.WithEventSink(events.NewWatermillSink(router.Publisher, events.TopicChat)),
	}
	counter, err := tokens.NewCounter(tokens.DefaultEncoding)
	if err != nil {
		// token counts are informational only
		log.Warn().Err(err).Msg("Token counting disabled")
	} else {
		controllerOptions = append(controllerOptions, chat.WithTokenCounter(counter))
	}

	runCtx, cancel := context.WithCancel(ctx)
	ret := &App{
		Slots:      slots,
		Store:      store,
		Prefs:      prefs.New(slots),
		Controller: chat.NewController(store, newClient(), controllerOptions...),
		router:     router,
		cancel:     cancel,
		eg:         &errgroup.Group{},
	}

	ret.eg.Go(func() error {
		return router.Run(runCtx)
	})

	select {
	case <-router.Running():
	case <-time.After(2 * time.Second):
		log.Warn().Msg("Event router did not start in time")
	case <-ctx.Done():
	}

	return ret, nil
}

func (a *App) Close() error {
	_ = a.router.Close()
	a.cancel()
	if err := a.eg.Wait(); err != nil {
		log.Error().Err(err).Msg("Event router stopped with an error")
	}
	return a.Slots.Close()
}

// withApp runs f against a freshly opened app and closes it afterwards.
func withApp(cmd *cobra.Command, f func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()
	return f(ctx, app)
}

// Register adds every gemchat command to root.
func Register(root *cobra.Command) {
	root.AddCommand(
		NewChatCommand(),
		NewAPIKeyCommand(),
		NewConversationsCommand(),
		NewModelCommand(),
		NewSettingsCommand(),
		NewSystemPromptCommand(),
		NewSendCommand(),
		NewStateCommand(),
		NewPrefsCommand(),
		NewTokensCommand(),
	)
}
