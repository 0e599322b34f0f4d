package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/guilhermegouw/voxchat/internal/config"
	"github.com/guilhermegouw/voxchat/internal/db"
	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/lifecycle"
	"github.com/guilhermegouw/voxchat/internal/preferences"
	"github.com/guilhermegouw/voxchat/internal/provider"
	"github.com/guilhermegouw/voxchat/internal/pubsub"
	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/storage"
	"github.com/guilhermegouw/voxchat/internal/summarize"
)

// app holds everything a command needs, opened from the user's config.
type app struct {
	cfg       *config.Config
	db        *db.DB
	store     *session.Store
	prefs     *preferences.Preferences
	hub       *pubsub.Hub
	providers *provider.Builder
	ctrl      *lifecycle.Controller
}

// loadConfig reads the file named by --config, or the standard locations.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// openApp loads configuration, opens the database and builds the
// controller. Callers must call close.
func openApp(cmd *cobra.Command) (*app, error) {
	enableDebug(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	result := config.Validate(cfg)
	for _, w := range result.Warnings {
		debug.Warn("config", w.String())
	}
	if !result.IsValid {
		return nil, fmt.Errorf("invalid config: %w", result.Errors[0])
	}

	database, err := db.Open(filepath.Join(cfg.DataDir(), db.FileName))
	if err != nil {
		return nil, err
	}

	st := storage.NewSQLite(database)
	store := session.NewStore(st)
	prefs := preferences.New(st)
	hub := pubsub.NewHub()

	providers := provider.NewBuilder(cfg)
	summ := summarize.NewClient(providers,
		summarize.WithDefaultModel(cfg.Options.DefaultModel))

	ctrl := lifecycle.New(store,
		lifecycle.WithSummarizer(summ),
		lifecycle.WithPreferences(prefs),
		lifecycle.WithBroker(hub.Session),
		lifecycle.WithUndoWindow(cfg.UndoWindow()),
		lifecycle.WithAutoReadDefault(cfg.Voice.AutoRead),
	)

	return &app{cfg: cfg, db: database, store: store, prefs: prefs, hub: hub, providers: providers, ctrl: ctrl}, nil
}

// reloadProviders re-reads the config so edited API keys and endpoints take
// effect without a restart.
func (a *app) reloadProviders(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	stale := a.providers.Reload(cfg)
	debug.Event("cmd", "ConfigReloaded", fmt.Sprintf("%d providers rebuilt", len(stale)))
	return nil
}

func (a *app) close() {
	a.ctrl.Close()
	debug.Log("brokers at exit: %s", a.hub.DebugString())
	a.hub.Shutdown()
	if err := a.db.Close(); err != nil {
		debug.Error("cmd", err, "closing database")
	}
	debug.Disable()
}

func enableDebug(cmd *cobra.Command) {
	on, _ := cmd.Flags().GetBool("debug")
	if !on || debug.IsEnabled() {
		return
	}
	logPath := filepath.Join(xdg.DataHome, "voxchat", "debug.log")
	if err := debug.Enable(logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to enable debug logging: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Debug: %s\n", logPath)
}

// resolveSession accepts a 1-based position in the session list or a
// session id.
func resolveSession(ctrl *lifecycle.Controller, ref string) (session.ChatSession, error) {
	list := ctrl.Sessions()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(list) {
			return session.ChatSession{}, fmt.Errorf("no chat number %d (have %d)", n, len(list))
		}
		return list[n-1], nil
	}
	if s, ok := ctrl.Session(ref); ok {
		return s, nil
	}
	return session.ChatSession{}, fmt.Errorf("%w: %s", session.ErrNotFound, ref)
}

// currentOrRef resolves args[0] if present, else the current session.
func currentOrRef(ctrl *lifecycle.Controller, args []string) (session.ChatSession, error) {
	if len(args) > 0 {
		return resolveSession(ctrl, args[0])
	}
	id, ok := ctrl.CurrentID()
	if !ok {
		return session.ChatSession{}, lifecycle.ErrNoActiveSession
	}
	s, _ := ctrl.Session(id)
	return s, nil
}
