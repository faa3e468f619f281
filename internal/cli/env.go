package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"voxnote/config"
	"voxnote/internal/app"
	"voxnote/internal/auth"
	"voxnote/internal/tui"
	"voxnote/models"
)

// environment is what every subcommand needs: configuration, services and the
// session holder backed by the on-disk session store.
type environment struct {
	cfg      *config.Config
	logger   *logrus.Logger
	services *app.Services
	holder   *auth.Holder
	store    *SessionStore

	closers []func() error
}

// loadConfig loads the configuration, letting --config override CONFIG_FILE.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", opts.configFile); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

func setup(cmd *cobra.Command, opts *rootOptions, interactive bool) (*environment, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, logger: config.InitLogger(cfg.LogLevel)}
	switch {
	case opts.logFile != "":
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		env.logger.SetOutput(f)
		env.closers = append(env.closers, f.Close)
	case interactive:
		// stdout belongs to the terminal UI
		env.logger.SetOutput(io.Discard)
	default:
		env.logger.SetOutput(cmd.ErrOrStderr())
	}

	env.store, err = NewSessionStore(opts.sessionFile)
	if err != nil {
		env.close()
		return nil, err
	}

	env.services, err = app.Build(cmd.Context(), cfg, env.logger)
	if err != nil {
		env.close()
		return nil, err
	}
	env.closers = append(env.closers, env.services.Close)

	env.holder = auth.NewHolder(env.services.Auth)
	env.restore(cmd.Context())
	return env, nil
}

// restore wires session persistence to the holder and loads the saved session.
func (e *environment) restore(ctx context.Context) {
	unsubscribe := e.holder.Subscribe(e.persist)
	e.closers = append(e.closers, func() error { unsubscribe(); return nil })

	restored, err := e.store.Load()
	if err != nil {
		e.logger.WithError(err).Warn("Ignoring unreadable saved session")
		restored = nil
	}
	e.holder.Init(ctx, restored)
}

// persist mirrors holder changes to disk.
func (e *environment) persist(event auth.Event, session *models.Session) {
	var err error
	switch event {
	case auth.EventSignedOut:
		err = e.store.Clear()
	case auth.EventInitialSession:
		// keep the file when verification failed; the provider may be unreachable
		if session != nil {
			err = e.store.Save(session)
		}
	case auth.EventSignedIn, auth.EventTokenRefreshed, auth.EventUserUpdated:
		err = e.store.Save(session)
	}
	if err != nil {
		e.logger.WithError(err).WithField("event", string(event)).Warn("Failed to persist session")
	}
}

// ensureSession returns the held session, signing in with prompt when there is none.
func (e *environment) ensureSession(ctx context.Context, out io.Writer, prompt func() (tui.Credentials, error)) (*models.Session, error) {
	if session := e.holder.Session(); session != nil {
		return session, nil
	}

	creds, err := prompt()
	if err != nil {
		return nil, err
	}
	session, err := e.holder.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Signed in as %s\n", session.Email)
	return session, nil
}

func (e *environment) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.WithError(err).Warn("Cleanup failed")
		}
	}
	e.closers = nil
}

// processingOptions validates the --language flag.
func processingOptions(language string) (models.ProcessingOptions, error) {
	if language != "" && !models.IsOutputLanguage(language) {
		return models.ProcessingOptions{}, fmt.Errorf("unsupported language %q: use auto, te or en", language)
	}
	return models.ProcessingOptions{
		ForceOutputLanguage: language,
		MaxLength:           models.DefaultMaxLength,
		MinLength:           models.DefaultMinLength,
	}.WithDefaults(), nil
}
