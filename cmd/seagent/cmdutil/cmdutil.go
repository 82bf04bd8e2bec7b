// Package cmdutil wires the shared pieces every seagent subcommand needs:
// resolved configuration, stored credentials, an API client, a logger and the
// transcript store.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/config"
	"github.com/papercomputeco/seagent/pkg/credentials"
	"github.com/papercomputeco/seagent/pkg/eventstream"
	"github.com/papercomputeco/seagent/pkg/eventstream/kafka"
	"github.com/papercomputeco/seagent/pkg/logger"
	"github.com/papercomputeco/seagent/pkg/storage"
	"github.com/papercomputeco/seagent/pkg/storage/inmemory"
	"github.com/papercomputeco/seagent/pkg/storage/postgres"
	"github.com/papercomputeco/seagent/pkg/storage/sqlite"
)

const logFile = "seagent.log"

// Env is the resolved environment of one command invocation.
type Env struct {
	ConfigDir string
	Debug     bool

	Config   *config.Config
	Configer *config.Configer
	Creds    *credentials.Manager
	Client   *api.Client
	Logger   *slog.Logger

	closers []io.Closer
}

// Load resolves configuration for cmd with precedence flag > env > file >
// default, binding the ClientFlags named by keys plus the persistent
// api-target and timeout flags.
func Load(cmd *cobra.Command, keys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	env := &Env{ConfigDir: configDir, Debug: debug}

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.ClientFlags,
		append([]string{config.FlagAPITarget, config.FlagTimeout}, keys...))
	env.Config = config.Resolve(v)

	env.Configer, err = config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	env.Creds, err = credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	env.Logger = env.newLogger(cmd.ErrOrStderr())

	timeout, err := env.Config.Client.RequestTimeout()
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Client, err = api.New(api.Config{
		BaseURL: env.Config.Client.APITarget,
		Timeout: timeout,
		Tokens:  env.Creds,
		Logger:  env.Logger,
	})
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Logger.Debug("resolved configuration",
		"api_target", env.Client.BaseURL(),
		"timeout", timeout,
		"config_file", env.Configer.GetTarget(),
		"storage_driver", env.Config.Storage.Driver,
	)

	return env, nil
}

// newLogger writes pretty records to stderr. With --debug it also appends
// JSON records to seagent.log in the .seagent/ directory.
func (e *Env) newLogger(stderr io.Writer) *slog.Logger {
	pretty := logger.New(
		logger.WithDebug(e.Debug),
		logger.WithPretty(true),
		logger.WithWriter(stderr),
	)

	target := e.Configer.GetTarget()
	if !e.Debug || target == "" {
		return pretty
	}

	f, err := os.OpenFile(filepath.Join(filepath.Dir(target), logFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		pretty.Warn("could not open log file", "error", err)
		return pretty
	}
	e.closers = append(e.closers, f)

	return logger.Multi(pretty, logger.New(
		logger.WithDebug(true),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
}

// RequireUser returns the logged in user.
func (e *Env) RequireUser() (*credentials.StoredUser, error) {
	return e.Creds.RequireUser()
}

// OpenStore opens the transcript store selected by storage.driver. It returns
// nil, nil when recording is disabled.
func (e *Env) OpenStore(ctx context.Context) (storage.Driver, error) {
	switch e.Config.Storage.Driver {
	case config.StorageNone:
		return nil, nil

	case config.StorageMemory:
		return inmemory.NewDriver(), nil

	case config.StoragePostgres:
		if e.Config.Storage.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		driver, err := postgres.NewDriver(ctx, e.Config.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres transcript store: %w", err)
		}
		e.Logger.Debug("using postgres transcript store")
		return driver, nil

	case config.StorageSQLite, "":
		path := e.Configer.TranscriptPath(e.Config)
		if path == "" {
			return nil, errors.New("could not resolve a transcript database path: set storage.sqlite_path")
		}
		driver, err := sqlite.NewSQLiteDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite transcript store: %w", err)
		}
		e.Logger.Debug("using sqlite transcript store", "path", path)
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", e.Config.Storage.Driver)
	}
}

// OpenPublisher opens the turn event publisher selected by events.driver. It
// returns nil, nil when publishing is disabled.
func (e *Env) OpenPublisher() (eventstream.Publisher, error) {
	switch e.Config.Events.Driver {
	case config.EventsNone, "":
		return nil, nil

	case config.EventsKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: e.Config.Events.Brokers(),
			Topic:   e.Config.Events.KafkaTopic,
			Logger:  e.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("opening kafka publisher: %w", err)
		}
		e.Logger.Debug("publishing turn events to kafka",
			"brokers", e.Config.Events.KafkaBrokers,
			"topic", e.Config.Events.KafkaTopic,
		)
		return p, nil

	default:
		return nil, fmt.Errorf("unknown events driver %q", e.Config.Events.Driver)
	}
}

// Close releases resources opened by Load.
func (e *Env) Close() {
	for _, c := range e.closers {
		_ = c.Close()
	}
	e.closers = nil
}
