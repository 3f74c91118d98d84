// Package cli contains the commands of the median-budget binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medianbudget/backend/internal/config"
	v1 "github.com/medianbudget/backend/internal/controllers/v1"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/router"
	"github.com/medianbudget/backend/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// NewRootCmd returns the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "median-budget",
		Short:         "Participatory budgeting where the median of all votes becomes the budget",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newSweepCmd(&configPath))
	return root
}

// setup loads the configuration, configures logging and connects to the
// database.
func setup(configPath string) (config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	setupLogging(cfg)

	if cfg.DBDriver == models.DriverSQLite {
		path, _, _ := strings.Cut(cfg.DBDSN, "?")
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return config.Config{}, nil, err
		}
	}

	db, err := models.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return config.Config{}, nil, err
	}

	return cfg, db, nil
}

func setupLogging(cfg config.Config) {
	gin.SetMode(cfg.GinMode)

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	output := io.Writer(os.Stdout)
	if (cfg.LogFormat == "" && gin.IsDebugging()) || cfg.LogFormat == "human" {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if gin.IsDebugging() {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(output).With().Timestamp().Logger()
}

// notifier returns the NATS notifier if a server is configured. The
// returned function closes the connection.
func notifier(cfg config.Config) (session.Notifier, func(), error) {
	if cfg.NATSURL == "" {
		return nil, func() {}, nil
	}

	n, err := session.NewNATSNotifier(cfg.NATSURL, log.Logger)
	if err != nil {
		return nil, nil, err
	}

	return n, func() {
		if err := n.Close(); err != nil {
			log.Warn().Err(err).Msg("closing NATS connection")
		}
	}, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeDB(db)

			n, closeNotifier, err := notifier(cfg)
			if err != nil {
				return err
			}
			defer closeNotifier()

			r, teardown, err := router.Config(cfg)
			if err != nil {
				return err
			}
			defer teardown()

			router.AttachRoutes(v1.New(db, cfg, n), r.Group("/"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:              cfg.Listen,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errs := make(chan error, 1)
			go func() {
				log.Info().Str("listen", cfg.Listen).Msg("starting server")
				errs <- server.ListenAndServe()
			}()

			select {
			case err := <-errs:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			err = server.Shutdown(shutdownCtx)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close sessions whose voting time has run out or whose scheduled close is due",
		Long: "Close sessions whose voting time has run out or whose scheduled close is due.\n\n" +
			"Run this periodically, e.g. from cron. It is safe to run concurrently with the API and with other sweeps.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer closeDB(db)

			n, closeNotifier, err := notifier(cfg)
			if err != nil {
				return err
			}
			defer closeNotifier()

			outcomes, err := sweep(cmd.Context(), db, n)
			for _, o := range outcomes {
				switch {
				case o.Executed:
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s closed\n", o.SessionID)
				case o.SecondsRemaining != nil:
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s closes in %ds\n", o.SessionID, *o.SecondsRemaining)
				default:
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", o.SessionID, o.Message)
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "processed %d sessions\n", len(outcomes))

			return err
		},
	}
}

// sweep schedules the close of sessions whose voting time has run out and
// executes every due close.
func sweep(ctx context.Context, db *gorm.DB, n session.Notifier) ([]session.Outcome, error) {
	t := session.NewTerminator(session.NewMachine(db, n))

	elapsed, errElapsed := session.NewEvaluator(t).SweepElapsed(ctx)
	due, errDue := t.PollDue(ctx)

	return append(elapsed, due...), errors.Join(errElapsed, errDue)
}
