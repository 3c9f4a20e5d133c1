// Package servecmder provides the serve command for running the discussion API server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newscuss/newscuss/api"
	"github.com/newscuss/newscuss/pkg/config"
	"github.com/newscuss/newscuss/pkg/engine"
	"github.com/newscuss/newscuss/pkg/logger"
	"github.com/newscuss/newscuss/pkg/session"
)

type ServeCommander struct {
	listen       string
	engineTarget string
	configDir    string
	debug        bool
	logger       *zap.Logger
}

const serveLongDesc string = `Run the Newscuss discussion API server.

The server keeps sessions in process memory and reaps idle ones on a
configurable interval. Settings come from config.toml and NEWSCUSS_*
environment variables; flags override both.`

const serveShortDesc string = "Run the discussion API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the API server to listen on")
	cmd.Flags().StringVarP(&cmder.engineTarget, "engine", "e", "", "Inference engine base URL")
	cmd.Flags().StringVarP(&cmder.configDir, "config", "c", "", "Directory containing config.toml")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	cfg := config.FromViper(v)

	// Flags override file and environment.
	if c.listen != "" {
		cfg.API.Listen = c.listen
	}
	if c.engineTarget != "" {
		cfg.Engine.Target = c.engineTarget
	}

	store := session.NewStore()

	reaper := session.NewReaper(store, cfg.Session.SweepInterval.Duration, cfg.Session.MaxIdle.Duration, c.logger)
	reaper.Start()
	defer reaper.Close()

	eng := engine.NewClient(engine.Config{
		Target:        cfg.Engine.Target,
		StreamTimeout: cfg.Engine.StreamTimeout.Duration,
	}, c.logger)

	server := api.NewServer(api.Config{ListenAddr: cfg.API.Listen}, store, eng, c.logger)

	c.logger.Info("starting newscuss",
		zap.String("listen", cfg.API.Listen),
		zap.String("engine", cfg.Engine.Target),
		zap.Duration("session_max_idle", cfg.Session.MaxIdle.Duration),
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}
