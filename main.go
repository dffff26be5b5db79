package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sharedcanvas/internal/config"
	"sharedcanvas/internal/discovery"
	"sharedcanvas/internal/feed"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sharedcanvas",
		Short: "Shared drawing canvas server",
		Long: `sharedcanvas keeps one authoritative drawing history and streams
every stroke, undo, redo and presence change to connected participants
over websockets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the canvas server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configFile, cmd.Flags())
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file (default ./canvas.yaml if present)")
	cmd.Flags().Int("port", 4000, "port to listen on")
	cmd.Flags().String("origin", "http://localhost:5173", "origin allowed to reach the server from a browser")
	cmd.Flags().String("naming", "live", "participant naming: live or sequence")
	cmd.Flags().String("log-level", "info", "debug, info, warn or error")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sharedcanvas %s (%s)\n", version, commit)
		},
	}
}

func serve(ctx context.Context, configFile string, flags *pflag.FlagSet) error {
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.Load(bootLogger, configFile, flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pub feed.Publisher = feed.Nop{}
	if cfg.Redis.Address != "" {
		rp, err := feed.NewRedis(ctx, feed.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, logger)
		if err != nil {
			logger.Error("Event feed disabled", slog.Any("error", err))
		} else {
			logger.Info("Publishing events to Redis", slog.String("channel", cfg.Redis.Channel))
			pub = rp
		}
	}
	defer pub.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := NewServer(cfg, logger, reg, pub)

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("binding %s: %w", cfg.Server.Addr(), err)
	}

	go server.Run(ctx)

	if cfg.MDNS.Enabled {
		port := ln.Addr().(*net.TCPAddr).Port
		adv, err := discovery.Advertise(cfg.MDNS.Instance, port)
		if err != nil {
			logger.Warn("mDNS advertisement failed", slog.Any("error", err))
		} else {
			logger.Info("Advertising on the local network", slog.String("instance", adv.Instance()), slog.String("service", discovery.ServiceType))
			defer adv.Shutdown()
		}
	}

	httpServer := &http.Server{
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server running", slog.String("addr", ln.Addr().String()), slog.String("version", version))
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server shut down gracefully.")
	return nil
}
