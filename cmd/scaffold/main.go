package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/container-scaffold/internal/application"
	"github.com/eugenenazirov/container-scaffold/internal/loader"
	"github.com/eugenenazirov/container-scaffold/internal/logging"
)

const instancePathEnv = "SCAFFOLD_INSTANCE_PATH"

var signalNotify = signal.Notify

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "scaffold: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cli := kingpin.New("scaffold", "Container scaffold - builds layered application configuration")
	instancePath := cli.Flag("instance-path", "Instance folder holding settings.cfg (default ./instance, or $"+instancePathEnv+")").String()
	name := cli.Flag("name", "Application name").Default("scaffold").String()
	configFile := cli.Flag("config", "YAML file with the base configuration mapping").String()
	required := cli.Flag("required", "Fail when CUSTOM_SETTINGS is not configured").Bool()
	keepPrefix := cli.Flag("keep-instance-prefix", "Keep a leading \"instance\" segment in relative file references instead of dropping it").Bool()
	envFile := cli.Flag("env-file", "Dotenv file loaded into the environment before building").String()
	logLevel := cli.Flag("log-level", "Log level").Default("info").Envar("SCAFFOLD_LOG_LEVEL").Enum("debug", "info", "warn", "error")

	showCmd := cli.Command("show", "Print the merged configuration as YAML").Default()

	serveCmd := cli.Command("serve", "Serve the merged configuration over HTTP")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").Default("8080").String()
	rateLimitRPS := serveCmd.Flag("rate-limit-rps", "Requests per second allowed per client (set 0 to disable)").Default("25").Float64()
	rateLimitBurst := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("50").Int()
	shutdownGrace := serveCmd.Flag("shutdown-grace", "Graceful shutdown period").Default("10s").Duration()
	requestLogging := serveCmd.Flag("request-logging", "Log every request").Default("true").Bool()

	command, err := cli.Parse(args)
	if err != nil {
		return err
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if *instancePath == "" {
		*instancePath = os.Getenv(instancePathEnv)
	}

	logger, err := logging.NewAtLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	opts := application.DefaultOptions()
	opts.Name = *name
	opts.InstancePath = *instancePath
	opts.Required = *required
	opts.KeepInstancePrefix = *keepPrefix
	if *configFile != "" {
		mapping, err := loader.LoadYAML(afero.NewOsFs(), *configFile)
		if err != nil {
			return fmt.Errorf("load base configuration: %w", err)
		}
		opts.Mapping = mapping
	}

	app, err := application.New(nil, opts, logger)
	if err != nil {
		return err
	}

	switch command {
	case showCmd.FullCommand():
		return show(stdout, app)
	case serveCmd.FullCommand():
		serverOpts := application.DefaultServerOptions()
		serverOpts.Addr = *port
		serverOpts.RateLimitRPS = *rateLimitRPS
		serverOpts.RateLimitBurst = *rateLimitBurst
		serverOpts.EnableRequestLogging = *requestLogging

		if err := app.Serve(serverOpts); err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		shutdown(app.Server(), *shutdownGrace, logger)
	}
	return nil
}

func show(w io.Writer, app *application.App) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(app.Config.Store.Snapshot()); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	return enc.Close()
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
