package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/figureboard/figureboard/internal/config"
	"github.com/figureboard/figureboard/internal/logging"
	"github.com/figureboard/figureboard/internal/otel"
)

const usage = `usage: figureboard [-config dir] <command> [args]

commands:
  serve            run the board authority
  play             open the interactive client
  maps             list the maps the authority offers
  upload <file>    upload a map image and select it
`

// command is one parsed invocation.
type command struct {
	name      string
	args      []string
	configDir string
}

var errUsage = errors.New("invalid usage")

func parseArgs(args []string) (command, error) {
	fs := flag.NewFlagSet("figureboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configDir := fs.String("config", ".", "directory holding figureboard.cfg.json and .env")
	if err := fs.Parse(args); err != nil {
		return command{}, fmt.Errorf("%w: %w", errUsage, err)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return command{}, fmt.Errorf("%w: no command given", errUsage)
	}
	cmd := command{
		name:      strings.ToLower(rest[0]),
		args:      rest[1:],
		configDir: *configDir,
	}

	switch cmd.name {
	case "serve", "play", "maps":
	case "upload":
		if len(cmd.args) != 1 {
			return command{}, fmt.Errorf("%w: upload takes exactly one file", errUsage)
		}
	default:
		return command{}, fmt.Errorf("%w: unknown command %q", errUsage, cmd.name)
	}
	return cmd, nil
}

func main() {
	cmd, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := config.Load(cmd.configDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd.name {
	case "serve":
		err = runServe(ctx)
	case "play":
		err = runPlay(ctx)
	case "maps":
		err = runMaps(ctx, os.Stdout)
	case "upload":
		err = runUpload(ctx, os.Stdout, cmd.args[0])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session holds the logging outputs of one process run.
type session struct {
	slog     *logging.SlogManager
	provider *otel.Provider
	logFile  *os.File
	Logger   *slog.Logger
}

// startLogging sets up slog for name. With toFile set, everything goes to a
// session log file in logsDir instead of stdout.
func startLogging(name string, toFile bool) (*session, error) {
	s := &session{slog: logging.NewSlogManager()}
	level := config.GetString("logLevel")

	var out io.Writer = os.Stdout
	if toFile {
		logsDir := config.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		path := logging.LogFilePath(logsDir, name, time.Now())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		s.logFile = f
		out = f
	}

	otelCfg := config.GetOTelConfig()
	provider, err := otel.New(otel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    out,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to initialize OTel provider: %w", err)
	}
	s.provider = provider

	opts := logging.Options{
		Level:       level,
		Provider:    provider.LoggerProvider(),
		ServiceName: otelCfg.ServiceName,
	}
	if toFile {
		opts.File = out
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		opts.GraylogAddress = gl.Address
	}
	if err := s.slog.Setup(opts); err != nil {
		s.close()
		return nil, err
	}
	s.Logger = s.slog.Logger()
	return s, nil
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.provider != nil {
		_ = s.provider.Flush(ctx)
		_ = s.provider.Shutdown(ctx)
	}
	_ = s.slog.Close()
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}
