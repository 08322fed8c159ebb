// Command crucible finds minimal heat loss routes for crucibles pushed across
// a grid of city blocks.
//
// Subcommands:
//  1. "solve" – solves a puzzle file and prints the answer for each regime
//  2. "serve" – runs the HTTP server exposing REST API, WebSocket, metrics and an /mcp endpoint
//  3. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  4. "validate" – checks every puzzle file in a directory
//
// Flags also read environment variables, and a .env file in the working
// directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/crucible/api"
	"github.com/wricardo/mcp-training/crucible/route/config"
	"github.com/wricardo/mcp-training/crucible/route/engine"
	"github.com/wricardo/mcp-training/crucible/route/puzzle"
	"github.com/wricardo/mcp-training/crucible/route/render"
	"github.com/wricardo/mcp-training/crucible/route/service"
	"github.com/wricardo/mcp-training/crucible/route/session"
	"github.com/wricardo/mcp-training/crucible/transport/mcp"
	"github.com/wricardo/mcp-training/crucible/transport/websocket"
	"github.com/wricardo/mcp-training/crucible/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Crucible Route Solver"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		logger, err := newLogger(cmd.String("log-level"), cmd.String("log-format"), os.Stderr)
		if err != nil {
			return ctx, err
		}
		slog.SetDefault(logger)
		if envErr == nil {
			slog.Debug("loaded environment variables from .env file")
		} else if !errors.Is(envErr, os.ErrNotExist) {
			slog.Warn("error loading .env file", "error", envErr)
		}
		return ctx, nil
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "crucible",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "text or json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Commands: []*cli.Command{
			solveCommand(),
			serveCommand(),
			mcpCommand(),
			validateCommand(),
		},
	}
}

// newLogger returns a slog logger writing to w in the given format
func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: use text or json", format)
	}
}

func configDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config-dir",
		Value:   "puzzles",
		Usage:   "directory containing puzzle files",
		Sources: cli.EnvVars("CONFIG_DIR"),
	}
}

func sessionsDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "sessions-dir",
		Value:   "sessions",
		Usage:   "directory for persisted sessions (empty disables persistence)",
		Sources: cli.EnvVars("SESSIONS_DIR"),
	}
}

// answerLabels names regime answers the way puzzle answers are reported
var answerLabels = map[string]string{
	engine.RegimeCapped:        "First",
	engine.RegimeMinimumCommit: "Second",
}

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "solve a puzzle file and print the minimal heat loss",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "regime",
				Value: "all",
				Usage: "capped, minimum-commit or all",
			},
			&cli.BoolFlag{
				Name:  "render",
				Usage: "draw each route over the grid",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "print moves and expanded states",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected exactly one puzzle file, got %d", cmd.NArg())
			}
			return runSolve(ctx, cmd.Root().Writer, cmd.Args().First(), cmd.String("regime"), cmd.Bool("render"), cmd.Bool("stats"))
		},
	}
}

// runSolve prints one answer line per regime. "-" reads the grid from stdin.
func runSolve(ctx context.Context, w io.Writer, file, regimeName string, showRoute, showStats bool) error {
	var (
		p   *puzzle.Puzzle
		err error
	)
	if file == "-" {
		data, readErr := io.ReadAll(os.Stdin)
		if readErr != nil {
			return fmt.Errorf("failed to read stdin: %w", readErr)
		}
		p, err = puzzle.FromText("stdin", string(data))
	} else {
		p, err = puzzle.Load(file)
	}
	if err != nil {
		return err
	}

	regimes := engine.Regimes()
	if regimeName != "" && regimeName != "all" {
		regime, err := engine.LookupRegime(regimeName)
		if err != nil {
			return err
		}
		regimes = []engine.Regime{regime}
	}

	g, err := p.Grid()
	if err != nil {
		return err
	}
	start, end := p.Endpoints(g)

	for _, regime := range regimes {
		path, err := engine.Search(ctx, g, start, end, regime.Policy)
		if err != nil && !errors.Is(err, engine.ErrUnreachable) {
			return err
		}

		label := answerLabels[regime.Name]
		if path == nil {
			fmt.Fprintf(w, "%s: unreachable\n", label)
		} else {
			fmt.Fprintf(w, "%s: %d\n", label, path.Cost)
		}

		if showStats {
			fmt.Fprintln(w, render.Summary(regime.Name, path))
		}
		if showRoute && path != nil {
			for _, line := range render.Overlay(g, path) {
				fmt.Fprintln(w, line)
			}
		}
	}
	return nil
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate every puzzle file in a directory",
		ArgsUsage: "[DIR]",
		Flags:     []cli.Flag{configDirFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("config-dir")
			if cmd.NArg() > 0 {
				dir = cmd.Args().First()
			}

			results, err := validate.Dir(ctx, dir)
			if err != nil {
				return err
			}
			if !validate.Report(cmd.Root().Writer, results) {
				return errors.New("some puzzles have errors")
			}
			return nil
		},
	}
}

// serverOptions configures the HTTP server
type serverOptions struct {
	Host        string
	Port        int
	ConfigDir   string
	SessionsDir string
	SessionTTL  time.Duration
	Watch       bool

	NgrokEnabled   bool
	NgrokAuthToken string
	NgrokDomain    string
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server with REST API, WebSocket, metrics and MCP endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			configDirFlag(),
			sessionsDirFlag(),
			&cli.DurationFlag{
				Name:  "session-ttl",
				Value: 24 * time.Hour,
				Usage: "evict sessions not accessed within this window",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Value: true,
				Usage: "reload puzzles when files in the config directory change",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runHTTPServer(ctx, serverOptions{
				Host:           cmd.String("host"),
				Port:           cmd.Int("port"),
				ConfigDir:      cmd.String("config-dir"),
				SessionsDir:    cmd.String("sessions-dir"),
				SessionTTL:     cmd.Duration("session-ttl"),
				Watch:          cmd.Bool("watch"),
				NgrokEnabled:   cmd.Bool("ngrok"),
				NgrokAuthToken: cmd.String("ngrok-auth"),
				NgrokDomain:    cmd.String("ngrok-domain"),
			})
		},
	}
}

// services bundles the wired managers and solver service
type services struct {
	Solver      service.SolverService
	Sessions    *session.Manager
	Puzzles     *config.Manager
	Persistence session.SessionPersistence
}

// initializeServices wires the puzzle catalogue, session store and solver
func initializeServices(configDir, sessionsDir string) (*services, error) {
	puzzles, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create puzzle manager: %w", err)
	}

	s := &services{Puzzles: puzzles}
	if sessionsDir == "" {
		s.Sessions = session.NewManager()
	} else {
		persistence, err := session.NewFilePersistence(sessionsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		s.Persistence = persistence
		s.Sessions = session.NewManagerWithPersistence(persistence)

		if err := s.Sessions.LoadPersistedSessions(); err != nil {
			slog.Warn("failed to load persisted sessions", "error", err)
		}
	}

	s.Solver = service.NewSolverService(s.Sessions, puzzles)
	return s, nil
}

// newHandler mounts the API and the /mcp endpoint on one mux
func newHandler(apiServer *api.Server, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", mcpClient.Handler())
	return mainRouter
}

// runHTTPServer serves until ctx is cancelled. If ngrok is enabled it also
// provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts serverOptions) error {
	svc, err := initializeServices(opts.ConfigDir, opts.SessionsDir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	if opts.Watch {
		if err := svc.Puzzles.Watch(ctx); err != nil {
			slog.Warn("puzzle watcher disabled", "error", err)
		}
	}
	go sessionCleanupRoutine(ctx, svc.Sessions, opts.SessionTTL)
	if svc.Persistence != nil {
		go filesystemSyncRoutine(ctx, svc.Sessions, svc.Persistence)
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	handler := newHandler(api.NewServer(svc.Solver, hub), mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		slog.Info("HTTP server listening", "addr", addr, "version", Version)
		slog.Info("endpoints",
			"api", fmt.Sprintf("http://%s/api", addr),
			"websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
			"metrics", fmt.Sprintf("http://%s/metrics", addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, handler)
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		cancel()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	if err := svc.Sessions.SaveAllSessions(); err != nil {
		slog.Warn("failed to save sessions on shutdown", "error", err)
	}

	wg.Wait()
	slog.Info("server stopped")
	return nil
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, opts serverOptions, handler http.Handler) {
	if opts.NgrokAuthToken == "" {
		slog.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		slog.Info("using custom ngrok domain", "domain", opts.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuthToken))
	if err != nil {
		slog.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			slog.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	url := tun.URL()
	slog.Info("ngrok tunnel established", "url", url, "api", url+"/api", "mcp", url+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		slog.Error("ngrok server error", "error", err)
	}
	slog.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically evicts sessions that have not been
// accessed within ttl
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				slog.Info("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory when their files are deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphanedSessions(manager, persistence)
		}
	}
}

func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			slog.Info("pruned session from memory (file deleted)", "session", s.ID)
		}
	}
	return pruned
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "run an MCP stdio server backed by the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api-url",
				Value: "http://localhost:8080",
				Usage: "REST API to reuse when it is already running",
			},
			configDirFlag(),
			sessionsDirFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStdioMCP(ctx, cmd.String("api-url"), cmd.String("config-dir"), cmd.String("sessions-dir"))
		},
	}
}

// runStdioMCP runs an MCP stdio server. It reuses an external API at
// externalURL when one answers; otherwise it starts an internal API on a
// random loopback port.
func runStdioMCP(ctx context.Context, externalURL, configDir, sessionsDir string) error {
	baseURL := externalURL

	slog.Info("checking for external API server", "url", externalURL)
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil {
		resp.Body.Close()
	}

	if err == nil && resp.StatusCode < 500 {
		slog.Info("external API server found, using it for MCP", "url", externalURL)
	} else {
		slog.Info("no external API server found, starting internal HTTP server")

		svc, err := initializeServices(configDir, sessionsDir)
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svc.Solver, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		slog.Info("internal HTTP server started", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	slog.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
