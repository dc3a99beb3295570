// Command server starts the Click Race game server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, authentication, debug logging,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/clickrace/server/api"
	"github.com/clickrace/server/game/clickrace"
	"github.com/clickrace/server/game/config"
	"github.com/clickrace/server/game/presence"
	"github.com/clickrace/server/transport/mcp"
	"github.com/clickrace/server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Click Race Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	app := &cli.Command{
		Name:    "server",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run HTTP server with API, WebSocket, and MCP endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Value: "localhost",
				Usage: "HTTP server host",
			},
			&cli.IntFlag{
				Name:  "port",
				Value: 8080,
				Usage: "HTTP server port",
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Name of the game configuration to load (default config if empty)",
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Usage:   "HMAC secret for WebSocket token auth (header auth is used when empty)",
				Sources: cli.EnvVars("JWT_SECRET"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServe,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run MCP stdio server backed by the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api-url",
				Value: "http://localhost:8080",
				Usage: "External API server to proxy (an internal one is started if unreachable)",
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: runStdioMCP,
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// buildStack wires the full game stack: hub, coordinators, router, and the
// REST server on top.
func buildStack(configDir, configName, jwtSecret string, log *zap.Logger) (*api.Server, *websocket.Hub, error) {
	manager, err := config.NewManager(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	cfg := manager.GetDefault()
	if configName != "" {
		cfg, err = manager.LoadConfig(configName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config %q: %w", configName, err)
		}
	}

	var auth websocket.Authenticator
	if jwtSecret != "" {
		auth = websocket.NewJWTAuthenticator([]byte(jwtSecret))
	} else {
		log.Warn("no JWT secret configured, falling back to header auth")
		auth = websocket.HeaderAuthenticator{}
	}

	hub := websocket.NewHub(auth, log.Named("ws"))
	rooms := clickrace.NewCoordinator(cfg, hub, log.Named("clickrace"))
	tracker := presence.NewTracker(cfg.ReconnectGrace(), hub, hub, log.Named("presence"))

	router := websocket.NewRouter(rooms, tracker, log.Named("router"))
	router.Bind(hub)
	go hub.Run()

	return api.NewServer(rooms, tracker, manager, hub, log.Named("api")), hub, nil
}

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp
// proxy endpoint. If ngrok is enabled it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer log.Sync()

	apiServer, _, err := buildStack(
		cmd.String("config-dir"),
		cmd.String("config"),
		cmd.String("jwt-secret"),
		log,
	)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHTTPHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(serveCtx, mainRouter, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), log)
		}()
	}

	sig := <-stop
	log.Info("shutting down", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}

	wg.Wait()
	log.Info("server stopped")
	return nil
}

// mcpHTTPHandler exposes the MCP message endpoint over plain HTTP POST.
func mcpHTTPHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

func runNgrokTunnel(ctx context.Context, handler http.Handler, authToken, domain string, log *zap.Logger) {
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided, skipping tunnel")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Warn("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	defer tun.Close()

	log.Info("ngrok tunnel established", zap.String("url", tun.URL()))

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Warn("ngrok server error", zap.Error(err))
	}
}

// runStdioMCP runs an MCP stdio server. It tries to reuse an external API
// first; if unavailable, it starts a minimal internal HTTP API bound to a
// random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer log.Sync()

	baseURL := cmd.String("api-url")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Info("using external API server", zap.String("url", baseURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		apiServer, _, err := buildStack(cmd.String("config-dir"), "", "", log)
		if err != nil {
			return err
		}

		go func() {
			if err := http.Serve(listener, apiServer); err != nil && err != http.ErrServerClosed {
				log.Warn("internal HTTP server error", zap.Error(err))
			}
		}()

		baseURL = fmt.Sprintf("http://%s", listener.Addr())
		log.Info("started internal API server", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL)

	log.Info("MCP stdio server ready")
	if err := mcpserver.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
