// Command arena plays one gridclaim game outside Nakama: configured bots run
// in-process, remote agents connect over a websocket, and the game state lives
// in memory or in a SQLite file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"gridclaim/internal/app"
	"gridclaim/internal/arena"
	"gridclaim/internal/config"
	"gridclaim/internal/domain"
	"gridclaim/internal/logging"
	"gridclaim/internal/persistence/memory"
	"gridclaim/internal/persistence/snapshot"
	"gridclaim/internal/persistence/sqlite"
	"gridclaim/internal/ports"
	"gridclaim/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the game config yaml (defaults when empty)")
		envPath    = flag.String("env", ".env", "dotenv file with gridclaim_* overrides (ignored when missing)")
		dbPath     = flag.String("db", "", "sqlite database file (in-memory store when empty)")
		gameID     = flag.String("game", "", "game id (random when empty)")
		addr       = flag.String("addr", "", "listen address for remote agents (disabled when empty)")
		snapPath   = flag.String("snapshot", "", "write a snapshot of the finished game to this path")
		resumePath = flag.String("resume", "", "resume the game stored in this snapshot")
		tick       = flag.Duration("tick", 0, "wall-clock length of one trigger unit (0 plays without waiting)")
		logLevel   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger, err := logging.NewDevelopment(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load %s: %v", *envPath, err)
	}

	cfg := config.Default()
	if *configPath != "" {
		if err := config.LoadGameConfig(*configPath); err != nil {
			logger.Error("Failed to load game config: %v", err)
			os.Exit(1)
		}
		cfg = config.GetGameConfig()
	}
	if cfg, err = cfg.ApplyEnv(environ()); err != nil {
		logger.Error("Invalid environment: %v", err)
		os.Exit(1)
	}

	var resumed *snapshot.SnapshotV1
	if *resumePath != "" {
		snap, err := snapshot.Read(*resumePath)
		if err != nil {
			logger.Error("Failed to read snapshot %s: %v", *resumePath, err)
			os.Exit(1)
		}
		cfg.Width, cfg.Height, cfg.Rounds, cfg.BuyIn = snap.Width, snap.Height, snap.Rounds, snap.BuyIn
		if *gameID == "" {
			*gameID = snap.Header.GameID
		}
		resumed = &snap
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid game config: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, game, closeStore, err := openStore(*dbPath, *gameID)
	if err != nil {
		logger.Error("Failed to open store: %v", err)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("Game %s (%dx%d, %d rounds, buy-in %d)", game, cfg.Width, cfg.Height, cfg.Rounds, cfg.BuyIn)

	if resumed != nil {
		if err := snapshot.Import(ctx, store, *resumed); err != nil {
			logger.Error("Failed to import snapshot: %v", err)
			os.Exit(1)
		}
		logger.Info("Resumed %s at round %d", resumed.Header.Phase, resumed.Header.RoundsPlayed)
	}

	publishers := []app.Publisher{arena.LogPublisher{Logger: logger}}
	var remote ports.AgentCaller
	if *addr != "" {
		hub, err := serveAgents(ctx, cfg, game, *addr, logger)
		if err != nil {
			logger.Error("Failed to start agent server: %v", err)
			os.Exit(1)
		}
		remote = hub
		publishers = append(publishers, hub)
	}

	a, err := arena.New(ctx, cfg, store, remote, logger, publishers...)
	if err != nil {
		logger.Error("Failed to create game: %v", err)
		os.Exit(1)
	}
	if err := a.Enroll(ctx); err != nil {
		logger.Error("Failed to enroll participants: %v", err)
		os.Exit(1)
	}

	ranking, err := a.Run(ctx, *tick)
	if err != nil {
		logger.Error("Game stopped: %v", err)
	} else {
		printRanking(ranking, a.Ledger())
	}

	if *snapPath != "" {
		if err := writeSnapshot(context.Background(), store, game, cfg, *snapPath); err != nil {
			logger.Error("Failed to write snapshot: %v", err)
			os.Exit(1)
		}
		logger.Info("Snapshot written to %s", *snapPath)
	}
	if err != nil {
		os.Exit(1)
	}
}

// environ returns the process environment as a map for config.ApplyEnv.
func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func openStore(path, game string) (ports.Store, string, func(), error) {
	if path == "" {
		if game == "" {
			game = uuid.NewString()
		}
		return memory.NewStore(), game, func() {}, nil
	}
	store, err := sqlite.Open(path, game)
	if err != nil {
		return nil, "", nil, err
	}
	return store, store.Game(), func() { _ = store.Close() }, nil
}

// serveAgents starts the agent websocket and logs a token for every
// configured remote agent.
func serveAgents(ctx context.Context, cfg config.GameConfig, game, addr string, logger *logging.Logger) (*ws.Hub, error) {
	if cfg.AgentTokenSecret == "" {
		return nil, errors.New("agent_token_secret is required to accept remote agents")
	}
	ttl := time.Duration(cfg.AgentTokenTTLSeconds) * time.Second
	tokens := app.NewAgentTokenService(cfg.AgentTokenSecret, app.AgentTokenIssuer, ttl)

	hub, err := ws.NewHub(tokens, ws.Options{
		GameID:     game,
		UnitsPerMs: cfg.UnitsPerMs,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/agent", hub.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Agent server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	for _, agent := range cfg.RemoteAgents {
		token, err := tokens.GenerateToken(agent.ID, game)
		if err != nil {
			return nil, fmt.Errorf("token for %s: %w", agent.ID, err)
		}
		logger.Info("Agent %s connects to ws://%s/agent with token %s", agent.ID, addr, token)
	}
	return hub, nil
}

func printRanking(ranking domain.Registry, ledger *memory.Ledger) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tSCORE\tBALANCE")
	for i, p := range ranking {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", i+1, p.ID, p.Name, p.Score, ledger.Balance(p.ID))
	}
	_ = tw.Flush()
}

func writeSnapshot(ctx context.Context, store ports.Store, game string, cfg config.GameConfig, path string) error {
	snap, err := snapshot.Export(ctx, store, game)
	if err != nil {
		return err
	}
	snap.Width, snap.Height, snap.Rounds, snap.BuyIn = cfg.Width, cfg.Height, cfg.Rounds, cfg.BuyIn
	return snapshot.Write(path, snap)
}
