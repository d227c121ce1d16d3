package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/particle3d/server/internal/backend/term"
	"github.com/particle3d/server/internal/config"
	"github.com/particle3d/server/internal/component"
	"github.com/particle3d/server/internal/core/event"
	coresys "github.com/particle3d/server/internal/core/system"
	"github.com/particle3d/server/internal/data"
	"github.com/particle3d/server/internal/handler"
	"github.com/particle3d/server/internal/metrics"
	gonet "github.com/particle3d/server/internal/net"
	"github.com/particle3d/server/internal/net/packet"
	"github.com/particle3d/server/internal/net/ws"
	"github.com/particle3d/server/internal/particle/render"
	"github.com/particle3d/server/internal/persist"
	"github.com/particle3d/server/internal/scripting"
	"github.com/particle3d/server/internal/system"
	"github.com/particle3d/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            particle3d  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.ResolvePath("config/server.toml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// The terminal view owns stdout; the banner would be wiped anyway.
	quiet := cfg.Terminal.Enabled
	if !quiet {
		printBanner(cfg.Server.Name)
	}

	// 3. Optional stats database
	var statsRepo *persist.StatsRepo
	if cfg.Database.Driver != "" {
		if !quiet {
			printSection("database")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.Open(ctx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db); err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		cancel()
		statsRepo = persist.NewStatsRepo(db)
		if !quiet {
			printOK(fmt.Sprintf("%s connected, migrations applied", cfg.Database.Driver))
			fmt.Println()
		}
	}

	// 4. Lua scripts
	scripts, err := scripting.NewEngine(cfg.Simulation.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()

	// 5. Terminal view
	var (
		screen  *term.Backend
		backend render.Backend
	)
	if cfg.Terminal.Enabled {
		screen, err = term.Open(cfg.Terminal.Scale, log)
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Close()
		backend = screen
	}

	// 6. Particle definitions and scene
	table, err := data.LoadParticleTable(cfg.Simulation.Definitions)
	if err != nil {
		return fmt.Errorf("load particle definitions: %w", err)
	}
	systems, err := data.BuildAll(table, data.Deps{
		Log:     log,
		Scripts: scripts,
		Backend: backend,
		Seed:    cfg.Simulation.Seed,
	})
	if err != nil {
		return fmt.Errorf("build particle systems: %w", err)
	}

	bus := event.NewBus()
	scene := world.NewScene(bus)
	totalQuota := 0
	for i, sys := range systems {
		def := &table.All()[i]
		node := component.NewNode(def.Position.Vec3())
		if _, err := scene.Add(sys, node); err != nil {
			return fmt.Errorf("scene: %w", err)
		}
		if cfg.Simulation.Autostart || def.Autostart {
			sys.Start()
		}
		totalQuota += sys.Quota()
	}
	if !quiet {
		printSection("simulation")
		printStat("particle systems", scene.Count())
		printStat("particle quota", totalQuota)
		fmt.Println()
	}

	// 7. Control/viewer server
	store := gonet.NewSessionStore()
	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{Config: cfg, Scene: scene, Log: log}
	handler.RegisterAll(pktReg, deps)

	var netServer *gonet.Server
	if cfg.Network.Enabled {
		netServer, err = gonet.NewServer(cfg.Network.BindAddress, gonet.SessionOptions{
			InSize:       cfg.Network.InQueueSize,
			OutSize:      cfg.Network.OutQueueSize,
			PktPerSec:    cfg.Network.PacketsPerSecond,
			WriteTimeout: cfg.Network.WriteTimeout,
			Hello:        handler.BuildHello(cfg),
		}, log)
		if err != nil {
			return fmt.Errorf("network: %w", err)
		}
		go netServer.AcceptLoop()
		defer netServer.Shutdown()
	}

	// 8. HTTP: metrics and websocket viewers
	m := metrics.New()
	var hub *ws.Hub
	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		hub = ws.NewHub(cfg.HTTP.ViewerQueue, cfg.Network.WriteTimeout, log)
		defer hub.Close()
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.Handle("/ws", hub)
		httpServer = &http.Server{
			Addr:              cfg.HTTP.BindAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server stopped", zap.Error(err))
			}
		}()
	}

	// 9. Create systems and register with runner
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	quitCh := make(chan struct{})
	var quitOnce bool
	quit := func() {
		if !quitOnce {
			quitOnce = true
			close(quitCh)
		}
	}

	// A nil *ws.Hub must not reach the interface-typed fields.
	var frames system.Broadcaster
	if hub != nil {
		frames = hub
	}
	var recorder system.StatsRecorder
	if statsRepo != nil {
		recorder = statsRepo
	}
	var view system.Screen
	if screen != nil {
		view = screen
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, pktReg, store, deps, cfg.Network.MaxPacketsPerTick, log))
	if screen != nil {
		runner.Register(system.NewConsoleSystem(scene, screen, quit, log))
	}
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewSceneSystem(scene))
	runner.Register(system.NewRenderSystem(scene, view))
	runner.Register(system.NewOutputSystem(scene, store, frames, cfg.Network.StreamEvery, cfg.Network.MaxParticles, log))
	stats := system.NewStatsSystem(scene, bus, m, recorder, store, frames, cfg.Stats.SampleEvery, cfg.Stats.FlushEvery, log)
	runner.Register(stats)
	runner.Register(system.NewCleanupSystem(scene.World()))

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	if !quiet {
		if netServer != nil {
			printReady(fmt.Sprintf("control on %s", netServer.Addr().String()))
		}
		if httpServer != nil {
			printReady(fmt.Sprintf("metrics and viewers on %s", cfg.HTTP.BindAddress))
		}
		fmt.Println()
	}
	log.Info("simulation started",
		zap.Int("systems", scene.Count()),
		zap.Duration("tick", cfg.Simulation.TickRate),
	)

	shutdown := func(reason string) error {
		log.Info("shutting down", zap.String("reason", reason))
		stats.FlushNow()
		if httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			httpServer.Shutdown(ctx)
			cancel()
		}
		log.Info("server stopped")
		return nil
	}

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			runner.Tick(cfg.Simulation.TickRate)
			m.ObserveTick(time.Since(start))
		case sig := <-shutdownCh:
			return shutdown(sig.String())
		case <-quitCh:
			return shutdown("console quit")
		}
	}
}
