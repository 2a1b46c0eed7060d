package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/benjamw/cardparty/internal/cards"
	"github.com/benjamw/cardparty/internal/config"
	"github.com/benjamw/cardparty/internal/game"
	"github.com/benjamw/cardparty/internal/httpapi"
	"github.com/benjamw/cardparty/internal/store"
	"github.com/benjamw/cardparty/internal/store/boltstore"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`cardparty - party card game session server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT               Port to listen on (default: 8080)
  DATA_PATH          Path to the bbolt database file (default: in-memory only)
  CARDS_FILE         JSON file with the card catalog
  SESSION_RETENTION  Age after which idle sessions are swept (default: 72h)
  SWEEP_INTERVAL     How often the retention sweep runs (default: 1h)
  DEBUG              Verbose request logging (default: false)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("cardparty %s\n", version)
		return
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	cfg, err := config.FromEnv()
	if err != nil {
		zerologlog.Fatal().Err(err).Msg("config")
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	catalog := cards.NewCatalog()
	if cfg.CardsFile != "" {
		n, err := catalog.LoadFile(cfg.CardsFile)
		if err != nil {
			zerologlog.Fatal().Err(err).Str("file", cfg.CardsFile).Msg("load cards")
		}
		zerologlog.Info().Int("cards", n).Str("file", cfg.CardsFile).Msg("card catalog loaded")
	} else {
		zerologlog.Warn().Msg("CARDS_FILE not set; starting with an empty catalog")
	}

	var st store.Store
	if cfg.DataPath != "" {
		bolt, err := boltstore.Open(cfg.DataPath)
		if err != nil {
			zerologlog.Fatal().Err(err).Str("path", cfg.DataPath).Msg("open store")
		}
		defer bolt.Close()
		st = bolt
	} else {
		zerologlog.Warn().Msg("DATA_PATH not set; sessions will not survive a restart")
		st = store.NewMemory()
	}

	mgr := game.NewManager(st, catalog)

	// Gin setup with zerolog request logging
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zerologlog.Info().
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	httpapi.New(mgr).Mount(r)

	// Retention sweep for abandoned sessions.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			n, err := mgr.Sweep(context.Background(), cfg.SessionRetention)
			if err != nil {
				zerologlog.Error().Err(err).Msg("session sweep")
				continue
			}
			if n > 0 {
				zerologlog.Info().Int("removed", n).Msg("session sweep")
			}
		}
	}()

	zerologlog.Info().Str("port", cfg.Port).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server")
	}
}
