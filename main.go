package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/simon/internal/audio"
	"github.com/robalobadob/simon/internal/daily"
	"github.com/robalobadob/simon/internal/game"
	"github.com/robalobadob/simon/internal/httpserver"
	sig "github.com/robalobadob/simon/internal/signal"
	"github.com/robalobadob/simon/internal/store"
	"github.com/robalobadob/simon/internal/tui"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	closeLog := setupLogging(cfg)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	player := audio.NewPlayer(cfg.Audio)
	_ = player.Init() // silent on failure
	defer player.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create screen")
	}
	if err := screen.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to init screen")
	}
	defer screen.Fini()

	app := tui.New(screen)
	ctrl := game.New(ctx, game.Config{
		Palette: newPalette(cfg, time.Now()),
		Visual:  app,
		Audio:   player,
		Scores:  st,
		Games:   st,
		Muted:   cfg.Muted,
	})
	defer ctrl.Close()

	if cfg.StatusAddr != "" {
		srv := httpserver.New(ctrl, st)
		go func() {
			log.Info().Str("addr", cfg.StatusAddr).Msg("starting status server")
			if err := srv.Start(cfg.StatusAddr); err != nil {
				log.Error().Err(err).Msg("status server exited")
			}
		}()
	}

	log.Info().Str("store", cfg.StoreDriver).Bool("muted", cfg.Muted).Msg("starting simon")
	if err := app.Run(ctx, ctrl); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("ui exited")
	}
}

// setupLogging points the global logger away from the terminal the UI owns.
func setupLogging(cfg Config) func() {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if cfg.LogFile == "-" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return func() {}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "log dir: %v\n", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file: %v, logging disabled\n", err)
		log.Logger = zerolog.New(io.Discard)
		return func() {}
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return func() { _ = f.Close() }
}

func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite", "":
		db, err := store.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// newPalette picks the random source: fixed seed, daily seed, or the clock.
func newPalette(cfg Config, now time.Time) *sig.Palette {
	switch {
	case cfg.Seed != 0:
		log.Debug().Uint64("seed", cfg.Seed).Msg("fixed seed")
		return sig.NewSeeded(cfg.Seed)
	case cfg.SeedMode == "daily":
		log.Debug().Str("date", daily.DateKey(now)).Msg("daily seed")
		return sig.NewSeeded(daily.Seed(now, cfg.DailySalt))
	case cfg.SeedMode != "time":
		log.Warn().Str("mode", cfg.SeedMode).Msg("unknown seed mode, using time")
	}
	return sig.NewPalette(nil)
}
