// config.go
//
// Runtime configuration from .env and the environment.
// Unset keys take defaults; malformed numbers or bools are logged and ignored.

package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/simon/internal/audio"
)

// Config is everything main needs to wire the program.
type Config struct {
	LogLevel string
	LogFile  string // "-" means stderr

	StoreDriver string // "sqlite" | "memory"
	DBPath      string

	StatusAddr string // empty disables the status endpoint

	Muted     bool
	SeedMode  string // "time" | "daily"
	Seed      uint64 // non-zero overrides SeedMode
	DailySalt string

	Audio audio.Config
}

func loadConfig() Config {
	def := audio.DefaultConfig()
	return Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", "./data/simon.log"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		DBPath:      getEnv("DB_PATH", "./data/simon.db"),
		StatusAddr:  getEnv("STATUS_ADDR", ""),
		Muted:       getBool("SIMON_MUTED", false),
		SeedMode:    strings.ToLower(getEnv("SIMON_SEED_MODE", "time")),
		Seed:        getUint("SIMON_SEED", 0),
		DailySalt:   getEnv("SIMON_DAILY_SALT", "local_dev_salt"),
		Audio: audio.Config{
			SampleRate: getInt("AUDIO_SAMPLE_RATE", def.SampleRate),
			Volume:     getFloat("AUDIO_VOLUME", def.Volume),
		},
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid bool, using default")
		return def
	}
	return b
}

func getInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid int, using default")
		return def
	}
	return n
}

func getUint(k string, def uint64) uint64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid uint, using default")
		return def
	}
	return n
}

func getFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid float, using default")
		return def
	}
	return f
}
