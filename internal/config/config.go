package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string
	WSAddr     string

	RedisURL    string
	DatabaseURL string

	WordsDir    string
	MessagesDir string

	RoomTTLHours     int
	SweepIntervalSec int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:       ":8080",
		WSAddr:           ":8081",
		RoomTTLHours:     24,
		SweepIntervalSec: 2,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.WordsDir = strings.TrimSpace(os.Getenv("WORDS_DIR"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("ROOM_TTL_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RoomTTLHours = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SweepIntervalSec = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}
