// Package config loads the gateway's runtime configuration from
// environment variables. There are few enough settings, all scalar,
// that a small hand-rolled loader matches the teacher's own style of
// plain structs with manual defaulting (see breaker.New) better than
// pulling in a configuration framework for eleven variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServiceAddr is a backend's host/port pair.
type ServiceAddr struct {
	Host string
	Port int
}

func (a ServiceAddr) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// BreakerConfig mirrors the original circuit_breaker env vars and is
// shared by all three downstream breakers — the gateway does not
// support per-dependency thresholds.
type BreakerConfig struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	Timeout          time.Duration
}

// Config is the gateway's full runtime configuration.
type Config struct {
	Port int

	Library     ServiceAddr
	Reservation ServiceAddr
	Rating      ServiceAddr

	Breaker BreakerConfig

	JWTSigningKey string
}

// Load reads Config from the environment, applying the same defaults
// the original gateway_system used.
func Load() (Config, error) {
	var cfg Config
	var err error

	cfg.Port = envInt("PORT", 8080)

	if cfg.Library, err = serviceAddr("LIBRARY_SYSTEM", 8060); err != nil {
		return Config{}, err
	}
	if cfg.Reservation, err = serviceAddr("RESERVATION_SYSTEM", 8070); err != nil {
		return Config{}, err
	}
	if cfg.Rating, err = serviceAddr("RATING_SYSTEM", 8050); err != nil {
		return Config{}, err
	}

	failureThreshold := envInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 2)
	successThreshold := envInt("CIRCUIT_BREAKER_SUCCESS_THRESHOLD", 1)
	timeoutSeconds := envInt("CIRCUIT_BREAKER_TIMEOUT", 15)
	cfg.Breaker = BreakerConfig{
		FailureThreshold: uint32(failureThreshold),
		SuccessThreshold: uint32(successThreshold),
		Timeout:          time.Duration(timeoutSeconds) * time.Second,
	}

	cfg.JWTSigningKey = os.Getenv("JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		cfg.JWTSigningKey = "dev-only-insecure-signing-key"
	}

	return cfg, nil
}

func serviceAddr(prefix string, defaultPort int) (ServiceAddr, error) {
	host := os.Getenv(prefix + "_HOST")
	if host == "" {
		host = "localhost"
	}
	return ServiceAddr{
		Host: host,
		Port: envInt(prefix+"_PORT", defaultPort),
	}, nil
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
