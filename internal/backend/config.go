package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pnljournal/internal/config"
)

var ErrUnknownBackend = errors.New("invalid backend type")

// Config is the subset of application settings a backend needs.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	AMQPURL      string // empty: no publishing
	AMQPExchange string
	AMQPQueue    string

	SeedFile string // memory only; may not exist

	CacheSize int
	CacheTTL  time.Duration
}

func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("backend: nil app config")
	}
	c := Config{
		Type:         BackendType(app.DataBackend),
		SQLiteDBPath: app.SQLiteDBPath,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,
		SeedFile:     app.SeedFile,
		CacheSize:    app.CacheSize,
		CacheTTL:     app.CacheTTL,
	}
	if !c.Type.IsValid() {
		return Config{}, fmt.Errorf("%w %q, want one of %s", ErrUnknownBackend, app.DataBackend,
			strings.Join(GetBackendTypeStrings(), ", "))
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case !c.Type.IsValid():
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Type)
	case c.Type == SQLiteBackend && c.SQLiteDBPath == "":
		return errors.New("sqlite backend needs a database path")
	case c.CacheSize < 0:
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

// GetBackendTypeStrings lists the accepted DATA_BACKEND values.
func GetBackendTypeStrings() []string {
	out := make([]string, len(backendTypes))
	for i, t := range backendTypes {
		out[i] = t.String()
	}
	return out
}
