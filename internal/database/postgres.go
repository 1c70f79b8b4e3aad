package database

import (
	"errors"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig())
}

// buildPostgresDSN renders a keyword/value connection string and checks that pgx accepts it.
// Values are quoted when they contain spaces, quotes or backslashes.
func buildPostgresDSN(cfg Config) (string, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		if cfg.User == "" || cfg.Name == "" {
			return "", errors.New("postgres configuration requires user and database name")
		}

		params := map[string]string{
			"host":     firstNonEmpty(cfg.Host, "localhost"),
			"port":     strconv.Itoa(portOrDefault(cfg.Port, 5432)),
			"user":     cfg.User,
			"dbname":   cfg.Name,
			"sslmode":  "disable",
			"timezone": "UTC",
		}
		if cfg.Password != "" {
			params["password"] = cfg.Password
		}
		for key, value := range cfg.Options {
			params[key] = value
		}

		pairs := make([]string, 0, len(params))
		for _, key := range postgresKeyOrder(params) {
			pairs = append(pairs, key+"="+quotePostgresValue(params[key]))
		}
		dsn = strings.Join(pairs, " ")
	}

	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", err
	}
	return dsn, nil
}

// postgresKeyOrder keeps connection keys first and sorts the remaining options.
func postgresKeyOrder(params map[string]string) []string {
	leading := []string{"host", "port", "user", "password", "dbname"}
	keys := make([]string, 0, len(params))
	for _, key := range leading {
		if _, ok := params[key]; ok {
			keys = append(keys, key)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if !slices.Contains(leading, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

func quotePostgresValue(value string) string {
	if value != "" && !strings.ContainsAny(value, " '\\\t") {
		return value
	}
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + replacer.Replace(value) + "'"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func portOrDefault(port, fallback int) int {
	if port <= 0 {
		return fallback
	}
	return port
}
