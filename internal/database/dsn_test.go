package database

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "axoncache", Name: "cache"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=axoncache dbname=cache sslmode=disable timezone=UTC", dsn)
}

func TestBuildPostgresDSNQuotesValues(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "cache",
		Name:     "social",
		Host:     "db.example.com",
		Port:     6543,
		Password: `it's a secret`,
		Options: map[string]string{
			"sslmode":          "require",
			"application_name": "axoncache",
		},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, `password='it\'s a secret'`)
	require.Contains(t, dsn, "sslmode=require")

	parsed, err := pgx.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com", parsed.Host)
	require.EqualValues(t, 6543, parsed.Port)
	require.Equal(t, "it's a secret", parsed.Password)
	require.Equal(t, "axoncache", parsed.RuntimeParams["application_name"])
}

func TestBuildPostgresDSNValidation(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)

	_, err = buildPostgresDSN(Config{DSN: "host=db port=notaport"})
	require.Error(t, err)

	dsn, err := buildPostgresDSN(Config{DSN: "postgres://cache@db:5432/social"})
	require.NoError(t, err)
	require.Equal(t, "postgres://cache@db:5432/social", dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "cache",
		Password: "p@ss:word",
		Name:     "social",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify"},
	})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "cache", parsed.User)
	require.Equal(t, "p@ss:word", parsed.Passwd)
	require.Equal(t, "db.example.com:3307", parsed.Addr)
	require.Equal(t, "social", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Equal(t, "UTC", parsed.Loc.String())
	require.Contains(t, dsn, "charset=utf8mb4")
	require.Equal(t, "skip-verify", parsed.TLSConfig)
}

func TestBuildMySQLDSNValidation(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)

	dsn, err := buildMySQLDSN(Config{User: "cache", Name: "social"})
	require.NoError(t, err)
	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
}
