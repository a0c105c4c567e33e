package config

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type CarHubConfig struct {
	Env       Environment
	Addr      string
	BaseUrl   string
	LogLevel  zerolog.Level
	PublicDir string
	UploadDir string
	Postgres  PostgresConfig
	Redis     RedisConfig
	Session   SessionConfig
	Demo      DemoConfig
	DevConfig DevConfig
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionStoreKind string

const (
	StorePostgres SessionStoreKind = "postgres"
	StoreRedis    SessionStoreKind = "redis"
	StoreMemory   SessionStoreKind = "memory"
)

type SessionConfig struct {
	Secret          string
	Store           SessionStoreKind
	MaxAge          time.Duration
	RefreshInterval time.Duration
	StoreTimeout    time.Duration
	SweepInterval   time.Duration
	CookieSecure    bool
}

// The single demo login. Not a user table.
type DemoConfig struct {
	Username string
	Password string
}

type DevConfig struct {
	LiveTemplates bool
}
