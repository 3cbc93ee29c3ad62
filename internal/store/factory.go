package store

import (
	"errors"
	"strings"
)

const (
	EngineJSON   = "json"
	EngineSQLite = "sqlite"
	EngineRedis  = "redis"
)

type Options struct {
	Engine     string
	Path       string
	RedisAddr  string
	QuotaBytes int64
}

func NewByEngine(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Engine)) {
	case "", EngineSQLite:
		return NewSQLiteStore(opts.Path, opts.QuotaBytes)
	case EngineJSON:
		return NewJSONStore(opts.Path, opts.QuotaBytes)
	case EngineRedis:
		return NewRedisStore(opts.RedisAddr, opts.QuotaBytes)
	default:
		return nil, errors.New("unsupported store engine: " + opts.Engine)
	}
}
