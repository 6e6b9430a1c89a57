// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Supabase（IdP、ストレージ）
	SupabaseURL       string        `env:"SUPABASE_URL,required,notEmpty"`
	SupabaseAnonKey   string        `env:"SUPABASE_ANON_KEY,required,notEmpty"`
	SupabaseJWTSecret string        `env:"SUPABASE_JWT_SECRET"`
	AuthProvider      string        `env:"AUTH_PROVIDER" envDefault:"google"`
	AvatarBucket      string        `env:"AVATAR_BUCKET" envDefault:"profile"`
	AvatarMaxBytes    int64         `env:"AVATAR_MAX_BYTES" envDefault:"2097152"`
	RemoteCallTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,required,notEmpty"`

	// Cookie
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"-"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は不足しているキーを列挙したエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		if missing := missingKeys(err); len(missing) > 0 {
			return nil, fmt.Errorf("required environment variables are not set: %v", missing)
		}
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.SupabaseURL = strings.TrimRight(cfg.SupabaseURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

// missingKeys はenv.Parseのエラーから未設定・空の必須キーを抽出する。
func missingKeys(err error) []string {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return nil
	}

	var missing []string
	for _, e := range agg.Errors {
		switch v := e.(type) {
		case env.VarIsNotSetError:
			missing = append(missing, v.Key)
		case env.EmptyVarError:
			missing = append(missing, v.Key)
		}
	}
	return missing
}
