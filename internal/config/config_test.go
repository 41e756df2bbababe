package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Auth.AccessTTL())
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 10*time.Minute, cfg.Auth.RefreshedAccessTTL())
	assert.Zero(t, cfg.Auth.ClockSkew())
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "0.0.0.0:8000", cfg.App.Addr())
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsOutOfRangeArgon2(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("AUTH_ARGON2_THREADS", "256")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_ARGON2_THREADS")
}

func TestAuthConfigValidate(t *testing.T) {
	valid := AuthConfig{
		JWTSecret:                 testSecret,
		AccessTokenTTLMinutes:     120,
		RefreshTokenTTLMinutes:    1440,
		RefreshedAccessTTLMinutes: 10,
	}

	tests := []struct {
		name    string
		mutate  func(*AuthConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AuthConfig) {}},
		{name: "short secret", mutate: func(a *AuthConfig) { a.JWTSecret = "short" }, wantErr: "at least"},
		{name: "access outlives refresh", mutate: func(a *AuthConfig) { a.AccessTokenTTLMinutes = 2000 }, wantErr: "access token TTL"},
		{name: "refreshed access outlives refresh", mutate: func(a *AuthConfig) { a.RefreshedAccessTTLMinutes = 1440 }, wantErr: "refreshed access"},
		{name: "zero ttl", mutate: func(a *AuthConfig) { a.RefreshTokenTTLMinutes = 0 }, wantErr: "positive"},
		{name: "negative skew", mutate: func(a *AuthConfig) { a.ClockSkewSeconds = -1 }, wantErr: "SKEW"},
		{name: "argon2 defaults", mutate: func(a *AuthConfig) { a.Argon2Time, a.Argon2MemoryKB, a.Argon2Threads = 0, 0, 0 }},
		{name: "argon2 tuned", mutate: func(a *AuthConfig) { a.Argon2Time, a.Argon2MemoryKB, a.Argon2Threads = 3, 19456, 2 }},
		{name: "threads overflow uint8", mutate: func(a *AuthConfig) { a.Argon2Threads = 256 }, wantErr: "AUTH_ARGON2_THREADS"},
		{name: "negative memory", mutate: func(a *AuthConfig) { a.Argon2MemoryKB = -1 }, wantErr: "AUTH_ARGON2_MEMORY_KB"},
		{name: "memory too large", mutate: func(a *AuthConfig) { a.Argon2MemoryKB = maxArgon2MemoryKB + 1 }, wantErr: "AUTH_ARGON2_MEMORY_KB"},
		{name: "negative time", mutate: func(a *AuthConfig) { a.Argon2Time = -1 }, wantErr: "AUTH_ARGON2_TIME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
