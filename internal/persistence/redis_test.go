package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/bookhive/internal/config"
)

func TestNewRedis_Ping(t *testing.T) {
	mini := miniredis.RunT(t)

	r := NewRedis(context.Background(), config.RedisConfig{Addr: mini.Addr()}, zap.NewNop())
	t.Cleanup(r.Close)

	require.NoError(t, r.Ping(context.Background()))

	mini.Close()
	assert.Error(t, r.Ping(context.Background()))
}

func TestNilHandlesReportNotConfigured(t *testing.T) {
	var r *Redis
	var p *Postgres

	assert.Error(t, r.Ping(context.Background()))
	assert.Error(t, p.Ping(context.Background()))
	assert.Nil(t, p.PoolHandle())
}

func TestNewPostgres_RequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	content, err := migrationsFS.ReadFile(migrationsDir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- +goose Up")
	assert.Contains(t, string(content), "lower(email)")
}
