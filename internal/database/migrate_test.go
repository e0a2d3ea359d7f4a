//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/cloo-solutions/askdocs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateAndConnect(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	first, err := Migrate(pc.ConnectionString(), "../../migrations")
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, uint(1), first.Version)

	second, err := Migrate(pc.ConnectionString(), "../../migrations")
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, uint(1), second.Version)

	pool, err := NewPool(ctx, Config{URL: pc.ConnectionString(), MaxConns: 4})
	require.NoError(t, err)
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'passages')").Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)

	var appName string
	require.NoError(t, pool.QueryRow(ctx, "SELECT current_setting('application_name')").Scan(&appName))
	assert.Equal(t, "askdocs", appName)
}
