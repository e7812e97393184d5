//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"escolinha/pkg/testutil/containers"
)

func TestPostgresTreeSuite(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	backend := NewPostgresBackend(pg.Pool)
	require.NoError(t, backend.Migrate(context.Background()))

	suite.Run(t, &TreeSuite{newBackend: func() Backend {
		require.NoError(t, pg.Truncate(context.Background(), documentsTable))
		return backend
	}})
}
