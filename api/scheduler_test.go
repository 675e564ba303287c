package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logia/treasury-engine/api"
	"github.com/logia/treasury-engine/treasury"
)

func TestRefreshScheduler_RunNow(t *testing.T) {
	// GIVEN a member written straight to the store, bypassing the cache
	e := newEnv(t)
	before := e.cache.Snapshot()
	require.Empty(t, before.Members)
	require.NoError(t, e.store.SaveMember(context.Background(), treasury.Member{
		ID:        uuid.NewString(),
		FullName:  "Pedro Alarcón",
		Status:    treasury.StatusActivo,
		Degree:    treasury.DegreeMaestro,
		CreatedAt: time.Now(),
	}))
	require.Empty(t, e.cache.Snapshot().Members)

	// WHEN the scheduler runs once
	s := api.NewRefreshScheduler(e.cache)
	s.RunNow()

	// THEN the cache converges on the store contents
	assert.Len(t, e.cache.Snapshot().Members, 1)
	assert.False(t, s.GetNextRunTime().Before(time.Now().Add(-time.Second)))
}

func TestRefreshScheduler_DisabledDoesNotStart(t *testing.T) {
	e := newEnv(t)

	s := api.NewRefreshScheduler(e.cache)
	s.Enabled = false
	s.Start()
	s.Stop() // must be a no-op, not a panic
}
