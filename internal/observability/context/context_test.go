package obscontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDKeepsIncomingValue(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background(), "corr-1")
	assert.Equal(t, "corr-1", cid)
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))

	_, again := EnsureCorrelationID(ctx, "corr-2")
	assert.Equal(t, "corr-1", again)
}

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	_, cid := EnsureCorrelationID(context.Background(), "")
	assert.Len(t, cid, 26)
}

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), "employee", " 42 ")
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "employee", actorType)
	assert.Equal(t, "42", actorID)

	actorType, actorID = ActorFromContext(context.Background())
	assert.Empty(t, actorType)
	assert.Empty(t, actorID)
}
