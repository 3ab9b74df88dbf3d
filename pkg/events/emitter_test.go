package events

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

type recordingPublisher struct {
	events []*kafka.PlayerEvent
	err    error
}

func (p *recordingPublisher) PublishPlayerEvent(_ context.Context, event *kafka.PlayerEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func newTestEmitter(p Publisher) *Emitter {
	return NewEmitter(p, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestEmitter_Events(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	emitter := newTestEmitter(pub)
	jersey := 10
	match := models.MatchResult{
		MatchType:       models.MatchTypeExact,
		Player:          &models.PlayerRecord{ID: 5},
		SimilarityScore: 100,
		MatchedFields:   []string{models.FieldFirstName, models.FieldLastName, models.FieldDateOfBirth},
	}

	require.NoError(t, emitter.EmitPlayerCreated(ctx, &models.PlayerRecord{ID: 9}, 7, &jersey))
	require.NoError(t, emitter.EmitPlayerLinked(ctx, match, 7, nil))
	require.NoError(t, emitter.EmitDuplicateFlagged(ctx, match, 7))
	require.NoError(t, emitter.EmitPlayerMerged(ctx, 3, 5))
	require.Len(t, pub.events, 4)

	created := pub.events[0]
	assert.Equal(t, "player.created", created.EventType)
	assert.Equal(t, int64(9), created.PlayerID)
	assert.Equal(t, int64(7), *created.TeamID)
	assert.Equal(t, 10, *created.JerseyNumber)

	linked := pub.events[1]
	assert.Equal(t, "player.linked", linked.EventType)
	assert.Equal(t, int64(5), *linked.MatchedPlayerID)
	assert.Equal(t, "EXACT_MATCH", linked.MatchType)
	assert.Nil(t, linked.JerseyNumber)

	assert.Equal(t, "player.duplicate_flagged", pub.events[2].EventType)

	merged := pub.events[3]
	assert.Equal(t, "player.merged", merged.EventType)
	assert.Equal(t, int64(5), merged.PlayerID)
	assert.Equal(t, int64(3), *merged.MergedPlayerID)
}

func TestEmitter_PublishError(t *testing.T) {
	boom := errors.New("broker down")
	emitter := newTestEmitter(&recordingPublisher{err: boom})

	err := emitter.EmitPlayerMerged(context.Background(), 1, 2)
	assert.ErrorIs(t, err, boom)
}
