// Package events emits player lifecycle events for downstream consumers
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// EventType names a player lifecycle event
type EventType string

const (
	EventTypePlayerCreated          EventType = "player.created"
	EventTypePlayerLinked           EventType = "player.linked"
	EventTypePlayerDuplicateFlagged EventType = "player.duplicate_flagged"
	EventTypePlayerMerged           EventType = "player.merged"
)

// Publisher delivers encoded player events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishPlayerEvent(ctx context.Context, event *kafka.PlayerEvent) error
}

// Emitter builds and publishes player events
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitPlayerCreated emits player.created for a new player linked to a team
func (e *Emitter) EmitPlayerCreated(ctx context.Context, player *models.PlayerRecord, teamID int64, jersey *int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPlayerCreated")
	defer span.End()

	return e.emit(ctx, &kafka.PlayerEvent{
		EventType:    string(EventTypePlayerCreated),
		PlayerID:     player.ID,
		TeamID:       &teamID,
		JerseyNumber: jersey,
	})
}

// EmitPlayerLinked emits player.linked when an exact match is linked to a team
func (e *Emitter) EmitPlayerLinked(ctx context.Context, match models.MatchResult, teamID int64, jersey *int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPlayerLinked")
	defer span.End()

	event := matchEvent(EventTypePlayerLinked, match)
	event.TeamID = &teamID
	event.JerseyNumber = jersey
	return e.emit(ctx, event)
}

// EmitDuplicateFlagged emits player.duplicate_flagged for a potential duplicate held back from creation
func (e *Emitter) EmitDuplicateFlagged(ctx context.Context, match models.MatchResult, teamID int64) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDuplicateFlagged")
	defer span.End()

	event := matchEvent(EventTypePlayerDuplicateFlagged, match)
	event.TeamID = &teamID
	return e.emit(ctx, event)
}

// EmitPlayerMerged emits player.merged after duplicateID was folded into targetID
func (e *Emitter) EmitPlayerMerged(ctx context.Context, duplicateID, targetID int64) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPlayerMerged")
	defer span.End()

	return e.emit(ctx, &kafka.PlayerEvent{
		EventType:      string(EventTypePlayerMerged),
		PlayerID:       targetID,
		MergedPlayerID: &duplicateID,
	})
}

func matchEvent(eventType EventType, match models.MatchResult) *kafka.PlayerEvent {
	event := &kafka.PlayerEvent{
		EventType:       string(eventType),
		MatchType:       string(match.MatchType),
		SimilarityScore: match.SimilarityScore,
		MatchedFields:   match.MatchedFields,
	}
	if match.Player != nil {
		event.PlayerID = match.Player.ID
		id := match.Player.ID
		event.MatchedPlayerID = &id
	}
	return event
}

func (e *Emitter) emit(ctx context.Context, event *kafka.PlayerEvent) error {
	if err := e.publisher.PublishPlayerEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", event.EventType)
		return err
	}
	return nil
}
