package runtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hexgame/gamecore/internal/session"
)

type wireEvent struct {
	Type    string          `json:"type"`
	Session json.RawMessage `json:"session"`
}

// RedisBroadcaster publishes round-advanced/session-concluded events to
// a session's topic "session:<session_id>" (spec.md §6). Publishing is
// best-effort and never blocks a command reply.
type RedisBroadcaster struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBroadcaster(client *redis.Client, log *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, log: log}
}

func (b *RedisBroadcaster) publish(sessionID, eventType string, s session.Session) {
	body, err := json.Marshal(s)
	if err != nil {
		b.log.Warn("broadcast: failed to encode session", zap.Error(err))
		return
	}
	payload, err := json.Marshal(wireEvent{Type: eventType, Session: body})
	if err != nil {
		b.log.Warn("broadcast: failed to encode envelope", zap.Error(err))
		return
	}
	go func() {
		if err := b.client.Publish(context.Background(), "session:"+sessionID, payload).Err(); err != nil {
			b.log.Warn("broadcast: publish failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
}

func (b *RedisBroadcaster) PublishRoundAdvanced(sessionID string, s session.Session) {
	b.publish(sessionID, "round-advanced", s)
}

func (b *RedisBroadcaster) PublishSessionConcluded(sessionID string, s session.Session) {
	b.publish(sessionID, "session-concluded", s)
}
