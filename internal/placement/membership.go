package placement

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	heartbeatKeyPrefix = "cluster:node:"
	membershipChannel  = "cluster:membership"
)

// MembershipEvent is published on membershipChannel whenever a node's
// presence changes (spec.md §4.5 "report up/down events to PRS").
type MembershipEvent struct {
	NodeID string `json:"node_id"`
	Up     bool   `json:"up"`
}

// Membership tracks live cluster nodes via Redis key TTLs and mirrors
// them onto a Ring, the way the reference coordinator sketch tracks
// node health through periodic heartbeats rather than a push protocol.
type Membership struct {
	client      *redis.Client
	nodeID      string
	heartbeat   time.Duration
	log         *zap.Logger
	ring        *Ring
	onNodeDown  func(nodeID string)
}

func NewMembership(client *redis.Client, nodeID string, heartbeat time.Duration, ring *Ring, log *zap.Logger) *Membership {
	return &Membership{
		client:    client,
		nodeID:    nodeID,
		heartbeat: heartbeat,
		log:       log,
		ring:      ring,
	}
}

// OnNodeDown registers a callback invoked when this node observes a peer
// expire or announce its departure. The callback only receives the node
// id; nothing here restarts the sessions the departed node owned, and
// cmd/gamecored registers a callback that only logs the departure.
func (m *Membership) OnNodeDown(fn func(nodeID string)) {
	m.onNodeDown = fn
}

// Run heartbeats this node's own key and subscribes to membership
// events, rebuilding the Ring as nodes join and leave. Blocks until ctx
// is cancelled.
func (m *Membership) Run(ctx context.Context) error {
	m.ring.AddNode(m.nodeID)
	if err := m.beat(ctx); err != nil {
		return err
	}
	if err := m.publish(ctx, MembershipEvent{NodeID: m.nodeID, Up: true}); err != nil {
		m.log.Warn("failed to publish node-up", zap.Error(err))
	}

	sub := m.client.Subscribe(ctx, membershipChannel)
	defer sub.Close()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	scanTicker := time.NewTicker(m.heartbeat * 3)
	defer scanTicker.Stop()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = m.publish(context.Background(), MembershipEvent{NodeID: m.nodeID, Up: false})
			return ctx.Err()
		case <-ticker.C:
			if err := m.beat(ctx); err != nil {
				m.log.Warn("heartbeat failed", zap.Error(err))
			}
		case <-scanTicker.C:
			m.reconcile(ctx)
		case msg := <-msgs:
			m.handleMessage(msg)
		}
	}
}

func (m *Membership) beat(ctx context.Context) error {
	return m.client.Set(ctx, heartbeatKeyPrefix+m.nodeID, "1", m.heartbeat*3).Err()
}

func (m *Membership) publish(ctx context.Context, ev MembershipEvent) error {
	return m.client.Publish(ctx, membershipChannel, encodeEvent(ev)).Err()
}

// reconcile is the fallback path for missed pubsub messages: re-derive
// membership from which heartbeat keys are currently present, removing
// any ring member whose key expired.
func (m *Membership) reconcile(ctx context.Context) {
	for _, nodeID := range m.ring.Members() {
		if nodeID == m.nodeID {
			continue
		}
		exists, err := m.client.Exists(ctx, heartbeatKeyPrefix+nodeID).Result()
		if err != nil {
			m.log.Warn("membership reconcile check failed", zap.String("node", nodeID), zap.Error(err))
			continue
		}
		if exists == 0 {
			m.ring.RemoveNode(nodeID)
			if m.onNodeDown != nil {
				m.onNodeDown(nodeID)
			}
		}
	}
}

func (m *Membership) handleMessage(msg *redis.Message) {
	ev, err := decodeEvent(msg.Payload)
	if err != nil {
		m.log.Warn("malformed membership event", zap.Error(err))
		return
	}
	if ev.NodeID == m.nodeID {
		return
	}
	if ev.Up {
		m.ring.AddNode(ev.NodeID)
		return
	}
	m.ring.RemoveNode(ev.NodeID)
	if m.onNodeDown != nil {
		m.onNodeDown(ev.NodeID)
	}
}
