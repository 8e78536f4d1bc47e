package streampub

import (
	"context"
	"encoding/json"
	"matchlobby/internal/services/session"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stream is the redis stream every session transition is appended to.
const Stream = "session_events"

const (
	defaultBuffer = 1024
	streamMaxLen  = 100_000
	xaddTimeout   = 2 * time.Second
)

// Publisher appends registry events to a redis stream. Record never blocks:
// events are queued and written by Run.
type Publisher struct {
	rdc   *redis.Client
	queue chan session.Event
}

var _ session.Recorder = (*Publisher)(nil)

func New(rdc *redis.Client, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Publisher{
		rdc:   rdc,
		queue: make(chan session.Event, buffer),
	}
}

func (p *Publisher) Record(ev session.Event) {
	select {
	case p.queue <- ev:
	default:
		zap.L().Warn("streampub.queue_full",
			zap.String("session", ev.SessionID),
			zap.String("kind", string(ev.Kind)),
		)
	}
}

// Run drains the queue until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			if err := p.publish(ctx, ev); err != nil {
				zap.L().Warn("streampub.xadd", zap.String("session", ev.SessionID), zap.Error(err))
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev session.Event) error {
	ctx, cancel := context.WithTimeout(ctx, xaddTimeout)
	defer cancel()
	return p.rdc.XAdd(ctx, xaddArgs(ev)).Err()
}

func xaddArgs(ev session.Event) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: Stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: encode(ev),
	}
}

// encode flattens an event into stream field/value pairs.
func encode(ev session.Event) []interface{} {
	players, _ := json.Marshal(ev.Players)
	return []interface{}{
		"kind", string(ev.Kind),
		"sid", ev.SessionID,
		"identity", ev.Identity,
		"variant", string(ev.Variant),
		"players", string(players),
		"move", strconv.Itoa(ev.CurrentMove),
		"reason", ev.Reason,
		"at", strconv.FormatInt(ev.At.UnixMilli(), 10),
	}
}
