package heartbeat

import (
	"context"
	"time"

	"camlib-go/bus"
	"camlib-go/types"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

const defaultInterval = 5 * time.Second

func cameraTopic(name string, tail ...any) bus.Topic {
	return bus.T("hal", "cap", types.DomainVision, string(types.KindCamera), name).Append(tail...)
}

// Service prints a periodic liveness line and asks each configured camera
// for its capture stats, printing the replies as they arrive.
type Service struct {
	cameras []string
	stats   []*bus.Subscription
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	defer s.unwatch(conn)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()
	reports := make(chan report, 4)

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case t := <-tick.C:
			println("[heartbeat]", t.Format("15:04:05"))
			for _, name := range s.cameras {
				conn.Publish(conn.NewMessage(cameraTopic(name, "control", "stats"), nil, false))
			}
		case msg := <-cfgSub.Channel():
			m, ok := msg.Payload.(map[string]any)
			if !ok {
				continue
			}
			if iv, ok := m["interval"].(float64); ok && iv > 0 {
				tick.Reset(time.Duration(iv * float64(time.Second)))
				println("[heartbeat] interval set to", int(iv), "seconds")
			}
			if cams, ok := m["cameras"].([]any); ok {
				s.watch(ctx, conn, cams, reports)
			}
		case r := <-reports:
			println("[heartbeat]", r.name, "captures", r.st.Captures, "timeouts", r.st.Timeouts,
				"last_ms", r.st.LastMs, "configured", r.st.Configured)
		}
	}
}

type report struct {
	name string
	st   types.CaptureStats
}

// watch replaces the camera list and forwards their stats events.
func (s *Service) watch(ctx context.Context, conn *bus.Connection, cams []any, out chan<- report) {
	s.unwatch(conn)
	for _, c := range cams {
		name, ok := c.(string)
		if !ok || name == "" {
			continue
		}
		sub := conn.Subscribe(cameraTopic(name, "event", "stats"))
		s.cameras = append(s.cameras, name)
		s.stats = append(s.stats, sub)
		go func(name string, sub *bus.Subscription) {
			// Ends when unwatch closes the channel.
			for m := range sub.Channel() {
				st, ok := m.Payload.(types.CaptureStats)
				if !ok {
					continue
				}
				select {
				case out <- report{name: name, st: st}:
				case <-ctx.Done():
					return
				}
			}
		}(name, sub)
	}
}

func (s *Service) unwatch(conn *bus.Connection) {
	for _, sub := range s.stats {
		conn.Unsubscribe(sub)
	}
	s.cameras, s.stats = nil, nil
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
