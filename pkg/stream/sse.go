package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HatiCode/healthwatch/pkg/events"
)

// SSEHandler streams the given topics as Server-Sent Events. Every frame is
// a single "data:" line carrying a JSON envelope. The first frame is the
// connected envelope. Idle connections receive a comment line every
// KeepAlive; there is no server-side idle timeout.
func (m *Manager) SSEHandler(topics ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache, no-transform")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ctx := r.Context()
		session := m.Open(ctx, TransportSSE, topics...)
		defer m.Close(session)

		if _, err := fmt.Fprintf(w, "data: %s\n\nretry: %d\n\n", connectedFrame, RetryMillis); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(m.opts.KeepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				return
			case env := <-session.Events():
				data, err := json.Marshal(env)
				if err != nil {
					m.logger.Error().Err(err).Str("type", env.Type).Msg("Failed to encode event")
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					m.logger.Debug().Err(err).Str("session", session.ID()).Msg("SSE write failed")
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}

var connectedFrame = mustJSON(events.Connected())

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
