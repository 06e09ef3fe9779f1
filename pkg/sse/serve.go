package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// keep-alive must fire more often than typical proxy idle timeouts (60s)
const keepAliveInterval = 30 * time.Second

// Serve streams hub events to a registered client until the request context
// is done. The caller registers the client and handles roster bookkeeping;
// Serve unregisters on exit.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request, client *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE connections are long-lived; the server write timeout must not kill them.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Warn().Err(err).Str("connection_id", client.ID()).Msg("could not disable write deadline")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = fmt.Fprintf(w, "event: connected\ndata: {\"connectionId\":%q}\n\n", client.ID())
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	defer hub.Unregister(client)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-client.Events():
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}
