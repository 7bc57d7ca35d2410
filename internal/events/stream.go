package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/flipscout/internal/logger"
)

// StreamHandler returns a Gin handler that streams broker events to a live
// connection as newline-delimited typed text events. An initial ping is sent
// immediately on connect to confirm liveness, then periodic pings follow.
func StreamHandler(broker *Broker, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		setStreamHeaders(c.Writer)
		c.Writer.Flush()

		eventChan, cleanup := broker.Subscribe(c.Request.Context())
		defer cleanup()

		if err := writeEvent(c.Writer, NewPingEvent()); err != nil {
			log.Error("Failed to write initial ping", logger.Error(err))
			return
		}

		log.Debug("Live client connected", logger.String("remote_addr", c.ClientIP()))

		ticker := time.NewTicker(broker.HeartbeatInterval())
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-eventChan:
				if !ok {
					log.Debug("Event channel closed")
					return
				}
				if err := writeEvent(c.Writer, event); err != nil {
					log.Debug("Live client write failed",
						logger.Error(err),
						logger.String("event_type", event.Type),
					)
					return
				}
			case <-ticker.C:
				if err := writeEvent(c.Writer, NewPingEvent()); err != nil {
					log.Debug("Heartbeat failed, client gone")
					return
				}
			case <-c.Request.Context().Done():
				log.Debug("Live client disconnected")
				return
			}
		}
	}
}

func setStreamHeaders(w gin.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// writeEvent writes one typed event frame: event name line, JSON data line,
// blank line.
func writeEvent(w gin.ResponseWriter, event Event) error {
	payload, marshalErr := json.Marshal(event.Data)
	if marshalErr != nil {
		return fmt.Errorf("marshal event data: %w", marshalErr)
	}

	if _, writeErr := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); writeErr != nil {
		return fmt.Errorf("write event: %w", writeErr)
	}

	w.Flush()
	return nil
}
