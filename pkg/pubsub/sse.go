package pubsub

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteSSE writes event as one Server-Sent Events message. The version
// becomes the message id so clients can tell whether they missed events.
func WriteSSE(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, payload)
	return err
}
