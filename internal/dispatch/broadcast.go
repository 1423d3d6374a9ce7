package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ShayCichocki/crew/internal/logging"
)

// Broadcaster mirrors lifecycle events to a remote status service. Delivery
// is advisory: failures are logged and never affect the pipeline.
type Broadcaster struct {
	url    string
	client *http.Client
	log    *logging.Logger
}

// NewBroadcaster creates a broadcaster posting to url. An empty url yields a
// nil broadcaster, which is safe to call.
func NewBroadcaster(url string) *Broadcaster {
	if url == "" {
		return nil
	}
	return &Broadcaster{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    logging.Component("broadcast"),
	}
}

// Send posts one event as JSON. Safe on a nil receiver.
func (b *Broadcaster) Send(event Event) {
	if b == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		b.log.Errorf("marshal event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		b.log.Errorf("build broadcast request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Warnf("broadcast failed: %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		b.log.Warnf("broadcast rejected: status %d", resp.StatusCode)
	}
}
