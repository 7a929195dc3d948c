package moonraker

import (
	"context"
	"time"

	"ravensperch/internal/logging"
)

// Detect tries candidateURLs in order and returns a Client bound to the
// first one that answers a liveness call (§4.7's "Endpoint discovery").
// candidateURLs should be the configured URL followed by the fallback list.
func Detect(ctx context.Context, candidateURLs []string, callTimeout time.Duration) *Client {
	log := logging.Component("moonraker")
	for _, url := range candidateURLs {
		c := NewClient(url, callTimeout)
		if c.Available(ctx) {
			log.Info().Str("url", url).Msg("detected moonraker")
			return c
		}
	}
	log.Warn().Msg("could not detect moonraker at any candidate url")
	return nil
}
