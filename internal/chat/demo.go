package chat

import (
	"context"
	"time"

	"github.com/chatdeck/chatdeck/pkg/metrics"
)

// demoDisclaimer is appended to every canned response so demo mode is never
// mistaken for a real assistant reply.
const demoDisclaimer = "\n\n**Note:** This is a demo response. To connect your assistant backend, set WEBHOOK_URL in your .env file. See the README for setup instructions."

var demoResponses = []string{
	"I understand your question. Let me provide you with a comprehensive answer that addresses the key points you've raised.",
	"That's an interesting perspective! Here's what I think about that topic based on current knowledge.",
	"I can help you with that. Let me break this down into clear, actionable steps.",
	"Thank you for your question. Here's a detailed response that should cover what you're looking for.",
	"Great question! This is actually a complex topic, so let me explain it thoroughly.",
}

// demoReply simulates an assistant when no endpoint is configured: a 1-3 s
// randomized delay, then one canned string plus the disclaimer. The delay
// honors context cancellation so Stop works in demo mode too.
func (s *Store) demoReply(ctx context.Context) (string, error) {
	delay := time.Second + time.Duration(s.rng.Int63n(int64(2*time.Second)))
	if err := s.sleep(ctx, delay); err != nil {
		return "", err
	}

	metrics.DemoResponsesTotal.Inc()
	return demoResponses[s.rng.Intn(len(demoResponses))] + demoDisclaimer, nil
}
