package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

type completer interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

// Summarizer produces channel posts through the chat client, rotating API keys on quota errors.
type Summarizer struct {
	client   completer
	keys     *KeyPool
	backoff  time.Duration
	template string
	sleep    func(ctx context.Context, d time.Duration) error
	log      zerolog.Logger
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer wires the client with a key pool. backoff is the pause before retrying on the next key.
func NewSummarizer(client completer, keys *KeyPool, backoff time.Duration, template string, log zerolog.Logger) *Summarizer {
	return &Summarizer{
		client:   client,
		keys:     keys,
		backoff:  backoff,
		template: template,
		sleep:    sleepContext,
		log:      log,
	}
}

// Begin starts a new run from the primary key.
func (s *Summarizer) Begin() {
	s.keys.Reset()
}

// Summarize makes at most one call per configured key.
func (s *Summarizer) Summarize(ctx context.Context, articleURL string) (string, error) {
	total := s.keys.Len()
	if total == 0 {
		return "", fmt.Errorf("%w: no api keys configured", domain.ErrTransformUnavailable)
	}

	prompt := buildPrompt(s.template, articleURL)
	for attempt := 1; attempt <= total; attempt++ {
		key, idx := s.keys.Current()
		reply, err := s.client.Complete(ctx, key, prompt)
		if err == nil {
			return interpretReply(reply)
		}

		if !IsQuotaExhausted(err) {
			return "", fmt.Errorf("%w: %w", domain.ErrTransformUnavailable, err)
		}

		next := s.keys.Advance()
		s.log.Warn().Err(err).Int("key", idx).Int("next_key", next).Int("attempt", attempt).Msg("api key exhausted, rotating")

		if attempt == total {
			break
		}
		if err := s.sleep(ctx, s.backoff); err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrTransformUnavailable, err)
		}
	}

	return "", fmt.Errorf("%w: all %d api keys exhausted", domain.ErrTransformUnavailable, total)
}

func interpretReply(reply string) (string, error) {
	text := strings.TrimSpace(reply)
	switch text {
	case notRelevantReply:
		return "", domain.ErrNotRelevant
	case "":
		return "", fmt.Errorf("%w: empty completion", domain.ErrTransformUnavailable)
	}
	return text, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
