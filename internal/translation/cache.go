// Package translation translates paper summaries for chat replies, with a
// shared memo keyed by the resolved credential rather than the requester.
package translation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/helixir/paperbot/internal/cache"
)

// DefaultTargetLang is used when Translate is called without a language.
const DefaultTargetLang = "JA"

// Provider calls an external translation service.
type Provider interface {
	Translate(ctx context.Context, authKey, text, targetLang string) (string, error)
}

// FailureRecorder is notified when a translation falls back.
// observability.Metrics satisfies it.
type FailureRecorder interface {
	RecordTranslationFailed()
}

type nopFailureRecorder struct{}

func (nopFailureRecorder) RecordTranslationFailed() {}

// Cache memoizes provider translations. Requesters that share a credential
// share entries.
type Cache struct {
	provider    Provider
	credentials CredentialResolver
	memo        *cache.Memo[cache.Key, string]
	recorder    FailureRecorder
	logger      zerolog.Logger
}

// NewCache creates a translation Cache. recorder may be nil.
func NewCache(provider Provider, credentials CredentialResolver, memo *cache.Memo[cache.Key, string], recorder FailureRecorder, logger zerolog.Logger) *Cache {
	if recorder == nil {
		recorder = nopFailureRecorder{}
	}
	return &Cache{
		provider:    provider,
		credentials: credentials,
		memo:        memo,
		recorder:    recorder,
		logger:      logger.With().Str("component", "translation").Logger(),
	}
}

// Translate returns text in targetLang. The second return value is false
// when no credential resolves for requesterID or the provider fails; the
// caller then keeps the original text. Failures are logged and never cached.
func (c *Cache) Translate(ctx context.Context, requesterID, text, targetLang string) (string, bool) {
	if targetLang == "" {
		targetLang = DefaultTargetLang
	}

	authKey, ok := c.credentials.Resolve(requesterID)
	if !ok {
		c.logger.Debug().Str("requester", requesterID).Msg("no translation credential; keeping original text")
		return "", false
	}

	key := cache.Fingerprint(authKey, text, targetLang)
	translated := c.memo.Load(key, func() (string, bool) {
		out, err := c.provider.Translate(ctx, authKey, text, targetLang)
		if err != nil {
			c.recorder.RecordTranslationFailed()
			c.logger.Warn().
				Err(err).
				Str("target_lang", targetLang).
				Int("text_len", len(text)).
				Msg("translation failed; keeping original text")
			return "", false
		}
		return out, true
	})
	if translated == "" {
		return "", false
	}
	return translated, true
}
