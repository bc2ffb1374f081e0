package classifier

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/plazachat/vigil/moderation"
)

// Messages at or under this rune count are never sent to a provider; they
// are overwhelmingly greetings and acknowledgements, and classifying them
// wastes a network round trip.
const TrivialMaxLen = 3

const DefaultProviderTimeout = 8 * time.Second

// Gateway tries an ordered list of providers until one responds with a
// parsable verdict.
type Gateway struct {
	Logger    *slog.Logger
	Providers []Classifier
	// per-provider call budget; one timeout advances the chain, it does not
	// cancel the whole evaluation
	ProviderTimeout time.Duration
	// optional shedding under burst; a shed call counts as fail-open safe
	Limiter *rate.Limiter
}

func NewGateway(logger *slog.Logger, providers ...Classifier) *Gateway {
	return &Gateway{
		Logger:          logger.With("system", "classifier"),
		Providers:       providers,
		ProviderTimeout: DefaultProviderTimeout,
	}
}

func (g *Gateway) Classify(ctx context.Context, text string) *moderation.Verdict {
	if utf8.RuneCountInString(strings.TrimSpace(text)) <= TrivialMaxLen {
		gatewaySkipCount.WithLabelValues("trivial").Inc()
		return moderation.SafeVerdict()
	}
	if len(g.Providers) == 0 {
		gatewaySkipCount.WithLabelValues("unconfigured").Inc()
		return moderation.SafeVerdict()
	}
	if g.Limiter != nil && !g.Limiter.Allow() {
		gatewaySkipCount.WithLabelValues("shed").Inc()
		g.Logger.Debug("classifier call shed by rate limit")
		return moderation.SafeVerdict()
	}

	for _, provider := range g.Providers {
		verdict := g.tryProvider(ctx, provider, text)
		if verdict != nil {
			return verdict
		}
	}

	gatewayFailOpenCount.Inc()
	g.Logger.Warn("all classifier providers failed, failing open")
	return moderation.SafeVerdict()
}

// one attempt against one provider; nil means advance the chain
func (g *Gateway) tryProvider(ctx context.Context, provider Classifier, text string) *moderation.Verdict {
	timeout := g.ProviderTimeout
	if timeout == 0 {
		timeout = DefaultProviderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	verdict, err := provider.Classify(ctx, text)
	duration := time.Since(start)
	providerRequestDuration.WithLabelValues(provider.Name()).Observe(duration.Seconds())

	if err != nil {
		providerRequestCount.WithLabelValues(provider.Name(), "error").Inc()
		g.Logger.Debug("classifier provider failed, advancing",
			"provider", provider.Name(),
			"err", err,
			"duration", duration,
		)
		return nil
	}

	providerRequestCount.WithLabelValues(provider.Name(), "ok").Inc()
	g.Logger.Debug("classifier verdict",
		"provider", provider.Name(),
		"safe", verdict.Safe,
		"duration", duration,
	)
	return verdict
}
