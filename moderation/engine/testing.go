package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/plazachat/vigil/moderation"
	"github.com/plazachat/vigil/moderation/audit"
	"github.com/plazachat/vigil/moderation/cachestore"
	"github.com/plazachat/vigil/moderation/classifier"
	"github.com/plazachat/vigil/moderation/escalation"
	"github.com/plazachat/vigil/moderation/spam"
)

// fixed-verdict classifier for tests
type staticClassifier struct {
	name    string
	verdict *moderation.Verdict
	err     error
}

func (s *staticClassifier) Name() string { return s.name }

func (s *staticClassifier) Classify(ctx context.Context, text string) (*moderation.Verdict, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.verdict, nil
}

// Engine with all in-memory backends and the given classifier providers.
func EngineTestFixture(providers ...classifier.Classifier) *Engine {
	logger := slog.Default()
	cache := cachestore.NewMemCacheStore(100, time.Hour)
	return &Engine{
		Logger:      logger,
		Spam:        spam.NewTracker(spam.DefaultConfig()),
		Classifiers: classifier.NewGateway(logger, providers...),
		States:      escalation.NewEscalator(logger, escalation.NewMemStateStore(), cache),
		Audit:       audit.NewMemStore(),
	}
}
