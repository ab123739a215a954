package analyzer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iyulab/cyber-defense/internal/event"
)

// Observer receives pipeline outcomes. The server implements it with
// Prometheus counters.
type Observer interface {
	AnalysisCompleted(source Source)
	ChatAnswered(route string)
	GatewayFailed(kind string)
}

type nopObserver struct{}

func (nopObserver) AnalysisCompleted(Source) {}
func (nopObserver) ChatAnswered(string)      {}
func (nopObserver) GatewayFailed(string)     {}

// Analyzer runs threat assessment and chat over record batches.
type Analyzer struct {
	provider  Provider
	responder *Responder
	logger    *zap.Logger
	observer  Observer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) { a.observer = o }
}

// New creates an Analyzer. A nil provider means heuristics only.
func New(provider Provider, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider: provider,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.responder = NewResponder(provider)
	a.responder.onError = func(err error) { a.gatewayFailed("chat", err) }
	return a
}

// HasProvider reports whether a gateway is configured.
func (a *Analyzer) HasProvider() bool {
	return a.provider != nil
}

// Analyze produces a threat assessment. It never fails: gateway and parse
// errors fall back to Classify.
func (a *Analyzer) Analyze(ctx context.Context, records []event.Record) Assessment {
	if len(records) == 0 {
		a.observer.AnalysisCompleted(SourceEmpty)
		return EmptyAssessment()
	}

	start := time.Now()
	stats := Summarize(records)

	assessment, source := a.assess(ctx, records, stats)

	a.observer.AnalysisCompleted(source)
	a.logger.Info("analysis complete",
		zap.String("source", string(source)),
		zap.Int("records", len(records)),
		zap.String("severity", assessment.SeverityClassification),
		zap.Duration("duration", time.Since(start)),
	)
	return assessment
}

func (a *Analyzer) assess(ctx context.Context, records []event.Record, stats Statistics) (Assessment, Source) {
	if a.provider == nil {
		return Classify(stats), SourceFallback
	}

	prompt := BuildAnalysisPrompt(stats, FormatRecords(records, DefaultDigestLimit))
	resp, err := a.provider.Generate(ctx, prompt)
	if err != nil {
		a.gatewayFailed("analysis", err)
		return Classify(stats), SourceFallback
	}

	text, err := ExtractText(resp)
	if err != nil || text == "" {
		if err == nil {
			err = ErrNoCandidates
		}
		a.gatewayFailed("analysis", err)
		return Classify(stats), SourceFallback
	}

	assessment, source := ParseAssessment(text, len(records))
	if !event.ValidSeverity(assessment.SeverityClassification) {
		a.logger.Debug("gateway severity out of range, using heuristic",
			zap.String("severity", assessment.SeverityClassification))
		assessment.SeverityClassification = ClassifySeverity(stats)
	}
	return assessment, source
}

// Chat answers an analyst question over the given context records.
func (a *Analyzer) Chat(ctx context.Context, question string, records []event.Record) ChatResult {
	result := a.responder.Respond(ctx, question, records)
	a.observer.ChatAnswered(result.Route)
	a.logger.Debug("chat answered",
		zap.String("route", result.Route),
		zap.Int("context_records", len(records)),
	)
	return result
}

func (a *Analyzer) gatewayFailed(op string, err error) {
	kind := errorKind(err)
	a.observer.GatewayFailed(kind)
	a.logger.Warn("gateway call failed, using local analysis",
		zap.String("op", op),
		zap.String("kind", kind),
		zap.Error(err),
	)
}
