package analyzer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
	"github.com/BerylCAtieno/agreement-analyzer/internal/utils"
)

// State is a step of a single analysis run. States are logged, never returned.
type State string

const (
	StateIdle               State = "idle"
	StatePromptBuilt        State = "prompt_built"
	StateRequested          State = "requested"
	StateSucceeded          State = "succeeded"
	StateRecoverableFailure State = "recoverable_failure"
	StateFatalFailure       State = "fatal_failure"
)

type Orchestrator struct {
	client      Completer
	legalSystem string
	logger      *utils.Logger
}

type OrchestratorOption func(*Orchestrator)

// WithLegalSystem sets the country whose law the model is asked to apply.
func WithLegalSystem(country string) OrchestratorOption {
	return func(o *Orchestrator) {
		if country != "" {
			o.legalSystem = country
		}
	}
}

func WithLogger(logger *utils.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewOrchestrator(client Completer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client:      client,
		legalSystem: DefaultLegalSystem,
		logger:      utils.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type run struct {
	o     *Orchestrator
	state State
	start time.Time
}

func (r *run) to(next State, args ...any) {
	args = append([]any{"from", r.state, "to", next}, args...)
	r.o.logger.Debug("analysis.transition", args...)
	r.state = next
}

func (r *run) fail(err *Error) *Error {
	next := StateRecoverableFailure
	if !err.Recoverable {
		next = StateFatalFailure
	}
	r.to(next, "kind", err.Kind)
	r.o.logger.Warn("analysis.failed",
		"kind", err.Kind,
		"error", err.Err,
		"duration_ms", time.Since(r.start).Milliseconds())
	return err
}

// Analyze runs one analysis. It calls the Completer at most once and either
// returns a complete result or an *Error.
func (o *Orchestrator) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	r := &run{o: o, state: StateIdle, start: time.Now()}

	if strings.TrimSpace(req.Text) == "" {
		return nil, r.fail(newError(KindEmptyDocument, nil))
	}

	prompt, err := BuildPrompt(req, o.legalSystem)
	if err != nil {
		return nil, r.fail(newError(KindUnknown, err))
	}
	r.to(StatePromptBuilt,
		"prompt_chars", len(prompt),
		"findings", len(req.Findings.Findings),
		"preliminary_score", req.Findings.PreliminaryScore)

	r.to(StateRequested)
	completion, err := o.client.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, r.fail(newError(KindTimeout, err))
		}
		return nil, r.fail(newError(classifyClientError(err), err))
	}
	if completion == nil {
		return nil, r.fail(newError(KindUnknown, errors.New("empty completion")))
	}

	if completion.Blocked {
		return nil, r.fail(newError(KindContentBlocked, errors.New(completion.BlockReason)))
	}

	result, changed, err := parseResult(completion.Text)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			return nil, r.fail(ae)
		}
		return nil, r.fail(newError(KindMalformedResponse, err))
	}
	if len(changed) > 0 {
		o.logger.Debug("analysis.sanitized", "fields", changed)
	}

	r.to(StateSucceeded,
		"rating_score", result.RatingScore,
		"rating_text", result.RatingText,
		"duration_ms", time.Since(r.start).Milliseconds())
	return result, nil
}
