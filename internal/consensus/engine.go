package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/etzlertech/rancheye-02-analysis/internal/analysis"
	"github.com/etzlertech/rancheye-02-analysis/internal/cache"
	"github.com/etzlertech/rancheye-02-analysis/internal/llm"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/metrics"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/telemetry"
	"github.com/etzlertech/rancheye-02-analysis/internal/shared/util"
	"github.com/etzlertech/rancheye-02-analysis/internal/usage"
)

// ErrNoAdapter is returned when a configured provider has no registered adapter.
var ErrNoAdapter = errors.New("no adapter for provider")

// LogSink persists individual provider calls.
type LogSink interface {
	SaveAnalysisLog(ctx context.Context, log analysis.CallLog) error
}

// Input is everything the engine needs for one task.
type Input struct {
	Task      analysis.Task
	Config    analysis.Config
	Meta      analysis.ImageMetadata
	Image     []byte
	ImageHash string
}

// Outcome is the reconciled answer for one task plus the individual calls behind it.
type Outcome struct {
	SessionID       string
	Primary         *llm.Result
	Secondary       *llm.Result
	Tiebreaker      *llm.Result
	Final           map[string]any
	FinalConfidence float64
	Agreement       bool
	TiebreakerUsed  bool
	TotalTokens     int
}

// Engine runs the primary/secondary/tiebreaker protocol for a task.
// Provider failures are carried on the results; Run only errors when a
// configured provider has no adapter.
type Engine struct {
	Registry *llm.Registry
	Cache    *cache.Service
	Tracker  *usage.Tracker
	Logs     LogSink
	Now      func() time.Time
}

// New constructs an Engine over the processor's registry.
func New(registry *llm.Registry, results *cache.Service, tracker *usage.Tracker, logs LogSink) *Engine {
	return &Engine{Registry: registry, Cache: results, Tracker: tracker, Logs: logs, Now: time.Now}
}

// Run analyzes the task's image under its config. Every call is logged before Run returns.
func (e *Engine) Run(ctx context.Context, in Input) (Outcome, error) {
	cfg := in.Config
	out := Outcome{SessionID: uuid.NewString()}
	prompt := WithContext(in.Meta, cfg.PromptTemplate)

	primary, err := e.call(ctx, in, out.SessionID, analysis.RolePrimary, cfg.Primary, prompt, true)
	if err != nil {
		return Outcome{}, err
	}
	out.Primary = &primary
	out.TotalTokens += primary.TotalTokens

	if cfg.Secondary == nil {
		out.finalize(primary, true, false)
		return out, nil
	}

	secondary, err := e.call(ctx, in, out.SessionID, analysis.RoleSecondary, *cfg.Secondary, prompt, true)
	if err != nil {
		return Outcome{}, err
	}
	out.Secondary = &secondary
	out.TotalTokens += secondary.TotalTokens

	// Failed calls carry an error payload without the compared fields, so two
	// failures agree and skip the tiebreaker.
	if analysis.Agree(cfg.Type, primary.Data, secondary.Data) {
		out.finalize(primary, true, false)
		return out, nil
	}

	if cfg.Tiebreaker != nil {
		tbPrompt := WithContext(in.Meta, TiebreakerPrompt(cfg.PromptTemplate, primary.Data, secondary.Data))
		tiebreaker, err := e.call(ctx, in, out.SessionID, analysis.RoleTiebreaker, *cfg.Tiebreaker, tbPrompt, false)
		if err != nil {
			return Outcome{}, err
		}
		out.Tiebreaker = &tiebreaker
		out.TotalTokens += tiebreaker.TotalTokens
		out.finalize(tiebreaker, false, true)
		return out, nil
	}

	if secondary.Confidence > primary.Confidence {
		out.finalize(secondary, false, false)
	} else {
		out.finalize(primary, false, false)
	}
	return out, nil
}

func (o *Outcome) finalize(from llm.Result, agreement, tiebreaker bool) {
	o.Final = from.Data
	o.FinalConfidence = from.Confidence
	o.Agreement = agreement
	o.TiebreakerUsed = tiebreaker
}

// call performs one provider call. Tiebreaker calls skip the cache because
// their prompt embeds the earlier answers.
func (e *Engine) call(ctx context.Context, in Input, sessionID, role string, ref analysis.ModelRef, prompt string, cacheable bool) (llm.Result, error) {
	adapter, ok := e.Registry.Get(ref.Provider)
	if !ok {
		return llm.Result{}, fmt.Errorf("%w: %s (%s)", ErrNoAdapter, ref.Provider, role)
	}
	req := llm.Request{
		Image:           in.Image,
		Prompt:          prompt,
		Model:           ref.Model,
		Temperature:     llm.DefaultTemperature,
		MaxOutputTokens: ref.Provider.MaxOutputTokens(),
	}
	key := cache.Key{
		ImageHash:    in.ImageHash,
		AnalysisType: string(in.Config.Type),
		Provider:     ref.Provider,
		Model:        ref.Model,
	}

	var res llm.Result
	hit := false
	if cacheable {
		if entry, found := e.Cache.Lookup(ctx, key); found {
			res = llm.Result{
				Provider:   ref.Provider,
				Model:      ref.Model,
				Data:       entry.Data,
				Confidence: entry.Confidence,
				CacheHit:   true,
			}
			hit = true
		}
	}
	if !hit {
		res = adapter.Analyze(ctx, req)
		if res.Provider == "" {
			res.Provider = ref.Provider
		}
		if res.Model == "" {
			res.Model = ref.Model
		}
		if cacheable && res.OK() {
			e.Cache.Store(ctx, key, res.Data, res.Confidence)
		}
	}

	outcome := "ok"
	switch {
	case res.CacheHit:
		outcome = "cache_hit"
	case !res.OK():
		outcome = "error"
	}
	metrics.IncProviderCall(string(ref.Provider), outcome)
	cost := e.Tracker.Record(ctx, res)

	fields := map[string]any{
		"task_id":    in.Task.ID,
		"session_id": sessionID,
		"role":       role,
		"provider":   ref.Provider,
		"model":      ref.Model,
		"outcome":    outcome,
		"confidence": res.Confidence,
		"tokens":     res.TotalTokens,
		"latency_ms": res.Latency.Milliseconds(),
	}
	if res.Err != nil {
		fields["error"] = util.SanitizeError(res.Err)
		telemetry.Warn("consensus.call", fields)
	} else {
		telemetry.Info("consensus.call", fields)
	}

	e.saveLog(ctx, analysis.CallLog{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		TaskID:        in.Task.ID,
		ImageID:       in.Task.ImageID,
		ConfigID:      in.Config.ID,
		Role:          role,
		Provider:      ref.Provider,
		Model:         ref.Model,
		Prompt:        prompt,
		CustomPrompt:  role == analysis.RoleTiebreaker,
		Raw:           res.Raw,
		Parsed:        res.Data,
		Confidence:    res.Confidence,
		InputTokens:   res.InputTokens,
		OutputTokens:  res.OutputTokens,
		TotalTokens:   res.TotalTokens,
		EstimatedCost: cost,
		Latency:       res.Latency,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxOutputTokens,
		CacheHit:      res.CacheHit,
		ErrorMessage:  util.SanitizeError(res.Err),
		CreatedAt:     e.now().UTC(),
	})
	return res, nil
}

func (e *Engine) saveLog(ctx context.Context, log analysis.CallLog) {
	if e.Logs == nil {
		return
	}
	if err := e.Logs.SaveAnalysisLog(ctx, log); err != nil {
		telemetry.Warn("consensus.log_failed", map[string]any{
			"task_id":    log.TaskID,
			"session_id": log.SessionID,
			"role":       log.Role,
			"error":      util.SanitizeError(err),
		})
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
