package llm

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Adapter is a uniform client for one vision model provider.
// Analyze never returns provider or parse failures as Go errors: they come
// back on Result.Err with confidence 0.
type Adapter interface {
	Provider() Provider
	Analyze(ctx context.Context, req Request) Result
}

// Request is one model invocation.
type Request struct {
	Image           []byte
	Prompt          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Result is the outcome of one model invocation.
type Result struct {
	Provider     Provider
	Model        string
	Raw          string
	Data         map[string]any
	Confidence   float64
	InputTokens  *int
	OutputTokens *int
	TotalTokens  int
	Latency      time.Duration
	Err          error
	CacheHit     bool
}

// OK reports whether the call produced a usable parsed answer.
func (r Result) OK() bool {
	return r.Err == nil
}

// ErrorMessage returns the error text or "".
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Usage carries token counts reported by a provider. Nil fields are unknown.
type Usage struct {
	InputTokens  *int
	OutputTokens *int
	TotalTokens  int
}

// FromResponse runs the parse pipeline over a raw model answer.
func FromResponse(provider Provider, model, raw string, usage Usage, latency time.Duration) Result {
	data, confidence, err := ParseResponse(raw)
	total := usage.TotalTokens
	if total == 0 && usage.InputTokens != nil && usage.OutputTokens != nil {
		total = *usage.InputTokens + *usage.OutputTokens
	}
	return Result{
		Provider:     provider,
		Model:        model,
		Raw:          raw,
		Data:         data,
		Confidence:   confidence,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  total,
		Latency:      latency,
		Err:          err,
	}
}

// Failed builds the result for a call that never produced an answer.
func Failed(provider Provider, model string, err error, latency time.Duration) Result {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Result{
		Provider:   provider,
		Model:      model,
		Data:       map[string]any{"error": "provider_error", "message": msg},
		Confidence: 0,
		Latency:    latency,
		Err:        err,
	}
}

// Registry maps providers to adapters. The processor owns one and hands it to
// the consensus engine.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Provider]Adapter
}

// NewRegistry returns a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its provider.
func (r *Registry) Register(a Adapter) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

// Get returns the adapter for p.
func (r *Registry) Get(p Provider) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	return a, ok
}

// Supports reports whether an adapter is registered for p.
func (r *Registry) Supports(p Provider) bool {
	_, ok := r.Get(p)
	return ok
}

// Providers lists registered providers in name order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
