// Package pipeline upscales images to an arbitrary magnification by running a
// fixed-factor super-resolution model a planned number of times and landing
// on the exact target size with a final algorithmic resize.
package pipeline

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Interpolation names the kernel family used for the residual resize.
type Interpolation int

const (
	// InterpolationArea averages source pixels over the destination footprint.
	// Used when the residual shrinks the image.
	InterpolationArea Interpolation = iota
	// InterpolationLanczos is a sharp windowed-sinc kernel used when the
	// residual enlarges the image.
	InterpolationLanczos
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationArea:
		return "area"
	case InterpolationLanczos:
		return "lanczos"
	}
	return "unknown"
}

// Model applies one fixed-factor super-resolution pass.
type Model interface {
	Apply(ctx context.Context, img image.Image) (image.Image, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, img image.Image) (image.Image, error)

func (f ModelFunc) Apply(ctx context.Context, img image.Image) (image.Image, error) {
	return f(ctx, img)
}

// Resizer resamples an image to exactly width×height.
type Resizer interface {
	Resize(img image.Image, width, height int, kind Interpolation) (image.Image, error)
}

// ResizerFunc adapts a function to the Resizer interface.
type ResizerFunc func(img image.Image, width, height int, kind Interpolation) (image.Image, error)

func (f ResizerFunc) Resize(img image.Image, width, height int, kind Interpolation) (image.Image, error) {
	return f(img, width, height, kind)
}

// Result is the output of one invocation together with the plan that built it.
type Result struct {
	Image image.Image
	Plan  Plan
}

// Pipeline owns one model instance. Invocations are serialized: each one holds
// the model for all of its passes.
type Pipeline struct {
	mu        sync.Mutex
	model     Model
	resizer   Resizer
	baseScale float64
	policy    ScalePolicy
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPolicy sets the initial policy instead of DefaultPolicy.
func WithPolicy(policy ScalePolicy) Option {
	return func(p *Pipeline) {
		p.policy = policy
	}
}

// WithLogger logs each computed plan at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New returns a Pipeline around model. baseScale is the magnification of one
// model pass and is not validated until the first invocation.
func New(model Model, baseScale float64, resizer Resizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		model:     model,
		resizer:   resizer,
		baseScale: baseScale,
		policy:    DefaultPolicy,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BaseScale returns the per-pass magnification supplied at construction.
func (p *Pipeline) BaseScale() float64 {
	return p.baseScale
}

// Policy returns the policy used by the next invocation.
func (p *Pipeline) Policy() ScalePolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.policy
}

// SetPolicy changes the policy for subsequent invocations. It waits for an
// invocation in progress to finish.
func (p *Pipeline) SetPolicy(policy ScalePolicy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
}

// RunToScale upscales img by targetScale under the current policy.
func (p *Pipeline) RunToScale(ctx context.Context, img image.Image, targetScale float64) (image.Image, error) {
	res, err := p.Execute(ctx, img, targetScale)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// Execute is RunToScale that also reports the plan it followed.
func (p *Pipeline) Execute(ctx context.Context, img image.Image, targetScale float64) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.execute(ctx, img, targetScale, p.policy)
}

// ExecuteWithPolicy runs one invocation under policy without changing the
// pipeline's own policy.
func (p *Pipeline) ExecuteWithPolicy(ctx context.Context, img image.Image, targetScale float64, policy ScalePolicy) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.execute(ctx, img, targetScale, policy)
}

// execute must be called with p.mu held.
func (p *Pipeline) execute(ctx context.Context, img image.Image, targetScale float64, policy ScalePolicy) (*Result, error) {
	plan, err := NewPlan(p.baseScale, targetScale, policy)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("scale plan",
		zap.Stringer("policy", plan.Policy),
		zap.Float64("base_scale", plan.Base),
		zap.Float64("target_scale", plan.Target),
		zap.Int("passes", plan.Passes),
		zap.Float64("achieved_scale", plan.Achieved),
		zap.Float64("residual", plan.Residual))

	current := img
	for i := 1; i <= plan.Passes; i++ {
		out, err := p.model.Apply(ctx, current)
		if err != nil {
			return nil, &ModelError{Pass: i, Passes: plan.Passes, Err: errors.Wrapf(err, "model pass %d/%d", i, plan.Passes)}
		}
		current = out
	}

	if !plan.NeedsResize() {
		return &Result{Image: current, Plan: plan}, nil
	}

	bounds := current.Bounds()
	width, height := plan.TargetSize(bounds.Dx(), bounds.Dy())
	out, err := p.resizer.Resize(current, width, height, plan.Interpolation())
	if err != nil {
		return nil, &ResizeError{Width: width, Height: height, Err: err}
	}

	return &Result{Image: out, Plan: plan}, nil
}
