package pool

import (
	"context"
	"errors"

	"upscaler/pipeline"
)

var ErrNoPipelines = errors.New("pipeline pool is empty")

// Pipelines hands out independent pipelines, each owning its own model, so
// that invocations can run in parallel up to the pool size.
type Pipelines struct {
	idle chan *pipeline.Pipeline
	size int
}

// NewPipelines builds size pipelines with build. build is called once per slot
// and must return a pipeline with its own model instance.
func NewPipelines(size int, build func() (*pipeline.Pipeline, error)) (*Pipelines, error) {
	if size < 1 {
		return nil, ErrNoPipelines
	}

	p := &Pipelines{
		idle: make(chan *pipeline.Pipeline, size),
		size: size,
	}
	for i := 0; i < size; i++ {
		pl, err := build()
		if err != nil {
			return nil, err
		}
		p.idle <- pl
	}

	return p, nil
}

// Acquire blocks until a pipeline is free or ctx is done.
func (p *Pipelines) Acquire(ctx context.Context) (*pipeline.Pipeline, error) {
	select {
	case pl := <-p.idle:
		return pl, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns pl to the pool.
func (p *Pipelines) Release(pl *pipeline.Pipeline) {
	p.idle <- pl
}

// Size returns the number of pipelines in the pool.
func (p *Pipelines) Size() int {
	return p.size
}

// Available returns the number of idle pipelines.
func (p *Pipelines) Available() int {
	return len(p.idle)
}
