// Package model holds the concrete super-resolution backends that plug into
// pipeline.Model.
package model

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"upscaler/client"
	"upscaler/config"
	"upscaler/pipeline"
	"upscaler/resample"
)

const (
	BackendInterpolator = "interpolator"
	BackendRemote       = "remote"
)

// New builds a fresh model instance for the configured backend. Each call
// returns an independent instance.
func New(logger *zap.Logger, cfg *config.Config) (pipeline.Model, error) {
	switch cfg.ModelBackend {
	case BackendInterpolator, "":
		kernel, err := resample.Kernel(cfg.ModelKernel)
		if err != nil {
			return nil, err
		}
		return &Interpolator{Scale: cfg.ModelBaseScale, Kernel: kernel}, nil

	case BackendRemote:
		if cfg.ModelURL == "" {
			return nil, fmt.Errorf("remote model backend requires a model url")
		}
		timeout := time.Duration(cfg.ModelTimeout) * time.Second
		return NewRemote(logger, cfg.ModelURL, client.NewModelClient(timeout)), nil

	default:
		return nil, fmt.Errorf("unknown model backend: %s", cfg.ModelBackend)
	}
}
