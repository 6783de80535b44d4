package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"upscaler/config"
	"upscaler/media"
	"upscaler/mime"
	"upscaler/model"
	"upscaler/pipeline"
	"upscaler/resample"
)

type Options struct {
	Input     string  `short:"i" long:"input" description:"Input image path" required:"true"`
	Output    string  `short:"o" long:"output" description:"Output image path" default:"dst.png"`
	Scale     float64 `short:"s" long:"scale" description:"Target scale factor" required:"true"`
	Policy    string  `short:"p" long:"policy" description:"Pass count policy: single, nearest, ceil, floor" default:"nearest"`
	BaseScale float64 `short:"b" long:"base" description:"Model base scale" default:"4"`
	Backend   string  `short:"m" long:"model" description:"Model backend: interpolator or remote" default:"interpolator"`
	ModelURL  string  `short:"u" long:"model-url" description:"Remote model endpoint"`
	Kernel    string  `short:"k" long:"kernel" description:"Interpolator kernel" default:"lanczos3"`
	Quality   int     `short:"q" long:"quality" description:"Output quality for lossy formats" default:"95"`
	Timeout   int     `long:"timeout" description:"Remote model timeout in seconds" default:"120"`
}

func main() {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	parser.Name = "upscale"
	parser.Usage = "upscale -i[--input] <input-image-path> -o[--output] <output-image-path> -s[--scale] <factor>"
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(context.Background(), logger, opts); err != nil {
		logger.Error("upscale failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger, opts *Options) error {
	policy, err := pipeline.ParsePolicy(opts.Policy)
	if err != nil {
		return err
	}

	inputType := mime.FromPath(opts.Input)
	if inputType == "" {
		return fmt.Errorf("unsupported input extension: %s", opts.Input)
	}
	outputType := mime.FromPath(opts.Output)
	if !mime.IsEncodableMime(outputType) {
		return fmt.Errorf("unsupported output extension: %s", opts.Output)
	}

	m, err := model.New(logger, &config.Config{
		ModelBackend:   opts.Backend,
		ModelURL:       opts.ModelURL,
		ModelBaseScale: opts.BaseScale,
		ModelKernel:    opts.Kernel,
		ModelTimeout:   opts.Timeout,
	})
	if err != nil {
		return err
	}

	in, err := os.Open(opts.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	img, err := media.ReadImage(in, inputType)
	if err != nil {
		return err
	}

	p := pipeline.New(m, opts.BaseScale, resample.New(), pipeline.WithPolicy(policy), pipeline.WithLogger(logger))
	result, err := p.Execute(ctx, img, opts.Scale)
	if err != nil {
		return err
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	if err := media.WriteImage(out, result.Image, outputType, opts.Quality); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger.Info("upscaled image",
		zap.String("input", opts.Input),
		zap.String("output", opts.Output),
		zap.Stringer("plan", result.Plan),
		zap.Int("width", result.Image.Bounds().Dx()),
		zap.Int("height", result.Image.Bounds().Dy()))

	return nil
}
