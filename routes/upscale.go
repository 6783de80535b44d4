package routes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"mime"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"upscaler/client"
	"upscaler/config"
	"upscaler/media"
	"upscaler/metrics"
	upmime "upscaler/mime"
	"upscaler/pipeline"
	"upscaler/pool"
	"upscaler/storage"
	"upscaler/validation"
)

const (
	cachePlaceMemory = "memory"
	cachePlaceS3     = "s3cache"
	cachePlaceNone   = "none"

	sourceURL    = "url"
	sourceUpload = "upload"
)

// Upscaler bundles what the upscale handlers need.
type Upscaler struct {
	Logger      *zap.Logger
	Config      *config.Config
	Cache       *ristretto.Cache[string, storage.CacheValue]
	S3Cache     *storage.S3Cache
	Pipelines   *pool.Pipelines
	Origins     *pool.OriginMatcher
	Counters    *metrics.Metrics
	Performance *metrics.PerformanceMetrics
	// LimiterStorage backs the rate limiter when Config.RateLimit > 0
	LimiterStorage fiber.Storage
}

// source is a decoded input ready for the pipeline.
type source struct {
	img         image.Image
	contentType string
}

// RegisterUpscaleRoutes sets up the upscale routes
func RegisterUpscaleRoutes(app *fiber.App, u *Upscaler) {
	var handlers []fiber.Handler
	if u.Config.RateLimit > 0 {
		handlers = append(handlers, limiter.New(limiter.Config{
			Max:        u.Config.RateLimit,
			Expiration: time.Minute,
			Storage:    u.LimiterStorage,
		}))
	}

	group := app.Group("/upscale", handlers...)

	// /upscale/x:3/p:ceil/q:80/webp/sig:abc/{base64-encoded-url}
	group.Get("/*", u.handleUpscaleRequest)

	// /upscale/t:token/x:3/webp with multipart field "image"
	group.Post("/*", u.handleUpscaleUpload)
}

//#region handleUpscaleRequest

func (u *Upscaler) handleUpscaleRequest(c *fiber.Ctx) error {
	pathParams := c.Params("*")
	logger := u.Logger.With(traceFields(c.UserContext())...)
	logger.Info("upscale request received", zap.String("pathParams", pathParams), zap.String("remote_ip", c.IP()))

	ok, status, params, err := validation.ProcessUpscaleContextFromPath(logger, pathParams, u.Config, u.Origins)
	if !ok {
		logger.Error("failed to process upscale context from path", zap.String("pathParams", pathParams), zap.Int("status", status), zap.Error(err))
		return c.Status(status).SendString(err.Error())
	}

	logger.Debug("processed upscale parameters", zap.Stringer("params", params), zap.String("url", params.Url), zap.String("hostname", params.Hostname))

	return u.serve(c, logger, params, sourceURL, params.Url, func(ctx context.Context) (*source, int, error) {
		return u.fetchSource(ctx, logger, params)
	})
}

// fetchSource downloads and decodes the origin. Videos are opened directly by
// the demuxer at the source URL.
func (u *Upscaler) fetchSource(ctx context.Context, logger *zap.Logger, params *validation.UpscaleContext) (*source, int, error) {
	done := metrics.TimeHTTPRequest(params.Hostname, u.Performance)
	response, err := client.Fetch(ctx, params.Url)
	done()
	if err != nil {
		logger.Error("failed to fetch source", zap.Error(err), zap.String("url", params.Url))
		return nil, fiber.StatusBadGateway, fmt.Errorf("failed to fetch source")
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			logger.Error("failed to close response body", zap.Error(closeErr), zap.String("url", params.Url))
		}
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		logger.Error("origin returned error status", zap.Int("status", response.StatusCode), zap.String("url", params.Url))
		return nil, fiber.StatusBadGateway, fmt.Errorf("origin returned status %d", response.StatusCode)
	}

	contentType, err := parseContentType(response.Header.Get("Content-Type"))
	if err != nil {
		logger.Error("invalid source content type", zap.Error(err), zap.String("url", params.Url))
		return nil, fiber.StatusForbidden, err
	}

	if upmime.IsVideoMime(contentType) {
		img, err := metrics.TimeFunction(func() (image.Image, error) {
			return media.ExtractFrame(logger, params.Url, params.FramePosition)
		}, "extract_frame", u.Performance)
		if err != nil {
			logger.Error("failed to extract video frame", zap.Error(err), zap.String("url", params.Url), zap.String("framePosition", params.FramePosition))
			return nil, fiber.StatusUnprocessableEntity, fmt.Errorf("failed to extract video frame")
		}
		return &source{img: img, contentType: "image/png"}, fiber.StatusOK, nil
	}

	if u.Config.MaxSourceBytes > 0 && response.ContentLength > u.Config.MaxSourceBytes {
		logger.Warn("source too large", zap.Int64("content_length", response.ContentLength), zap.String("url", params.Url))
		return nil, fiber.StatusRequestEntityTooLarge, fmt.Errorf("source exceeds %d bytes", u.Config.MaxSourceBytes)
	}

	body, err := client.ReadLimited(response.Body, u.Config.MaxSourceBytes)
	if errors.Is(err, client.ErrBodyTooLarge) {
		logger.Warn("source too large", zap.Error(err), zap.String("url", params.Url))
		return nil, fiber.StatusRequestEntityTooLarge, fmt.Errorf("source exceeds %d bytes", u.Config.MaxSourceBytes)
	}
	if err != nil {
		logger.Error("failed to read response body", zap.Error(err), zap.String("url", params.Url))
		return nil, fiber.StatusBadGateway, fmt.Errorf("failed to read source")
	}

	return decodeSource(logger, u.Performance, body, contentType)
}

//#endregion

//#region handleUpscaleUpload

// handleUpscaleUpload upscales an image posted as multipart field "image".
func (u *Upscaler) handleUpscaleUpload(c *fiber.Ctx) error {
	pathParams := c.Params("*")
	logger := u.Logger.With(traceFields(c.UserContext())...)
	logger.Info("upscale upload received", zap.String("remote_ip", c.IP()))

	ok, status, params, err := validation.ProcessUpscaleUploadFromPath(logger, pathParams, u.Config)
	if !ok {
		return c.Status(status).SendString(err.Error())
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("failed to get image file")
	}

	contentType, err := parseContentType(file.Header.Get("Content-Type"))
	if err != nil {
		return c.Status(fiber.StatusForbidden).SendString(err.Error())
	}
	if upmime.IsVideoMime(contentType) {
		return c.Status(fiber.StatusUnsupportedMediaType).SendString("video uploads are not supported")
	}

	if u.Config.MaxSourceBytes > 0 && file.Size > u.Config.MaxSourceBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).SendString(fmt.Sprintf("image exceeds %d bytes", u.Config.MaxSourceBytes))
	}

	imageFile, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("failed to open image file")
	}
	defer imageFile.Close()

	body, err := client.ReadLimited(imageFile, u.Config.MaxSourceBytes)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("failed to read image file")
	}

	return u.serve(c, logger, params, sourceUpload, uploadSource(body), func(context.Context) (*source, int, error) {
		return decodeSource(logger, u.Performance, body, contentType)
	})
}

//#endregion

//#region serve

// serve answers from cache when possible, otherwise loads the source, runs
// the pipeline, encodes and caches the result.
func (u *Upscaler) serve(c *fiber.Ctx, logger *zap.Logger, params *validation.UpscaleContext, sourceKind, sourceKey string, load func(context.Context) (*source, int, error)) error {
	ctx := c.UserContext()
	key := cacheKey(sourceKey, params)

	if value, ok := u.Cache.Get(key); ok {
		u.Counters.Cached(sourceKind, cachePlaceMemory)
		return u.send(c, params, sourceKind, sourceKey, value, cachePlaceMemory, nil)
	}

	if u.S3Cache != nil && u.S3Cache.Enabled {
		value, err := u.S3Cache.Get(ctx, key)
		if err != nil {
			logger.Warn("s3 cache lookup failed", zap.Error(err), zap.String("cache_key", key))
		} else if value != nil {
			u.Cache.SetWithTTL(key, *value, int64(len(value.Body)), u.cacheTTL())
			u.Counters.Cached(sourceKind, cachePlaceS3)
			return u.send(c, params, sourceKind, sourceKey, *value, cachePlaceS3, nil)
		}
	}

	src, status, err := load(ctx)
	if err != nil {
		u.Counters.Failed("source")
		return c.Status(status).SendString(err.Error())
	}

	plan, err := pipeline.NewPlan(u.Config.ModelBaseScale, params.Scale, params.Policy)
	if err != nil {
		u.Counters.Failed("plan")
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	}

	bounds := src.img.Bounds()
	if err := validation.CheckPlanSize(bounds.Dx(), bounds.Dy(), plan, u.Config.MaxOutputPixels); err != nil {
		u.Counters.Failed("limits")
		logger.Warn("upscale exceeds pixel limit", zap.Error(err), zap.Stringer("plan", plan))
		return c.Status(fiber.StatusRequestEntityTooLarge).SendString(err.Error())
	}

	result, err := u.runPipeline(ctx, src.img, params)
	if err != nil {
		status, stage := pipelineErrorStatus(err)
		u.Counters.Failed(stage)
		logger.Error("upscale failed", zap.Error(err), zap.String("stage", stage), zap.Float64("scale", params.Scale), zap.Stringer("policy", params.Policy), zap.String("url", params.Url))
		return c.Status(status).SendString(fmt.Sprintf("upscale failed at %s stage", stage))
	}

	logger.Info("upscaled image",
		zap.Stringer("policy", result.Plan.Policy),
		zap.Int("passes", result.Plan.Passes),
		zap.Float64("residual", result.Plan.Residual),
		zap.Int("width", result.Image.Bounds().Dx()),
		zap.Int("height", result.Image.Bounds().Dy()))

	outputType := media.OutputType(src.contentType, params.Webp)
	body, err := metrics.TimeFunction(func() ([]byte, error) {
		buf := pool.GetBuffer()
		defer pool.PutBuffer(buf)
		if err := media.WriteImage(buf, result.Image, outputType, params.Quality); err != nil {
			return nil, err
		}
		return bytes.Clone(buf.Bytes()), nil
	}, "encode", u.Performance)
	if err != nil {
		u.Counters.Failed("encode")
		logger.Error("failed to encode image", zap.Error(err), zap.String("content_type", outputType))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to encode image")
	}

	if u.Performance != nil {
		u.Performance.ImageSizeBytes.WithLabelValues(outputType).Observe(float64(len(body)))
	}

	value := storage.CacheValue{Body: body, ContentType: outputType}
	u.Cache.SetWithTTL(key, value, int64(len(body)), u.cacheTTL())

	if u.S3Cache != nil && u.S3Cache.Enabled {
		go func() {
			if err := u.S3Cache.Put(context.Background(), key, value.Body, value.ContentType); err != nil {
				logger.Error("failed to store image in S3 cache", zap.Error(err), zap.String("cache_key", key))
			}
		}()
	}

	return u.send(c, params, sourceKind, sourceKey, value, cachePlaceNone, &result.Plan)
}

// runPipeline holds one pooled pipeline for the whole invocation.
func (u *Upscaler) runPipeline(ctx context.Context, img image.Image, params *validation.UpscaleContext) (*pipeline.Result, error) {
	waitStart := time.Now()
	pl, err := u.Pipelines.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer u.Pipelines.Release(pl)

	if u.Performance != nil {
		u.Performance.PoolWaitTime.Observe(time.Since(waitStart).Seconds())
	}

	start := time.Now()
	result, err := pl.ExecuteWithPolicy(ctx, img, params.Scale, params.Policy)
	if err != nil {
		return nil, err
	}
	u.Performance.ObservePlan(result.Plan.Policy.String(), result.Plan.Passes, time.Since(start))

	return result, nil
}

func (u *Upscaler) send(c *fiber.Ctx, params *validation.UpscaleContext, sourceKind, sourceKey string, value storage.CacheValue, place string, plan *pipeline.Plan) error {
	u.Counters.Served(sourceKind, params.Hostname, sourceKey)

	c.Set("Content-Type", value.ContentType)
	c.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", u.Config.HTTPCacheTTL))
	c.Set("X-Cache-Place", place)
	c.Set("X-Upscale-Policy", params.Policy.String())
	if plan != nil {
		c.Set("X-Upscale-Passes", strconv.Itoa(plan.Passes))
	}

	return c.Send(value.Body)
}

func (u *Upscaler) cacheTTL() time.Duration {
	return time.Duration(u.Config.CacheTTL) * time.Second
}

//#endregion

func decodeSource(logger *zap.Logger, perf *metrics.PerformanceMetrics, body []byte, contentType string) (*source, int, error) {
	img, err := metrics.TimeFunction(func() (image.Image, error) {
		return media.ReadImageSlice(body, contentType)
	}, "decode", perf)
	if err != nil {
		logger.Error("failed to decode image", zap.Error(err), zap.String("content_type", contentType), zap.Int("image_size", len(body)))
		return nil, fiber.StatusUnprocessableEntity, fmt.Errorf("failed to decode image")
	}
	return &source{img: img, contentType: contentType}, fiber.StatusOK, nil
}

func parseContentType(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("no content type received")
	}

	contentType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "", fmt.Errorf("failed to parse content type")
	}

	if !upmime.IsUpscalableMime(contentType) {
		return "", fmt.Errorf("content type '%s' is not allowed", contentType)
	}

	return contentType, nil
}

// pipelineErrorStatus maps a pipeline error to a response status and a
// failure stage label.
func pipelineErrorStatus(err error) (int, string) {
	var modelErr *pipeline.ModelError
	var resizeErr *pipeline.ResizeError

	switch {
	case errors.Is(err, pipeline.ErrInvalidScale), errors.Is(err, pipeline.ErrUnknownPolicy):
		return fiber.StatusBadRequest, "plan"
	case errors.As(err, &modelErr):
		return fiber.StatusBadGateway, "model"
	case errors.As(err, &resizeErr):
		return fiber.StatusInternalServerError, "resize"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, "pool"
	default:
		return fiber.StatusInternalServerError, "unknown"
	}
}

// traceFields correlates log lines with the active span, if any.
func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
