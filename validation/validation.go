package validation

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"upscaler/config"
	"upscaler/pipeline"
	"upscaler/pool"
)

// UpscaleContext is a validated upscale request.
type UpscaleContext struct {
	Url      string
	Hostname string

	Scale  float64
	Policy pipeline.ScalePolicy

	Quality int
	Webp    bool

	// Video sources only: "first", "half", "last", or seconds
	FramePosition string
}

func (c *UpscaleContext) String() string {
	return fmt.Sprintf("scale=%g;policy=%s;quality=%d;webp=%t;framePosition=%s", c.Scale, c.Policy, c.Quality, c.Webp, c.FramePosition)
}

// PathParams holds the raw parameters parsed from the URL path
type PathParams struct {
	Scale         float64
	Policy        string
	Quality       int
	Webp          bool
	FramePosition string
	Signature     string
	Token         string
	EncodedURL    string
}

// ParsePathParams extracts parameters from the URL path.
// Expected format: x:3.5/p:ceil/q:80/webp/fp:half/sig:abc123/{base64-url}
// Uploads carry no URL: t:token/x:2/webp
func ParsePathParams(pathParams string) (*PathParams, error) {
	params := &PathParams{
		Quality:       100,
		FramePosition: "first",
	}

	parts := strings.Split(strings.Trim(pathParams, "/"), "/")
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		return nil, fmt.Errorf("no path parameters found")
	}

	// A parameter either contains ":" or is exactly "webp"; anything else in
	// last position is the encoded source URL.
	processParts := parts
	if lastPart := parts[len(parts)-1]; !strings.Contains(lastPart, ":") && lastPart != "webp" {
		params.EncodedURL = lastPart
		processParts = parts[:len(parts)-1]
	}

	for _, part := range processParts {
		if part == "webp" {
			params.Webp = true
			continue
		}

		key, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}

		switch key {
		case "x", "scale":
			s, err := strconv.ParseFloat(value, 64)
			if err != nil || s <= 0 || math.IsInf(s, 0) || math.IsNaN(s) {
				return nil, fmt.Errorf("invalid scale: %s", value)
			}
			params.Scale = s
		case "p", "policy":
			params.Policy = value
		case "q", "quality":
			q, err := strconv.Atoi(value)
			if err != nil || q < 1 || q > 100 {
				return nil, fmt.Errorf("quality must be between 1 and 100")
			}
			params.Quality = q
		case "fp", "framePosition":
			params.FramePosition = value
		case "sig", "signature":
			params.Signature = value
		case "t", "token":
			params.Token = value
		}
	}

	return params, nil
}

// DecodeURL decodes a base64 URL-safe encoded source URL. Padding is optional.
func DecodeURL(encodedURL string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encodedURL, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode URL: %w", err)
	}
	return string(decoded), nil
}

// Sign returns the hex HMAC-SHA256 of message under secret.
func Sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func compareHmac(message, providedSignature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expectedMAC := mac.Sum(nil)

	providedMAC, err := hex.DecodeString(providedSignature)
	if err != nil {
		return false
	}

	return hmac.Equal(expectedMAC, providedMAC)
}

// ProcessUpscaleContextFromPath validates a fetch-by-URL upscale request.
// When an HMAC key is configured every request must be signed over its URL.
func ProcessUpscaleContextFromPath(logger *zap.Logger, pathParams string, config *config.Config, origins *pool.OriginMatcher) (bool, int, *UpscaleContext, error) {
	params, err := ParsePathParams(pathParams)
	if err != nil {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}

	if params.EncodedURL == "" {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("url is required")
	}

	urlParam, err := DecodeURL(params.EncodedURL)
	if err != nil {
		return false, fiber.StatusBadRequest, nil, err
	}

	if config.HmacKey != "" {
		if params.Signature == "" {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("signature is required")
		}
		if !compareHmac(urlParam, params.Signature, config.HmacKey) {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid signature")
		}
	}

	validOrigin, hostname := origins.Match(urlParam)
	if !validOrigin {
		logger.Debug("origin rejected", zap.String("url", urlParam), zap.String("hostname", hostname))
		return false, fiber.StatusForbidden, nil, fmt.Errorf("url is not allowed")
	}

	ctx, status, err := buildContext(params, config)
	if err != nil {
		return false, status, nil, err
	}
	ctx.Url = urlParam
	ctx.Hostname = hostname

	return true, fiber.StatusOK, ctx, nil
}

// ProcessUpscaleUploadFromPath validates an upload request. Uploads are only
// accepted when a token is configured and the request carries it.
func ProcessUpscaleUploadFromPath(logger *zap.Logger, pathParams string, config *config.Config) (bool, int, *UpscaleContext, error) {
	params, err := ParsePathParams(pathParams)
	if err != nil {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}

	if config.Token == "" || subtle.ConstantTimeCompare([]byte(params.Token), []byte(config.Token)) != 1 {
		logger.Debug("upload token rejected")
		return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid token")
	}

	ctx, status, err := buildContext(params, config)
	if err != nil {
		return false, status, nil, err
	}

	return true, fiber.StatusOK, ctx, nil
}

func buildContext(params *PathParams, config *config.Config) (*UpscaleContext, int, error) {
	if params.Scale == 0 {
		return nil, fiber.StatusBadRequest, fmt.Errorf("scale is required")
	}

	if config.MaxTargetScale > 0 && params.Scale > config.MaxTargetScale {
		return nil, fiber.StatusBadRequest, fmt.Errorf("scale must not exceed %g", config.MaxTargetScale)
	}

	policyName := params.Policy
	if policyName == "" {
		policyName = config.ScalePolicy
	}
	policy := pipeline.DefaultPolicy
	if policyName != "" {
		p, err := pipeline.ParsePolicy(policyName)
		if err != nil {
			return nil, fiber.StatusBadRequest, err
		}
		policy = p
	}

	if err := ValidateFramePosition(params.FramePosition); err != nil {
		return nil, fiber.StatusBadRequest, err
	}

	return &UpscaleContext{
		Scale:         params.Scale,
		Policy:        policy,
		Quality:       params.Quality,
		Webp:          params.Webp || config.Webp,
		FramePosition: params.FramePosition,
	}, fiber.StatusOK, nil
}

// CheckOutputSize rejects requests whose output would exceed maxPixels.
func CheckOutputSize(width, height int, scale float64, maxPixels int) error {
	outW := math.Round(float64(width) * scale)
	outH := math.Round(float64(height) * scale)
	if outW < 1 || outH < 1 {
		return fmt.Errorf("output size %gx%g is empty", outW, outH)
	}
	if maxPixels > 0 && outW*outH > float64(maxPixels) {
		return fmt.Errorf("output size %gx%g exceeds %d pixels", outW, outH, maxPixels)
	}
	return nil
}

// CheckPlanSize rejects plans whose final output or largest intermediate
// image would exceed maxPixels. With a base scale above 1 the last model pass
// produces the largest image, which can overshoot the target before the
// residual downscale.
func CheckPlanSize(width, height int, plan pipeline.Plan, maxPixels int) error {
	if err := CheckOutputSize(width, height, plan.Target, maxPixels); err != nil {
		return err
	}
	if maxPixels <= 0 || plan.Achieved <= plan.Target {
		return nil
	}

	peakW := math.Round(float64(width) * plan.Achieved)
	peakH := math.Round(float64(height) * plan.Achieved)
	if peakW*peakH > float64(maxPixels) {
		return fmt.Errorf("intermediate size %gx%g after %d model passes exceeds %d pixels", peakW, peakH, plan.Passes, maxPixels)
	}
	return nil
}

// ValidateFramePosition accepts "first", "half", "last" or non-negative seconds.
func ValidateFramePosition(position string) error {
	switch position {
	case "first", "half", "last":
		return nil
	}
	if t, err := strconv.ParseFloat(strings.TrimSpace(position), 64); err == nil && t >= 0 {
		return nil
	}
	return fmt.Errorf("invalid frame position: %s", position)
}
