package model

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"upscaler/media"
	"upscaler/pool"
)

// Remote runs each pass on an HTTP inference server. The image is POSTed as
// PNG and the response body is the upscaled image.
type Remote struct {
	URL    string
	client *http.Client
	logger *zap.Logger
}

func NewRemote(logger *zap.Logger, url string, client *http.Client) *Remote {
	return &Remote{URL: url, client: client, logger: logger}
}

func (m *Remote) Apply(ctx context.Context, img image.Image) (image.Image, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode model input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to build model request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "image/png, image/webp, image/jpeg")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			m.logger.Error("failed to close model response body", zap.Error(closeErr), zap.String("url", m.URL))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	contentType := "image/png"
	if header := resp.Header.Get("Content-Type"); header != "" {
		if parsed, _, err := mime.ParseMediaType(header); err == nil {
			contentType = parsed
		}
	}

	out, err := media.ReadImage(resp.Body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}

	return out, nil
}
