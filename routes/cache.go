package routes

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"upscaler/validation"
)

func cacheKey(source string, params *validation.UpscaleContext) string {
	var builder strings.Builder
	builder.WriteString(source)
	builder.WriteString(";scale=")
	builder.WriteString(strconv.FormatFloat(params.Scale, 'f', -1, 64))
	builder.WriteString(";policy=")
	builder.WriteString(params.Policy.String())
	builder.WriteString(";quality=")
	builder.WriteString(strconv.Itoa(params.Quality))
	builder.WriteString(";webp=")
	builder.WriteString(strconv.FormatBool(params.Webp))
	builder.WriteString(";fp=")
	builder.WriteString(params.FramePosition)
	return builder.String()
}

// uploadSource identifies an uploaded body by content so repeat uploads hit the cache.
func uploadSource(body []byte) string {
	sum := sha256.Sum256(body)
	return "upload:" + hex.EncodeToString(sum[:])
}
