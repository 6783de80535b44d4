package config

type Config struct {
	Address string `json:"address" env:"APP_ADDRESS"`
	Prefork bool   `json:"prefork" env:"APP_PREFORK"`

	Webp    bool  `json:"webp" env:"APP_WEBP"`
	Metrics *bool `json:"metrics" env:"APP_METRICS"`

	AllowedOrigins []string `json:"allowedOrigins" env:"APP_ALLOWED_ORIGINS"`

	HmacKey string `json:"-" env:"APP_HMAC_KEY"`
	Token   string `json:"-" env:"APP_TOKEN"`

	CacheTTL         int   `json:"cacheTTL" env:"APP_CACHE_TTL"`
	CacheMaxCost     int64 `json:"cacheMaxCost" env:"APP_CACHE_MAX_COST"`
	CacheNumCounters int64 `json:"cacheNumCounters" env:"APP_CACHE_NUM_COUNTERS"`
	CacheBufferItems int64 `json:"cacheBufferItems" env:"APP_CACHE_BUFFER_ITEMS"`
	HTTPCacheTTL     int   `json:"httpCacheTTL" env:"APP_HTTP_CACHE_TTL" envDefault:"86400"`

	// Model backend: "interpolator" or "remote".
	ModelBackend   string  `json:"modelBackend" env:"APP_MODEL_BACKEND" envDefault:"interpolator"`
	ModelURL       string  `json:"modelURL" env:"APP_MODEL_URL"`
	ModelBaseScale float64 `json:"modelBaseScale" env:"APP_MODEL_BASE_SCALE" envDefault:"4"`
	ModelKernel    string  `json:"modelKernel" env:"APP_MODEL_KERNEL" envDefault:"lanczos3"`
	ModelTimeout   int     `json:"modelTimeout" env:"APP_MODEL_TIMEOUT" envDefault:"120"`
	Workers        int     `json:"workers" env:"APP_WORKERS" envDefault:"1"`

	ScalePolicy     string  `json:"scalePolicy" env:"APP_SCALE_POLICY" envDefault:"nearest"`
	MaxTargetScale  float64 `json:"maxTargetScale" env:"APP_MAX_TARGET_SCALE" envDefault:"16"`
	MaxOutputPixels int     `json:"maxOutputPixels" env:"APP_MAX_OUTPUT_PIXELS" envDefault:"67108864"`
	RateLimit       int     `json:"rateLimit" env:"APP_RATE_LIMIT"`
	MaxSourceBytes  int64   `json:"maxSourceBytes" env:"APP_MAX_SOURCE_BYTES" envDefault:"52428800"`

	S3Endpoint  string `json:"s3Endpoint" env:"APP_S3_ENDPOINT"`
	S3AccessKey string `json:"-" env:"APP_S3_ACCESS_KEY"`
	S3SecretKey string `json:"-" env:"APP_S3_SECRET_KEY"`
	S3Bucket    string `json:"s3Bucket" env:"APP_S3_BUCKET"`
	S3Prefix    string `json:"s3Prefix" env:"APP_S3_PREFIX" envDefault:"upscaled/"`
	S3Region    string `json:"s3Region" env:"APP_S3_REGION"`
	S3UseSSL    bool   `json:"s3UseSSL" env:"APP_S3_USE_SSL" envDefault:"true"`
}
