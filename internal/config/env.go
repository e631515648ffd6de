package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string

	// Ollama endpoint and models
	OllamaURL         string
	OllamaModel       string
	OllamaVisionModel string

	// AI provider selection: "ollama" (default) or "gemini"
	AIProvider   string
	GeminiAPIKey string
	GenModel     string
	EmbedModel   string
	EmbedDim     int

	// OCR
	OCRLanguage string

	// Directories
	MediaDir     string
	ConsumeDir   string
	ThumbnailDir string

	// Blob storage: "disk" (default) or "s3"
	StorageBackend string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string

	// Upload limits
	MaxUploadSizeMB   int
	AllowedExtensions []string

	// Pipeline workers
	Workers int

	Port        string
	CORSOrigins string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		OllamaURL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llama3.1"),
		OllamaVisionModel: getEnv("OLLAMA_VISION_MODEL", "llava"),
		AIProvider:        getEnv("AI_PROVIDER", "ollama"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GenModel:          getEnv("GEN_MODEL", "gemini-1.5-flash"),
		EmbedModel:        getEnv("EMBED_MODEL", "nomic-embed-text"),
		EmbedDim:          getEnvInt("EMBED_DIM", 768),
		OCRLanguage:       getEnv("OCR_LANGUAGE", "eng+deu+ara"),
		MediaDir:          getEnv("MEDIA_DIR", "/data/media"),
		ConsumeDir:        getEnv("CONSUME_DIR", "/data/consume"),
		ThumbnailDir:      getEnv("THUMBNAIL_DIR", "/data/thumbnails"),
		StorageBackend:    getEnv("STORAGE_BACKEND", "disk"),
		AwsAccessKey:      getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:      getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:         getEnv("AWS_REGION", "us-east-2"),
		BucketName:        getEnv("BUCKET_NAME", "docuai-docs"),
		MaxUploadSizeMB:   getEnvInt("MAX_UPLOAD_SIZE_MB", 50),
		AllowedExtensions: getEnvList("ALLOWED_EXTENSIONS", "pdf,png,jpg,jpeg,tiff,tif,webp,bmp,gif"),
		Workers:           getEnvInt("WORKERS", 2),
		Port:              getEnv("PORT", "8080"),
		CORSOrigins:       getEnv("CORS_ORIGINS", "*"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

func (c *Config) MaxUploadSizeBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}

// ExtensionAllowed reports whether the lowercased extension (without dot) may be ingested.
func (c *Config) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, e := range c.AllowedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvList(key, def string) []string {
	raw := getEnv(key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
