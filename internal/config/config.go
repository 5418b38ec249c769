// Package config holds all configuration for the moodboard service.
// Values come from a YAML file with environment variable overrides.
package config

import (
	"time"

	"github.com/moorea/moodboard/internal/logger"
)

// Default configuration values.
const (
	defaultServiceName    = "moodboardd"
	defaultServiceVersion = "1.0.0"
	defaultServicePort    = 8080
	defaultWorkers        = 4

	defaultVocabularyPath = "data/aesthetics.yaml"

	defaultEmbeddingServiceURL = "http://clip-inference:8090"
	defaultEmbeddingTimeout    = 10 * time.Second
	defaultInferenceSlots      = 4

	defaultProviderTimeout    = 5 * time.Second
	defaultAggregateTimeout   = 12 * time.Second
	defaultCandidateTimeout   = 5 * time.Second
	defaultMaxCandidates      = 50
	defaultMoodboardSize      = 12
	defaultMaxSearchKeywords  = 4
	defaultPerProviderResults = 10

	defaultMinConfidence       = 0.025
	defaultSupportingThreshold = 0.08
	defaultPrimarySimilarity   = 0.6
	defaultSecondarySimilarity = 0.45
	defaultMinRankedImages     = 3

	defaultRedisTimeout           = 5 * time.Second
	defaultClassificationCacheTTL = 7 * 24 * time.Hour
	defaultProviderCacheTTL       = 24 * time.Hour
)

// Config holds all configuration for the moodboard service.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   logger.Config   `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name           string `yaml:"name"`
	Version        string `yaml:"version"`
	Port           int    `env:"MOODBOARD_PORT"    yaml:"port"`
	Debug          bool   `env:"APP_DEBUG"         yaml:"debug"`
	Workers        int    `env:"MOODBOARD_WORKERS" yaml:"workers"`
	VocabularyPath string `env:"AESTHETICS_FILE"   yaml:"vocabulary_path"`
}

// EmbeddingConfig holds settings for the CLIP inference sidecar.
type EmbeddingConfig struct {
	ServiceURL string        `env:"CLIP_SERVICE_URL" yaml:"service_url"`
	Timeout    time.Duration `yaml:"timeout"`
	// InferenceSlots bounds concurrent inference calls so embedding work
	// never starves provider I/O.
	InferenceSlots int `yaml:"inference_slots"`
}

// ProvidersConfig holds per-provider credentials and shared limits.
// A provider with an empty key is skipped silently.
type ProvidersConfig struct {
	UnsplashAccessKey  string        `env:"UNSPLASH_ACCESS_KEY" yaml:"unsplash_access_key"`
	PexelsAPIKey       string        `env:"PEXELS_API_KEY"      yaml:"pexels_api_key"`
	FlickrAPIKey       string        `env:"FLICKR_API_KEY"      yaml:"flickr_api_key"`
	Timeout            time.Duration `yaml:"timeout"`
	PerProviderResults int           `yaml:"per_provider_results"`
	LocalPoolPath      string        `env:"LOCAL_POOL_FILE" yaml:"local_pool_path"`
}

// PipelineConfig holds candidate/moodboard targets and every numeric
// threshold used by the pipeline stages.
type PipelineConfig struct {
	MaxCandidates     int           `yaml:"max_candidates"`
	MoodboardSize     int           `yaml:"moodboard_size"`
	MaxSearchKeywords int           `yaml:"max_search_keywords"`
	AggregateTimeout  time.Duration `yaml:"aggregate_timeout"`
	CandidateTimeout  time.Duration `yaml:"candidate_timeout"`

	MinConfidence       float64 `yaml:"min_confidence"`
	SupportingThreshold float64 `yaml:"supporting_threshold"`
	PrimarySimilarity   float64 `yaml:"primary_similarity"`
	SecondarySimilarity float64 `yaml:"secondary_similarity"`
	MinRankedImages     int     `yaml:"min_ranked_images"`
}

// RedisConfig holds the optional response cache configuration.
// An empty address disables caching; the pipeline then always computes.
type RedisConfig struct {
	Address                string        `env:"REDIS_ADDRESS"  yaml:"address"`
	Password               string        `env:"REDIS_PASSWORD" yaml:"password"`
	Database               int           `yaml:"database"`
	Timeout                time.Duration `yaml:"timeout"`
	ClassificationCacheTTL time.Duration `yaml:"classification_cache_ttl"`
	ProviderCacheTTL       time.Duration `yaml:"provider_cache_ttl"`
}

// SetDefaults applies default values for anything unset.
func (c *Config) SetDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = defaultServiceName
	}
	if c.Service.Version == "" {
		c.Service.Version = defaultServiceVersion
	}
	if c.Service.Port == 0 {
		c.Service.Port = defaultServicePort
	}
	if c.Service.Workers <= 0 {
		c.Service.Workers = defaultWorkers
	}
	if c.Service.VocabularyPath == "" {
		c.Service.VocabularyPath = defaultVocabularyPath
	}

	if c.Embedding.ServiceURL == "" {
		c.Embedding.ServiceURL = defaultEmbeddingServiceURL
	}
	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = defaultEmbeddingTimeout
	}
	if c.Embedding.InferenceSlots <= 0 {
		c.Embedding.InferenceSlots = defaultInferenceSlots
	}

	if c.Providers.Timeout <= 0 {
		c.Providers.Timeout = defaultProviderTimeout
	}
	if c.Providers.PerProviderResults <= 0 {
		c.Providers.PerProviderResults = defaultPerProviderResults
	}

	if c.Pipeline.MaxCandidates <= 0 {
		c.Pipeline.MaxCandidates = defaultMaxCandidates
	}
	if c.Pipeline.MoodboardSize <= 0 {
		c.Pipeline.MoodboardSize = defaultMoodboardSize
	}
	if c.Pipeline.MaxSearchKeywords <= 0 {
		c.Pipeline.MaxSearchKeywords = defaultMaxSearchKeywords
	}
	if c.Pipeline.AggregateTimeout <= 0 {
		c.Pipeline.AggregateTimeout = defaultAggregateTimeout
	}
	if c.Pipeline.CandidateTimeout <= 0 {
		c.Pipeline.CandidateTimeout = defaultCandidateTimeout
	}
	if c.Pipeline.MinConfidence <= 0 {
		c.Pipeline.MinConfidence = defaultMinConfidence
	}
	if c.Pipeline.SupportingThreshold <= 0 {
		c.Pipeline.SupportingThreshold = defaultSupportingThreshold
	}
	if c.Pipeline.PrimarySimilarity <= 0 {
		c.Pipeline.PrimarySimilarity = defaultPrimarySimilarity
	}
	if c.Pipeline.SecondarySimilarity <= 0 {
		c.Pipeline.SecondarySimilarity = defaultSecondarySimilarity
	}
	if c.Pipeline.MinRankedImages <= 0 {
		c.Pipeline.MinRankedImages = defaultMinRankedImages
	}

	if c.Redis.Timeout <= 0 {
		c.Redis.Timeout = defaultRedisTimeout
	}
	if c.Redis.ClassificationCacheTTL <= 0 {
		c.Redis.ClassificationCacheTTL = defaultClassificationCacheTTL
	}
	if c.Redis.ProviderCacheTTL <= 0 {
		c.Redis.ProviderCacheTTL = defaultProviderCacheTTL
	}

	c.Logging.SetDefaults()
}
