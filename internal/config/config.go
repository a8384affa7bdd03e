package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vector index backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderStub   = "stub"
)

// Config holds the ragdex configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Database    DatabaseConfig    `yaml:"database"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	Normalize   NormalizeConfig   `yaml:"normalize"`
	Search      SearchConfig      `yaml:"search"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the embedded document store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// VectorIndexConfig selects where chunk vectors are searched.
type VectorIndexConfig struct {
	Backend          string   `yaml:"backend"` // sqlite (default), redis
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	IndexName        string   `yaml:"index_name"`
	KeyPrefix        string   `yaml:"key_prefix"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embeddings provider settings.
type EmbeddingConfig struct {
	Provider            string      `yaml:"provider"` // openai (default), stub
	APIKey              string      `yaml:"api_key"`
	BaseURL             string      `yaml:"base_url"`
	Model               string      `yaml:"model"`
	Dimensions          int         `yaml:"dimensions"`
	BatchSize           int         `yaml:"batch_size"`
	RequestsPerSecond   float64     `yaml:"requests_per_second"`
	TimeoutSec          int         `yaml:"timeout_sec"`
	DocumentInstruction string      `yaml:"document_instruction"`
	QueryInstruction    string      `yaml:"query_instruction"`
	Cache               CacheConfig `yaml:"cache"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 keeps entries forever
}

// ChunkingConfig holds chunk sizing.
type ChunkingConfig struct {
	MaxChars      int `yaml:"max_chars"`
	OverlapChars  int `yaml:"overlap_chars"`
	MinChunkChars int `yaml:"min_chunk_chars"`
}

// ExtractionConfig holds upload limits and scanned-PDF thresholds.
type ExtractionConfig struct {
	MaxBytes           int64   `yaml:"max_bytes"`
	ScannedMinChars    int     `yaml:"scanned_min_chars"`
	NearEmptyPageChars int     `yaml:"near_empty_page_chars"`
	NearEmptyPageRatio float64 `yaml:"near_empty_page_ratio"`
}

// NormalizeConfig holds hyphenation repair thresholds.
type NormalizeConfig struct {
	HyphenMinPrefix int `yaml:"hyphen_min_prefix"`
	HyphenMinSuffix int `yaml:"hyphen_min_suffix"`
}

// SearchConfig holds query tuning.
type SearchConfig struct {
	DefaultTopK     int `yaml:"default_top_k"`
	MaxTopK         int `yaml:"max_top_k"`
	OverfetchFactor int `yaml:"overfetch_factor"`
	MaxCandidates   int `yaml:"max_candidates"`
	MinTokenLen     int `yaml:"min_token_len"`
	ExcerptChars    int `yaml:"excerpt_chars"`
}

// IngestConfig holds ingest queue settings.
type IngestConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
	JobRetention  int `yaml:"job_retention"`
	MaxBatchSize  int `yaml:"max_batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, then applies
// defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Path == "" {
		c.Database.Path = "data/ragdex.db"
	}

	if c.VectorIndex.Backend == "" {
		c.VectorIndex.Backend = BackendSQLite
	}
	if c.VectorIndex.HNSWM <= 0 {
		c.VectorIndex.HNSWM = 16
	}
	if c.VectorIndex.HNSWEFConstruct <= 0 {
		c.VectorIndex.HNSWEFConstruct = 200
	}
	if c.VectorIndex.ReadinessTimeout <= 0 {
		c.VectorIndex.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}

	if c.Chunking.MaxChars <= 0 {
		c.Chunking.MaxChars = 1200
	}
	if c.Chunking.OverlapChars <= 0 {
		c.Chunking.OverlapChars = 150
	}
	if c.Chunking.MinChunkChars <= 0 {
		c.Chunking.MinChunkChars = 200
	}

	if c.Extraction.MaxBytes <= 0 {
		c.Extraction.MaxBytes = 50 << 20
	}
	if c.Extraction.ScannedMinChars <= 0 {
		c.Extraction.ScannedMinChars = 50
	}
	if c.Extraction.NearEmptyPageChars <= 0 {
		c.Extraction.NearEmptyPageChars = 10
	}
	if c.Extraction.NearEmptyPageRatio <= 0 {
		c.Extraction.NearEmptyPageRatio = 0.8
	}

	if c.Normalize.HyphenMinPrefix <= 0 {
		c.Normalize.HyphenMinPrefix = 2
	}
	if c.Normalize.HyphenMinSuffix <= 0 {
		c.Normalize.HyphenMinSuffix = 3
	}

	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 50
	}
	if c.Search.OverfetchFactor <= 0 {
		c.Search.OverfetchFactor = 5
	}
	if c.Search.MaxCandidates <= 0 {
		c.Search.MaxCandidates = 200
	}
	if c.Search.MinTokenLen <= 0 {
		c.Search.MinTokenLen = 3
	}
	if c.Search.ExcerptChars <= 0 {
		c.Search.ExcerptChars = 600
	}

	if c.Ingest.QueueCapacity <= 0 {
		c.Ingest.QueueCapacity = 256
	}
	if c.Ingest.JobRetention <= 0 {
		c.Ingest.JobRetention = 1000
	}
	if c.Ingest.MaxBatchSize <= 0 {
		c.Ingest.MaxBatchSize = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.VectorIndex.Backend {
	case BackendSQLite:
	case BackendRedis:
		if len(c.VectorIndex.Addrs) == 0 {
			return fmt.Errorf("vector_index.addrs is required for the redis backend")
		}
	default:
		return fmt.Errorf("vector_index.backend must be %q or %q, got %q",
			BackendSQLite, BackendRedis, c.VectorIndex.Backend)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderStub:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderStub, c.Embedding.Provider)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}

	if c.Chunking.OverlapChars >= c.Chunking.MaxChars {
		return fmt.Errorf("chunking.overlap_chars (%d) must be less than chunking.max_chars (%d)",
			c.Chunking.OverlapChars, c.Chunking.MaxChars)
	}

	if c.Extraction.NearEmptyPageRatio > 1 {
		return fmt.Errorf("extraction.near_empty_page_ratio must be at most 1, got %g",
			c.Extraction.NearEmptyPageRatio)
	}

	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) must not exceed search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
