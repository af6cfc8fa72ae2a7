package dialogue

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Config is the operator-facing tuning file. Zero values mean "use the
// built-in default"; the file may set any subset.
type Config struct {
	Retrieval struct {
		SemanticWeight float64 `yaml:"semantic_weight"`
		LexicalWeight  float64 `yaml:"lexical_weight"`
		PoolSize       int     `yaml:"pool_size"`
		RerankTop      int     `yaml:"rerank_top"`
		QueryVariants  int     `yaml:"query_variants"`
	} `yaml:"retrieval"`

	Blocklist struct {
		ExtraTerms []string `yaml:"extra_terms"`
	} `yaml:"blocklist"`
}

// DefaultConfig returns the built-in tuning values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Retrieval.SemanticWeight = 0.6
	cfg.Retrieval.LexicalWeight = 0.4
	cfg.Retrieval.PoolSize = 20
	cfg.Retrieval.RerankTop = 5
	cfg.Retrieval.QueryVariants = 5
	return cfg
}

// LoadConfig reads a YAML tuning file and overlays it on the defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}

	if overlay.Retrieval.SemanticWeight > 0 {
		cfg.Retrieval.SemanticWeight = overlay.Retrieval.SemanticWeight
	}
	if overlay.Retrieval.LexicalWeight > 0 {
		cfg.Retrieval.LexicalWeight = overlay.Retrieval.LexicalWeight
	}
	if overlay.Retrieval.PoolSize > 0 {
		cfg.Retrieval.PoolSize = overlay.Retrieval.PoolSize
	}
	if overlay.Retrieval.RerankTop > 0 {
		cfg.Retrieval.RerankTop = overlay.Retrieval.RerankTop
	}
	if overlay.Retrieval.QueryVariants > 0 {
		cfg.Retrieval.QueryVariants = overlay.Retrieval.QueryVariants
	}
	cfg.Blocklist.ExtraTerms = overlay.Blocklist.ExtraTerms

	return cfg, nil
}
