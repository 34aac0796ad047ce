package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/s3"
	"gopkg.in/yaml.v3"
)

// DefaultSpaceKey is the wiki space used when none is configured.
const DefaultSpaceKey = "CIPPMOPF"

// Chunking strategies accepted in CHUNK_STRATEGY.
const (
	ChunkSemantic  = "semantic"
	ChunkWholePage = "whole_page"
)

// PageConfig is one monitored page in the pages file.
type PageConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// PagesFile is the YAML document listing monitored pages.
type PagesFile struct {
	SpaceKey string       `yaml:"space_key"`
	Schedule string       `yaml:"schedule"`
	Pages    []PageConfig `yaml:"pages"`
}

// Config holds the settings shared by every command. It is assembled from
// the environment and the optional pages file.
type Config struct {
	BaseURL  string
	Email    string
	APIToken string
	SpaceKey string
	PageIDs  []string
	Schedule string

	BlobDir string
	S3      s3.Config

	RedisAddr string

	GeminiAPIKey string

	ElasticsearchURL    string
	ElasticsearchAPIKey string
	ElasticsearchIndex  string

	RelayURL      string
	ChunkStrategy string
}

// LoadConfig reads configuration from getenv and, when pagesPath is set,
// from the pages file. Page IDs from the environment come first; pages from
// the file are appended without duplicates.
func LoadConfig(getenv func(string) string, pagesPath string) (*Config, error) {
	cfg := &Config{
		BaseURL:             getenv("WIKI_BASE_URL"),
		Email:               getenv("WIKI_EMAIL"),
		APIToken:            getenv("WIKI_API_TOKEN"),
		SpaceKey:            getenv("SPACE_KEY"),
		PageIDs:             splitList(getenv("PAGE_IDS")),
		BlobDir:             getenv("BLOB_DIR"),
		RedisAddr:           getenv("REDIS_ADDR"),
		GeminiAPIKey:        getenv("GEMINI_API_KEY"),
		ElasticsearchURL:    getenv("ELASTICSEARCH_URL"),
		ElasticsearchAPIKey: getenv("ELASTICSEARCH_API_KEY"),
		ElasticsearchIndex:  getenv("ELASTICSEARCH_INDEX"),
		RelayURL:            getenv("RELAY_URL"),
		ChunkStrategy:       getenv("CHUNK_STRATEGY"),
		S3: s3.Config{
			Bucket:    getenv("S3_BUCKET"),
			Prefix:    getenv("S3_PREFIX"),
			Region:    getenv("S3_REGION"),
			Endpoint:  getenv("S3_ENDPOINT"),
			PublicURL: getenv("S3_PUBLIC_URL"),
		},
	}

	if pagesPath != "" {
		file, err := ReadPagesFile(pagesPath)
		if err != nil {
			return nil, err
		}
		if cfg.SpaceKey == "" {
			cfg.SpaceKey = file.SpaceKey
		}
		cfg.Schedule = file.Schedule
		for _, p := range file.Pages {
			cfg.PageIDs = appendUnique(cfg.PageIDs, p.ID)
		}
	}

	if cfg.SpaceKey == "" {
		cfg.SpaceKey = DefaultSpaceKey
	}
	if cfg.ChunkStrategy == "" {
		cfg.ChunkStrategy = ChunkSemantic
	}
	return cfg, nil
}

// ReadPagesFile decodes a pages file.
func ReadPagesFile(path string) (*PagesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "read pages file %s: %v", path, err)
	}
	var file PagesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "invalid YAML in %s: %v", path, err)
	}
	for i, p := range file.Pages {
		if strings.TrimSpace(p.ID) == "" {
			return nil, wikidigest.Errorf(wikidigest.EINVALID, "%s: page %d has no id", path, i+1)
		}
	}
	return &file, nil
}

// ValidateWiki checks the settings needed to read pages.
func (c *Config) ValidateWiki() error {
	switch {
	case c.BaseURL == "":
		return missing("WIKI_BASE_URL")
	case c.Email == "":
		return missing("WIKI_EMAIL")
	case c.APIToken == "":
		return missing("WIKI_API_TOKEN")
	}
	return nil
}

// ValidatePipeline checks the settings needed for a full processing run.
func (c *Config) ValidatePipeline() error {
	if err := c.ValidateWiki(); err != nil {
		return err
	}
	switch {
	case c.GeminiAPIKey == "":
		return missing("GEMINI_API_KEY")
	case c.ElasticsearchURL == "":
		return missing("ELASTICSEARCH_URL")
	case c.BlobDir == "" && c.S3.Bucket == "":
		return wikidigest.Errorf(wikidigest.EINVALID, "BLOB_DIR or S3_BUCKET must be set")
	}
	if c.ChunkStrategy != ChunkSemantic && c.ChunkStrategy != ChunkWholePage {
		return wikidigest.Errorf(wikidigest.EINVALID, "CHUNK_STRATEGY must be %q or %q, got %q", ChunkSemantic, ChunkWholePage, c.ChunkStrategy)
	}
	return nil
}

func missing(name string) error {
	return wikidigest.Errorf(wikidigest.EINVALID, "%s environment variable not set", name)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		out = appendUnique(out, part)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// hint returns advice printed next to a configuration error.
func hint(err error) string {
	msg := wikidigest.ErrorMessage(err)
	switch {
	case strings.HasPrefix(msg, "GEMINI_API_KEY"):
		return "Get an API key at https://aistudio.google.com/apikey"
	case strings.HasPrefix(msg, "WIKI_"):
		return "Set WIKI_BASE_URL, WIKI_EMAIL and WIKI_API_TOKEN in the environment or a .env file"
	case strings.HasPrefix(msg, "BLOB_DIR"):
		return "Set BLOB_DIR to store artifacts on disk or S3_BUCKET to use object storage"
	}
	return fmt.Sprintf("Check your configuration: %s", msg)
}
