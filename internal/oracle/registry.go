package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Ginaitlady/AI-auto-trading-Bitcoin/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// PromptFile maps the on-disk oracle definition: the system prompt sent every
// cycle and the JSON schema its replies must satisfy.
type PromptFile struct {
	SystemPrompt string         `yaml:"system_prompt"`
	Schema       map[string]any `yaml:"schema"`
}

// PromptSnapshot is one immutable load of the prompt file.
type PromptSnapshot struct {
	Version      int64
	LoadedAt     time.Time
	SystemPrompt string

	schema *jsonschema.Schema
}

// ValidateReply checks a decoded oracle reply against the compiled schema.
func (s PromptSnapshot) ValidateReply(doc any) error {
	if s.schema == nil {
		return nil
	}
	return s.schema.Validate(doc)
}

// Registry loads the oracle prompt file and hot-reloads it on change, so the
// prompt and schema can be tuned without restarting the trader.
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot PromptSnapshot
}

func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("oracle registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read oracle prompt config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("oracle prompt reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current prompt and schema.
func (r *Registry) Snapshot() PromptSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

func (r *Registry) reload() error {
	cfg, err := readPromptFile(r.path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		return fmt.Errorf("oracle prompt config %s: system_prompt is empty", r.path)
	}
	var schema *jsonschema.Schema
	if len(cfg.Schema) > 0 {
		schema, err = compileSchema(cfg.Schema)
		if err != nil {
			return fmt.Errorf("oracle schema compile failed: %w", err)
		}
	}
	r.mu.Lock()
	r.snapshot = PromptSnapshot{
		Version:      r.snapshot.Version + 1,
		LoadedAt:     time.Now(),
		SystemPrompt: cfg.SystemPrompt,
		schema:       schema,
	}
	r.mu.Unlock()
	logger.Infof("Oracle prompt registry loaded from %s", filepath.Base(r.path))
	return nil
}

func readPromptFile(path string) (PromptFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PromptFile{}, fmt.Errorf("read oracle prompt config failed: %w", err)
	}
	var cfg PromptFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return PromptFile{}, fmt.Errorf("parse oracle prompt config failed: %w", err)
	}
	return cfg, nil
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}
