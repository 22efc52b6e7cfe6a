package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml
var ConfigTmpl []byte

type (
	// Duration is a time.Duration kept in YAML as "168h" rather than nanoseconds.
	Duration time.Duration

	Source struct {
		Name    string `yaml:"name" validate:"required,excludesall=/"`
		URL     string `yaml:"url" validate:"required"`
		BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	}

	Config struct {
		Version          int           `yaml:"version" validate:"eq=1"`
		DataDir          string        `yaml:"data_dir"`
		CacheTTL         Duration      `yaml:"cache_ttl" validate:"gte=0"`
		MaxResults       int           `yaml:"max_results" validate:"min=1,max=20"`
		FetchConcurrency int           `yaml:"fetch_concurrency" validate:"min=1,max=64"`
		Sources          []Source      `yaml:"sources" validate:"dive"`
		Logging          LoggingConfig `yaml:"logging"`
	}
)

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// uniqueSources rejects two sources sharing a name since the name keys the
// documents of a site in the index
func uniqueSources(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if seen[src.Name] {
			sl.ReportError(cfg.Sources[i].Name, fmt.Sprintf("Sources[%d].Name", i), "Name", "unique", "")
		}
		seen[src.Name] = true
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// Only fields defined above are accepted, so yaml.Unmarshal is not enough
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(uniqueSources)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of the expanded default template and
// performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
