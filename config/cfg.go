package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"rflow/paginate"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	PaginationConfig struct {
		VisibleColumns int           `yaml:"visible_columns" validate:"min=1,max=8"`
		ColumnGap      int           `yaml:"column_gap" validate:"gte=0"`
		SettleDelay    time.Duration `yaml:"settle_delay" validate:"gte=0"`
	}

	SwitchesConfig struct {
		SupportedNamespaces []string `yaml:"supported_namespaces" validate:"dive,required"`
	}

	RendererConfig struct {
		ExecPath       string        `yaml:"exec_path,omitempty" sanitize:"path_clean"`
		Headless       bool          `yaml:"headless"`
		Args           []string      `yaml:"args,omitempty" validate:"dive,required"`
		Width          int           `yaml:"width" validate:"min=100"`
		Height         int           `yaml:"height" validate:"min=100"`
		LoadTimeout    time.Duration `yaml:"load_timeout" validate:"gt=0"`
		StylesheetPath string        `yaml:"stylesheet_path,omitempty" sanitize:"assure_file_access"`
	}

	ReportConfig struct {
		Format       ReportFormat `yaml:"format" validate:"gte=0"`
		LineTemplate string       `yaml:"line_template" validate:"required_if=Format 0"`
	}

	Config struct {
		Version    int              `yaml:"version" validate:"eq=1"`
		Pagination PaginationConfig `yaml:"pagination"`
		Switches   SwitchesConfig   `yaml:"switches"`
		Renderer   RendererConfig   `yaml:"renderer"`
		Report     ReportConfig     `yaml:"report"`
		Logging    LoggingConfig    `yaml:"logging"`
		Reporting  ReporterConfig   `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, line template is expanded by
	// measure for every content unit, not at load time
	LineTemplateFieldName TemplateFieldName = "line_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(LineTemplateFieldName)),
)

// Paginator converts pagination section into engine configuration.
func (c *PaginationConfig) Paginator() paginate.Config {
	return paginate.Config{
		VisibleColumnCount: c.VisibleColumns,
		ColumnGap:          c.ColumnGap,
		SettleDelay:        c.SettleDelay,
	}
}

// Stylesheet returns content of user stylesheet, nil if none configured.
func (c *RendererConfig) Stylesheet() ([]byte, error) {
	if len(c.StylesheetPath) == 0 {
		return nil, nil
	}
	data, err := os.ReadFile(c.StylesheetPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read user stylesheet: %w", err)
	}
	return data, nil
}

// Browser returns configured browser executable, or one found on the system.
// Empty result lets renderer fall back to its own lookup.
func (c *RendererConfig) Browser() string {
	if len(c.ExecPath) > 0 {
		return c.ExecPath
	}
	return findBrowser()
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
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

	// overwrite cfg values with values from the file
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
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
