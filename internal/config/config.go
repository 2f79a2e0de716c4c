// Package config loads slurmgo settings from defaults, an optional YAML
// file and SLURMGO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/me/slurmgo/internal/executor"
	"github.com/me/slurmgo/internal/logging"
	"github.com/me/slurmgo/pkg/model"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SLURMGO_"

// Commands names the external binaries slurmgo invokes.
type Commands struct {
	executor.SlurmCommands `yaml:",inline"`
	Shell                  string `yaml:"shell"`
}

// Config holds settings shared by every command.
type Config struct {
	ScriptsDir   string        `yaml:"scripts_dir"` // "" writes private temp scripts
	LogDir       string        `yaml:"log_dir"`
	BashStrict   bool          `yaml:"bash_strict"`
	DateInName   bool          `yaml:"date_in_name"`
	Tries        int           `yaml:"tries"`
	CheckSyntax  bool          `yaml:"check_syntax"`
	Template     string        `yaml:"template"`      // inline script template
	TemplateFile string        `yaml:"template_file"` // read when Template is empty
	Options      model.Options `yaml:"options"`       // defaults for every job
	Commands     Commands      `yaml:"commands"`
	DBPath       string        `yaml:"db_path"` // "off" disables the ledger
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
}

// LedgerOff as DBPath disables the submission ledger.
const LedgerOff = "off"

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ScriptsDir: model.DefaultScriptsDir,
		LogDir:     model.DefaultLogDir,
		BashStrict: true,
		DateInName: true,
		Tries:      1,
		Commands: Commands{
			SlurmCommands: executor.DefaultSlurmCommands(),
			Shell:         "bash",
		},
		LogLevel:  "info",
		LogFormat: logging.FormatText,
	}
}

// DefaultPath returns ~/.slurmgo/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".slurmgo", "config.yaml"), nil
}

// DefaultDBPath returns ~/.slurmgo/jobs.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".slurmgo", "jobs.db"), nil
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path tries DefaultPath and skips it when absent.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		err := cfg.loadFile(path)
		switch {
		case err == nil:
		case !explicit && errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Template == "" && c.TemplateFile != "" {
		tmpl := c.TemplateFile
		if !filepath.IsAbs(tmpl) {
			tmpl = filepath.Join(filepath.Dir(path), tmpl)
		}
		text, err := os.ReadFile(tmpl)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		c.Template = string(text)
	}
	return nil
}

// ApplyEnv overrides fields from SLURMGO_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SCRIPTS_DIR": &c.ScriptsDir,
		"LOG_DIR":     &c.LogDir,
		"DB":          &c.DBPath,
		"LOG_LEVEL":   &c.LogLevel,
		"LOG_FORMAT":  &c.LogFormat,
		"SBATCH":      &c.Commands.Submit,
		"SCONTROL":    &c.Commands.Show,
		"SCANCEL":     &c.Commands.Cancel,
		"SHELL":       &c.Commands.Shell,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"BASH_STRICT":  &c.BashStrict,
		"DATE_IN_NAME": &c.DateInName,
		"CHECK_SYNTAX": &c.CheckSyntax,
	}
	for name, dst := range bools {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &model.ConfigError{Field: EnvPrefix + name, Message: fmt.Sprintf("%q is not a boolean", v)}
		}
		*dst = b
	}

	if v, ok := lookup(EnvPrefix + "TRIES"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &model.ConfigError{Field: EnvPrefix + "TRIES", Message: fmt.Sprintf("%q is not an integer", v)}
		}
		c.Tries = n
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Tries < 1 {
		return &model.ConfigError{Field: "tries", Message: fmt.Sprintf("%d is less than 1", c.Tries)}
	}
	if _, err := logging.LookupLevel(c.LogLevel); err != nil {
		return &model.ConfigError{Field: "log_level", Message: err.Error()}
	}
	if !logging.ValidFormat(c.LogFormat) {
		return &model.ConfigError{Field: "log_format", Message: fmt.Sprintf("%q is not text or json", c.LogFormat)}
	}
	return nil
}

// ResolveDBPath returns the ledger path, creating its directory. It
// returns "" when the ledger is disabled.
func (c *Config) ResolveDBPath() (string, error) {
	path := c.DBPath
	switch path {
	case LedgerOff:
		return "", nil
	case "":
		p, err := DefaultDBPath()
		if err != nil {
			return "", err
		}
		path = p
	case ":memory:":
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return path, nil
}

// JobSpec builds a JobSpec named name from the configured defaults. opts
// entries override configured options with the same key.
func (c *Config) JobSpec(name string, opts model.Options) (*model.JobSpec, error) {
	merged := c.Options.Clone()
	for _, o := range opts {
		if o.IsFlag() {
			merged = merged.SetFlag(o.Key)
		} else {
			merged = merged.Set(o.Key, *o.Value)
		}
	}

	spec := &model.JobSpec{
		Name:       name,
		Options:    merged,
		ScriptsDir: c.ScriptsDir,
		LogDir:     c.LogDir,
		BashStrict: c.BashStrict,
		DateInName: c.DateInName,
	}
	if err := spec.Normalize(); err != nil {
		return nil, err
	}
	return spec, nil
}
