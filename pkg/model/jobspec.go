package model

import "fmt"

// Defaults applied by NewJobSpec.
const (
	DefaultScriptsDir = "slurm-scripts"
	DefaultLogDir     = "logs"
)

// JobSpec is the per-job submission configuration. It is never mutated by
// a submission; per-submission names are derived from Name.
type JobSpec struct {
	Name       string  `yaml:"name" json:"name"`
	Options    Options `yaml:"options,omitempty" json:"-"`
	ScriptsDir string  `yaml:"scripts_dir,omitempty" json:"scripts_dir,omitempty"` // empty: private temp file
	LogDir     string  `yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
	BashStrict bool    `yaml:"bash_strict" json:"bash_strict"`
	DateInName bool    `yaml:"date_in_name" json:"date_in_name"`
}

// NewJobSpec sanitizes name and fills in defaults: scripts under
// DefaultScriptsDir, logs under DefaultLogDir, strict bash and a date suffix
// in submission names.
func NewJobSpec(name string, opts Options) (*JobSpec, error) {
	spec := &JobSpec{
		Name:       name,
		Options:    opts.Clone(),
		ScriptsDir: DefaultScriptsDir,
		LogDir:     DefaultLogDir,
		BashStrict: true,
		DateInName: true,
	}
	if err := spec.Normalize(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Normalize sanitizes Name in place and checks the result is usable.
// It is idempotent.
func (s *JobSpec) Normalize() error {
	raw := s.Name
	s.Name = SanitizeName(raw)
	if s.Name == "" {
		return &ConfigError{Field: "name", Message: fmt.Sprintf("%q has no usable characters", raw)}
	}
	if s.LogDir == "" {
		s.LogDir = DefaultLogDir
	}
	return nil
}
