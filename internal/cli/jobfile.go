package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/me/slurmgo/pkg/model"
)

// JobFile is the YAML description of one job, read by `run -f`.
type JobFile struct {
	Name         string            `yaml:"name"`
	Options      model.Options     `yaml:"options"`
	Env          map[string]string `yaml:"env"`
	DependsOn    []int64           `yaml:"depends_on"`
	DependsHow   string            `yaml:"depends_how"`
	After        []int64           `yaml:"after"`
	Tries        int               `yaml:"tries"`
	Local        bool              `yaml:"local"`
	NameAddition string            `yaml:"name_addition"`
	Command      string            `yaml:"command"`
}

// ReadJobFile parses the job file at path.
func ReadJobFile(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	var jf JobFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&jf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	return &jf, nil
}
