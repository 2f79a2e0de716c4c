package script

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"mvdan.cc/sh/v3/syntax"

	"github.com/me/slurmgo/pkg/model"
)

var envKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Data is what a script template is executed with.
type Data struct {
	Name     string
	LogDir   string
	Header   string
	Preamble string
	Exports  []string
	Command  string
}

// Renderer turns a JobSpec and a command into script text.
type Renderer struct {
	tmpl        *template.Template
	checkSyntax bool
}

// NewRenderer parses text as the script template; empty text selects
// DefaultTemplate. With checkSyntax the command must parse as bash.
func NewRenderer(text string, checkSyntax bool) (*Renderer, error) {
	if text == "" {
		text = DefaultTemplate
	}
	tmpl, err := template.New("script").Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil, &model.ConfigError{Field: "template", Message: err.Error()}
	}
	return &Renderer{tmpl: tmpl, checkSyntax: checkSyntax}, nil
}

// Render produces the full script for one submission named name. Output is
// a pure function of its arguments.
func (r *Renderer) Render(spec *model.JobSpec, name, command string, env map[string]string) (string, error) {
	if r.checkSyntax {
		if err := CheckBash(command); err != nil {
			return "", err
		}
	}

	if strings.ContainsAny(spec.LogDir, "\r\n") {
		return "", &model.ConfigError{Field: "log_dir", Message: "must be a single line"}
	}

	header, preamble, err := BuildDirectives(spec.Options, spec.BashStrict)
	if err != nil {
		return "", err
	}
	exports, err := Exports(env)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = r.tmpl.Execute(&buf, Data{
		Name:     name,
		LogDir:   strings.TrimRight(spec.LogDir, "/"),
		Header:   header,
		Preamble: preamble,
		Exports:  exports,
		Command:  command,
	})
	if err != nil {
		return "", fmt.Errorf("execute script template: %w", err)
	}
	return buf.String(), nil
}

// Exports renders one "export KEY=VALUE" line per entry, sorted by key.
// Values are quoted for bash only when they need it.
func Exports(env map[string]string) ([]string, error) {
	keys := make([]string, 0, len(env))
	for k := range env {
		if !envKey.MatchString(k) {
			return nil, &model.ConfigError{Field: "env", Message: fmt.Sprintf("%q is not a valid variable name", k)}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := syntax.Quote(env[k], syntax.LangBash)
		if err != nil {
			return nil, &model.ConfigError{Field: "env", Message: fmt.Sprintf("%s: %v", k, err)}
		}
		lines = append(lines, "export "+k+"="+v)
	}
	return lines, nil
}

// CheckBash parses command as bash without running it.
func CheckBash(command string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(strings.NewReader(command), ""); err != nil {
		return &model.ConfigError{Field: "command", Message: err.Error()}
	}
	return nil
}
