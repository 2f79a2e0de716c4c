package script

import (
	"fmt"
	"strings"

	"github.com/me/slurmgo/pkg/model"
)

const (
	// DirectiveMarker prefixes every scheduler directive line.
	DirectiveMarker = "#SBATCH"

	// DefaultTime is the wall-clock limit injected when no time option is given.
	DefaultTime = "84:00:00"

	// StrictMode is the preamble emitted for strict bash.
	StrictMode = "set -eo pipefail -o nounset"
)

// Directive renders one option as a directive line. One-letter keys use the
// short form "-k value"; longer keys use "--key=value". Bare flags carry no
// value.
func Directive(opt model.Option) string {
	var flag string
	switch {
	case len(opt.Key) == 1 && opt.IsFlag():
		flag = "-" + opt.Key
	case len(opt.Key) == 1:
		flag = "-" + opt.Key + " " + *opt.Value
	case opt.IsFlag():
		flag = "--" + opt.Key
	default:
		flag = "--" + opt.Key + "=" + *opt.Value
	}
	return DirectiveMarker + " " + flag
}

// BuildDirectives renders the directive header, one line per option in the
// given order, plus the bash preamble. A time option is appended when opts
// has none.
func BuildDirectives(opts model.Options, bashStrict bool) (header, preamble string, err error) {
	if !opts.Has("time") {
		opts = opts.Set("time", DefaultTime)
	}

	lines := make([]string, 0, len(opts))
	for _, opt := range opts {
		if err := validateKey(opt.Key); err != nil {
			return "", "", err
		}
		if opt.Value != nil && strings.ContainsAny(*opt.Value, "\r\n") {
			return "", "", &model.ConfigError{Field: "option", Message: fmt.Sprintf("value of %q spans more than one line", opt.Key)}
		}
		lines = append(lines, Directive(opt))
	}

	if bashStrict {
		preamble = StrictMode
	}
	return strings.Join(lines, "\n"), preamble, nil
}

func validateKey(key string) error {
	switch {
	case key == "":
		return &model.ConfigError{Field: "option", Message: "empty key"}
	case strings.HasPrefix(key, "-"):
		return &model.ConfigError{Field: "option", Message: fmt.Sprintf("key %q must not start with '-'", key)}
	case strings.ContainsAny(key, " \t\r\n="):
		return &model.ConfigError{Field: "option", Message: fmt.Sprintf("key %q contains whitespace or '='", key)}
	}
	return nil
}
