// Package dependency composes SLURM --dependency expressions.
package dependency

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/me/slurmgo/pkg/model"
)

// Kind is a SLURM dependency type.
type Kind string

const (
	After            Kind = "after"
	AfterAny         Kind = "afterany"
	AfterBurstBuffer Kind = "afterburstbuffer"
	AfterCorr        Kind = "aftercorr"
	AfterNotOK       Kind = "afternotok"
	AfterOK          Kind = "afterok"
	Expand           Kind = "expand"
)

// DefaultKind is used when no kind is given.
const DefaultKind = AfterOK

var kinds = []Kind{After, AfterAny, AfterBurstBuffer, AfterCorr, AfterNotOK, AfterOK, Expand}

// Kinds returns the accepted dependency kinds.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Valid reports whether k is one of the accepted kinds.
func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts s to a Kind. The empty string yields DefaultKind.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultKind, nil
	}
	k := Kind(strings.ToLower(s))
	if !k.Valid() {
		return "", &model.ConfigError{
			Field:   "dependency kind",
			Message: fmt.Sprintf("%q is not one of %s", s, joinKinds()),
		}
	}
	return k, nil
}

func joinKinds() string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// Spec is a set of prerequisite jobs sharing one dependency kind.
// An empty JobIDs means no dependency.
type Spec struct {
	Kind   Kind
	JobIDs []int64
}

// Validate rejects unknown kinds and non-positive job ids.
func (s Spec) Validate() error {
	if s.Kind != "" && !s.Kind.Valid() {
		return &model.ConfigError{
			Field:   "dependency kind",
			Message: fmt.Sprintf("%q is not one of %s", s.Kind, joinKinds()),
		}
	}
	for _, id := range s.JobIDs {
		if id <= 0 {
			return &model.ConfigError{Field: "dependency job id", Message: strconv.FormatInt(id, 10)}
		}
	}
	return nil
}

// Clause renders "kind:id1:id2:...", or "" when there are no ids.
func (s Spec) Clause() string {
	if len(s.JobIDs) == 0 {
		return ""
	}
	kind := s.Kind
	if kind == "" {
		kind = DefaultKind
	}
	var b strings.Builder
	b.WriteString(string(kind))
	for _, id := range s.JobIDs {
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// Retry renders the clause that holds a retry until its predecessor failed.
func Retry(prior int64) string {
	return Spec{Kind: AfterNotOK, JobIDs: []int64{prior}}.Clause()
}

// Join combines independent clauses with ',', which SLURM treats as a
// logical AND. Empty clauses are skipped.
func Join(clauses ...string) string {
	var nonEmpty []string
	for _, c := range clauses {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	return strings.Join(nonEmpty, ",")
}

// Compose builds the expression for one submission attempt: the external
// prerequisites, plus an afternotok clause on prior when the attempt is a
// retry. prior is nil for the first attempt.
func Compose(specs []Spec, prior *int64) string {
	clauses := make([]string, 0, len(specs)+1)
	for _, s := range specs {
		clauses = append(clauses, s.Clause())
	}
	if prior != nil {
		clauses = append(clauses, Retry(*prior))
	}
	return Join(clauses...)
}

// ValidateAll validates each spec, returning the first failure.
func ValidateAll(specs []Spec) error {
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
