package dependency

import (
	"errors"
	"strings"
	"testing"

	"github.com/me/slurmgo/pkg/model"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if got, err := ParseKind(""); err != nil || got != AfterOK {
		t.Errorf("ParseKind(\"\") = %q, %v, want afterok", got, err)
	}
	if got, err := ParseKind(" AfterAny "); err != nil || got != AfterAny {
		t.Errorf("ParseKind(AfterAny) = %q, %v", got, err)
	}
	if _, err := ParseKind("afterwards"); !errors.Is(err, model.ErrConfig) {
		t.Errorf("ParseKind(afterwards) error = %v, want ErrConfig", err)
	}
}

func TestSpec_ClauseEveryKind(t *testing.T) {
	for _, k := range Kinds() {
		got := Spec{Kind: k, JobIDs: []int64{1, 22, 333}}.Clause()
		want := string(k) + ":1:22:333"
		if got != want {
			t.Errorf("Clause(%s) = %q, want %q", k, got, want)
		}
		if empty := (Spec{Kind: k}).Clause(); empty != "" {
			t.Errorf("Clause(%s) with no ids = %q, want empty", k, empty)
		}
	}
}

func TestSpec_DefaultKind(t *testing.T) {
	if got := (Spec{JobIDs: []int64{42}}).Clause(); got != "afterok:42" {
		t.Errorf("Clause = %q, want afterok:42", got)
	}
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		spec    Spec
		wantErr bool
	}{
		{Spec{Kind: AfterOK, JobIDs: []int64{1}}, false},
		{Spec{}, false},
		{Spec{Kind: "later"}, true},
		{Spec{Kind: "later", JobIDs: []int64{1}}, true},
		{Spec{Kind: After, JobIDs: []int64{0}}, true},
		{Spec{Kind: After, JobIDs: []int64{-5}}, true},
	}
	for _, tt := range tests {
		err := tt.spec.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, model.ErrConfig) {
			t.Errorf("Validate(%+v) error %v is not a ConfigError", tt.spec, err)
		}
	}
}

func TestCompose(t *testing.T) {
	prior := int64(100)
	tests := []struct {
		name  string
		specs []Spec
		prior *int64
		want  string
	}{
		{"nothing", nil, nil, ""},
		{"empty ids", []Spec{{Kind: AfterOK}}, nil, ""},
		{"external only", []Spec{{Kind: AfterOK, JobIDs: []int64{42}}}, nil, "afterok:42"},
		{"retry only", nil, &prior, "afternotok:100"},
		{"external and retry", []Spec{{Kind: AfterOK, JobIDs: []int64{42, 43}}}, &prior, "afterok:42:43,afternotok:100"},
		{
			"two external kinds",
			[]Spec{{Kind: AfterOK, JobIDs: []int64{1}}, {Kind: After, JobIDs: []int64{2}}},
			nil,
			"afterok:1,after:2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compose(tt.specs, tt.prior); got != tt.want {
				t.Errorf("Compose = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJoinSkipsEmpty(t *testing.T) {
	if got := Join("", "afterok:1", "", "afternotok:2"); got != "afterok:1,afternotok:2" {
		t.Errorf("Join = %q", got)
	}
	if got := Join("", ""); got != "" {
		t.Errorf("Join of empties = %q", got)
	}
}

func TestValidateAll(t *testing.T) {
	err := ValidateAll([]Spec{{Kind: AfterOK, JobIDs: []int64{1}}, {Kind: "bogus", JobIDs: []int64{2}}})
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("ValidateAll error = %v, want mention of bogus", err)
	}
}
