// Package script builds and persists SLURM batch scripts.
package script

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/me/slurmgo/pkg/model"
)

// DateLayout is the timestamp appended to submission names. It avoids ':'
// so the result stays a valid sanitized token.
const DateLayout = "2006-01-02T15-04-05"

// NoAddition suppresses the command hash in SubmissionName.
const NoAddition = "-"

// hashLen is the number of hex digits of the command hash used as the
// default name addition.
const hashLen = 12

// SubmissionName derives the per-submission name from a base job name.
// An empty addition defaults to a short SHA-1 of command; an addition made
// only of spaces and hyphens adds nothing. The result is sanitized.
func SubmissionName(base, addition, command string, dateInName bool, now time.Time) string {
	if addition == "" {
		sum := sha1.Sum([]byte(command))
		addition = hex.EncodeToString(sum[:])[:hashLen]
	}
	parts := []string{
		strings.Trim(base, " -"),
		strings.Trim(addition, " -"),
	}
	if dateInName {
		parts = append(parts, now.Format(DateLayout))
	}

	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Trim(model.SanitizeName(strings.Join(kept, "-")), "-")
}
