package session

import (
	"fmt"
	"strings"
)

// ProgressPolicy maps cumulative XP to a 0-100 progress bar value. The tracker
// does not report level thresholds, so the mapping is cosmetic.
type ProgressPolicy interface {
	Percent(xp int64) int
}

// ProgressFunc adapts a function to ProgressPolicy.
type ProgressFunc func(xp int64) int

func (f ProgressFunc) Percent(xp int64) int { return f(xp) }

var (
	// ProgressThousands treats every 100k XP as a bar, one percent per 1000 XP.
	ProgressThousands ProgressPolicy = ProgressFunc(func(xp int64) int {
		if xp <= 0 {
			return 0
		}
		return int(min((xp%100000)/1000, 100))
	})
	// ProgressHundred is the plain xp mod 100 variant.
	ProgressHundred ProgressPolicy = ProgressFunc(func(xp int64) int {
		if xp <= 0 {
			return 0
		}
		return int(xp % 100)
	})
)

// ProgressPolicyByName resolves a configured policy name. The empty name
// selects ProgressThousands.
func ProgressPolicyByName(name string) (ProgressPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "thousands":
		return ProgressThousands, nil
	case "hundred":
		return ProgressHundred, nil
	default:
		return nil, fmt.Errorf("unknown progress policy %q", name)
	}
}
