package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRegime is returned by LookupRegime
var ErrUnknownRegime = errors.New("unknown regime")

// Regime names
const (
	RegimeCapped        = "capped"
	RegimeMinimumCommit = "minimum-commit"
)

// Regime is a named movement policy
type Regime struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MinRun      int    `json:"min_run"`
	MaxRun      int    `json:"max_run"`
	Policy      Policy `json:"-"`
}

var regimes = []Regime{
	{
		Name:        RegimeCapped,
		Description: "At most 3 moves in a straight line; may turn at any time",
		MinRun:      1,
		MaxRun:      3,
		Policy:      CappedPolicy,
	},
	{
		Name:        RegimeMinimumCommit,
		Description: "At least 4 moves in a straight line before turning; at most 10",
		MinRun:      4,
		MaxRun:      10,
		Policy:      MinimumCommitPolicy,
	},
}

var regimeAliases = map[string]string{
	"part1":  RegimeCapped,
	"first":  RegimeCapped,
	"part2":  RegimeMinimumCommit,
	"second": RegimeMinimumCommit,
	"ultra":  RegimeMinimumCommit,
}

// Regimes returns the built-in regimes in presentation order
func Regimes() []Regime {
	out := make([]Regime, len(regimes))
	copy(out, regimes)
	return out
}

// LookupRegime finds a regime by name or alias, case-insensitively
func LookupRegime(name string) (Regime, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := regimeAliases[key]; ok {
		key = alias
	}
	for _, r := range regimes {
		if r.Name == key {
			return r, nil
		}
	}
	return Regime{}, fmt.Errorf("%w: %q", ErrUnknownRegime, name)
}
