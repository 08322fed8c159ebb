package engine

// Policy lists the headings that may be taken next, given the current
// heading and run length. Implementations must be pure and must never
// return the reverse of h. Returned slices are shared; callers must not
// modify them.
type Policy func(h Heading, run int) []Heading

var (
	// CappedPolicy allows at most three moves in a straight line
	CappedPolicy = Capped(3)

	// MinimumCommitPolicy requires four straight moves before turning and
	// allows at most ten
	MinimumCommitPolicy = MinimumCommit(4, 10)
)

// transition tables indexed by heading, built once
var (
	anyHeading    = Headings[:]
	straightOnly  [4][]Heading
	turnsOnly     [4][]Heading
	turnsStraight [4][]Heading
)

func init() {
	for _, h := range Headings {
		p := h.perpendicular()
		straightOnly[h] = []Heading{h}
		turnsOnly[h] = []Heading{p[0], p[1]}
		turnsStraight[h] = []Heading{h, p[0], p[1]}
	}
}

// Capped returns a policy where the crucible may continue straight while
// its run is below maxRun and may always turn.
func Capped(maxRun int) Policy {
	return func(h Heading, run int) []Heading {
		if run == 0 {
			return anyHeading
		}
		if run < maxRun {
			return turnsStraight[h]
		}
		return turnsOnly[h]
	}
}

// MinimumCommit returns a policy where the crucible must keep straight until
// its run reaches minRun and must turn once it reaches maxRun.
func MinimumCommit(minRun, maxRun int) Policy {
	return func(h Heading, run int) []Heading {
		switch {
		case run == 0:
			return anyHeading
		case run < minRun:
			return straightOnly[h]
		case run < maxRun:
			return turnsStraight[h]
		default:
			return turnsOnly[h]
		}
	}
}

// allows reports whether policy permits moving along next from state s
func allows(policy Policy, s State, next Heading) bool {
	for _, h := range policy(s.Heading, s.Run) {
		if h == next {
			return true
		}
	}
	return false
}
