package pipeline

// Batch is the slice of candidates actually submitted in one call, plus the
// counts surfaced to the caller for transparency.
type Batch struct {
	URLs      []string
	Requested int
	Allowed   int
	Dropped   int
}

// MakeBatch truncates candidates to min(len(candidates), perRequestMax,
// credits), taken from the front in original order. It never mutates the
// credit balance; deduction is a separate step after submission.
func MakeBatch(candidates []string, perRequestMax int, credits int64) Batch {
	allowed := len(candidates)
	if perRequestMax > 0 && allowed > perRequestMax {
		allowed = perRequestMax
	}
	if int64(allowed) > credits {
		allowed = int(credits)
	}
	if allowed < 0 {
		allowed = 0
	}

	return Batch{
		URLs:      candidates[:allowed],
		Requested: len(candidates),
		Allowed:   allowed,
		Dropped:   len(candidates) - allowed,
	}
}
