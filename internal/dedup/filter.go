package dedup

import (
	"fmt"
	"strings"
)

// InconsistencyError reports a corrupt existing-ids snapshot. Failing loudly
// beats silently risking a wrong dedup decision.
type InconsistencyError struct {
	Reason string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("existing imported-id snapshot is inconsistent: %s", e.Reason)
}

// Partition splits candidates into new rows and duplicates. A candidate is a
// duplicate iff its imported id is already present in existing. Duplicates
// must never be reinserted; a true-new row wrongly classified as duplicate is
// a correctness bug, not a trade-off.
func Partition(candidates []Candidate, existing map[string]struct{}) (fresh, duplicates []Candidate, err error) {
	for id := range existing {
		if strings.TrimSpace(id) == "" {
			return nil, nil, &InconsistencyError{Reason: "blank imported id in stored set"}
		}
	}
	for _, c := range candidates {
		if _, dup := existing[c.ImportedID]; dup {
			duplicates = append(duplicates, c)
		} else {
			fresh = append(fresh, c)
		}
	}
	return fresh, duplicates, nil
}
