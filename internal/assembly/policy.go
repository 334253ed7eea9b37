package assembly

import (
	"path/filepath"
	"strings"
)

// SelectionPolicy decides which files of an assembly directory to download.
// It is derived once per run from the requested filename substrings and
// applied uniformly to every matched row.
//
// Each requested substring becomes an inclusion glob. The rna and cds
// variants of the genomic sequence files are excluded by default because
// their names embed the plain "genomic.fna" substring; an exclusion is
// dropped as soon as any requested substring asks for that variant.
type SelectionPolicy struct {
	// Include patterns; a file must match at least one.
	Include []string

	// Exclude patterns; matching any of them wins over Include.
	Exclude []string
}

// NewSelectionPolicy derives a policy from filename substrings, e.g.
// []string{"genomic.fna", "genomic.gff"}.
func NewSelectionPolicy(fileTypes []string) SelectionPolicy {
	var policy SelectionPolicy
	wantRNA := false
	wantCDS := false

	for _, t := range fileTypes {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		policy.Include = append(policy.Include, "*"+t+"*")

		lower := strings.ToLower(t)
		if strings.Contains(lower, "rna") {
			wantRNA = true
		}
		if strings.Contains(lower, "cds") {
			wantCDS = true
		}
	}

	if !wantRNA {
		policy.Exclude = append(policy.Exclude, "*rna*")
	}
	if !wantCDS {
		policy.Exclude = append(policy.Exclude, "*cds*")
	}

	return policy
}

// ParseFileTypes splits the comma-separated --files argument into the
// substring list NewSelectionPolicy expects.
func ParseFileTypes(s string) []string {
	parts := strings.Split(s, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			types = append(types, trimmed)
		}
	}
	return types
}

// Selects reports whether a file name passes the policy. Exclusions are
// checked first; with no inclusion patterns every non-excluded file passes.
func (p SelectionPolicy) Selects(name string) bool {
	for _, pattern := range p.Exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return false
		}
	}

	if len(p.Include) == 0 {
		return true
	}
	for _, pattern := range p.Include {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
