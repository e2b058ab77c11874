package domain

import (
	"sort"
	"time"
)

// Unit statuses as they appear in the run report.
const (
	StatusOrganized    = "organized"
	StatusUnclassified = "unclassified"
	StatusFailed       = "failed"
	StatusCoverMissing = "cover_missing"
)

// UnitResult is the per-unit outcome record. The orchestrator converts
// every per-unit error into one of these instead of letting it propagate;
// only configuration failures abort the run.
type UnitResult struct {
	UnitID    string   `json:"unit_id"`
	GroupKey  string   `json:"group_key"`
	Status    string   `json:"status"`
	Author    string   `json:"author,omitempty"`
	Path      string   `json:"path,omitempty"`
	Source    string   `json:"source,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"`
	ErrorMsg  string   `json:"error_msg,omitempty"`
	Files     []string `json:"files,omitempty"`
}

// RunSummary holds the counters the exit contract requires.
type RunSummary struct {
	Organized    int `json:"organized"`
	Unclassified int `json:"unclassified"`
	Failed       int `json:"failed"`
	CoverMissing int `json:"cover_missing"`
}

// RunReport is the stable end-of-run output. Finalize must be called before
// it is rendered or serialized.
type RunReport struct {
	SourceDir  string       `json:"source_dir"`
	LibraryDir string       `json:"library_dir"`
	DryRun     bool         `json:"dry_run"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Summary    RunSummary   `json:"summary"`
	Units      []UnitResult `json:"units"`
}

// Finalize normalizes times to UTC, stable-sorts units by final path (units
// without a path sort last, by group key), and recomputes the summary from
// the unit records. Output must not depend on completion order.
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Units, func(i, j int) bool {
		a, b := r.Units[i], r.Units[j]
		if a.Path != b.Path {
			if a.Path == "" {
				return false
			}
			if b.Path == "" {
				return true
			}
			return a.Path < b.Path
		}
		return a.GroupKey < b.GroupKey
	})

	var s RunSummary
	for _, u := range r.Units {
		switch u.Status {
		case StatusOrganized:
			s.Organized++
		case StatusUnclassified:
			s.Unclassified++
		case StatusFailed:
			s.Failed++
		case StatusCoverMissing:
			s.CoverMissing++
		}
	}
	r.Summary = s
}
