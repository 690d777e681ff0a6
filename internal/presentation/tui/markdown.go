package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/cohort/pkg/domain"
)

// SnapshotsMarkdown renders the identity and experiment snapshots as a markdown report.
func SnapshotsMarkdown(identity int, allocated bool, snapshots []domain.Snapshot) string {
	var b strings.Builder

	b.WriteString("# Experiments\n\n")
	if allocated {
		fmt.Fprintf(&b, "User identity: **%d**\n\n", identity)
	} else {
		b.WriteString("User identity: _not allocated_\n\n")
	}

	if len(snapshots) == 0 {
		b.WriteString("_No experiments defined or stored._\n")
		return b.String()
	}

	b.WriteString("| Experiment | Sample | Expiry | Variant | State |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, s := range snapshots {
		expiry := "-"
		if s.Expiry != nil {
			expiry = s.Expiry.Format(time.RFC3339)
		}
		variant := "-"
		if s.Assignment != nil {
			variant = "`" + s.Assignment.VariantID + "`"
		}
		id := s.ID
		if !s.Defined {
			id += " (undefined)"
		}
		fmt.Fprintf(&b, "| %s | %.0f%% | %s | %s | %s |\n", id, s.SampleSize*100, expiry, variant, s.State)
	}

	for _, s := range snapshots {
		if len(s.Variants) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", s.ID)
		if s.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", s.Description)
		}
		for _, v := range s.Variants {
			fmt.Fprintf(&b, "- `%s` weight %g\n", v.ID, v.Weight)
		}
	}
	return b.String()
}
