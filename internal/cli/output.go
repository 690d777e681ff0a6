package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/cohort/internal/presentation/tui"
	"github.com/aretw0/cohort/pkg/domain"
)

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// inspectReport is the JSON document printed by inspect.
type inspectReport struct {
	Identity    *int              `json:"identity"`
	Experiments []domain.Snapshot `json:"experiments"`
}

// Inspect writes the identity and every experiment snapshot to w.
// Pretty renders markdown through glamour; otherwise JSON is written.
func (a *App) Inspect(ctx context.Context, w io.Writer, pretty bool) error {
	inspector := a.Inspector()
	identity, allocated, err := inspector.Identity(ctx)
	if err != nil {
		return err
	}
	snapshots, err := inspector.Experiments(ctx)
	if err != nil {
		return err
	}

	if pretty {
		out, err := tui.NewRenderer()(tui.SnapshotsMarkdown(identity, allocated, snapshots))
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}

	report := inspectReport{Experiments: snapshots}
	if allocated {
		report.Identity = &identity
	}
	return WriteJSON(w, report)
}
