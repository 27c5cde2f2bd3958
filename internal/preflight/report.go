package preflight

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteReport renders the human-readable report: a PASS/FAIL banner
// followed by itemized diagnostics grouped by stage.
func WriteReport(w io.Writer, res *Result) {
	banner := string(res.Status)
	id := ""
	if res.PlanID != "" {
		id = fmt.Sprintf(" plan=%s tier=%s", res.PlanID, res.Tier)
	}
	fmt.Fprintf(w, "PREFLIGHT %s%s (%s)\n", banner, id, res.PlanPath)

	for _, stage := range res.Stages {
		if stage.Skipped {
			fmt.Fprintf(w, "  [%s] SKIPPED: %s\n", stage.Stage, stage.SkipReason)
			continue
		}
		fmt.Fprintf(w, "  [%s] %s\n", stage.Stage, stage.Status)
		for _, d := range stage.Diagnostics {
			fmt.Fprintf(w, "    %s\n", d)
		}
	}
}

// WriteJSON renders the structured result for automated consumption.
func WriteJSON(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
