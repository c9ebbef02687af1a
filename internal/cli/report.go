package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/Tydik42/desbordante-core/internal/verifier"
)

// maxListedIDs caps the transaction ids printed per cluster unless verbose.
const maxListedIDs = 20

// RenderJSON writes v as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// RenderResult writes a human readable report of a single verification.
func RenderResult(w io.Writer, r verifier.Result, verbose bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Support:      %s (min %s)\n", formatRatio(r.Support), formatRatio(r.MinSupport))
	fmt.Fprintf(&b, "Confidence:   %s (min %s)\n", formatRatio(r.Confidence), formatRatio(r.MinConfidence))
	fmt.Fprintf(&b, "Threshold:    %s\n", formatRatio(r.Threshold))
	fmt.Fprintf(&b, "Relevant:     %d of %d transactions\n", r.NumRelevant, r.NumTransactions)
	fmt.Fprintf(&b, "Violating:    %d transactions in %d clusters\n", r.NumTransactionsViolating, r.NumClusters)
	fmt.Fprintf(&b, "Elapsed:      %s\n\n", r.Elapsed)
	b.WriteString(FormatVerdict(r.Holds))

	title := r.Rule
	if r.Name != "" {
		title = r.Name + ": " + r.Rule
	}
	if _, err := fmt.Fprintln(w, RenderBox(RuleIcon+" "+title, b.String())); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if len(r.Clusters) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No transactions are close enough to the rule."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("Priority"),
		TableHeaderStyle.Render("Meaning"),
		TableHeaderStyle.Render("Count"),
		TableHeaderStyle.Render("Transactions")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range r.Clusters {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n",
			c.Priority,
			verifier.PriorityLabel(c.Priority),
			len(c.TransactionIDs),
			formatIDs(c.TransactionIDs, verbose)); err != nil {
			return fmt.Errorf("failed to write cluster row: %w", err)
		}
	}
	return tw.Flush()
}

// RenderBatch writes one table row per rule.
func RenderBatch(w io.Writer, results []verifier.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("Name"),
		TableHeaderStyle.Render("Rule"),
		TableHeaderStyle.Render("Support"),
		TableHeaderStyle.Render("Confidence"),
		TableHeaderStyle.Render("Relevant"),
		TableHeaderStyle.Render("Violating"),
		TableHeaderStyle.Render("Holds")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range results {
		holds := ErrorStyle.Render(ErrorIcon)
		if r.Holds {
			holds = SuccessStyle.Render(SuccessIcon)
		}
		relevant := strconv.Itoa(r.NumRelevant)
		if r.SameRelevantAs >= 0 {
			relevant += SubtleStyle.Render(fmt.Sprintf(" (= %s)", results[r.SameRelevantAs].Name))
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Name,
			r.Rule,
			formatRatio(r.Support),
			formatRatio(r.Confidence),
			relevant,
			r.NumTransactionsViolating,
			holds); err != nil {
			return fmt.Errorf("failed to write rule row: %w", err)
		}
	}
	return tw.Flush()
}

// ItemSupport is the number of transactions containing an item.
type ItemSupport struct {
	Item    string  `json:"item"`
	Count   int     `json:"count"`
	Support float64 `json:"support"`
}

// RenderItemSupports writes an item support table.
func RenderItemSupports(w io.Writer, items []ItemSupport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n",
		TableHeaderStyle.Render("Item"),
		TableHeaderStyle.Render("Transactions"),
		TableHeaderStyle.Render("Support")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, it := range items {
		name := it.Item
		if name == "" {
			name = SubtleStyle.Render("<null>")
		}
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%s\n", name, it.Count, formatRatio(it.Support)); err != nil {
			return fmt.Errorf("failed to write item row: %w", err)
		}
	}
	return tw.Flush()
}

// RenderDatasets writes a table of stored datasets.
func RenderDatasets(w io.Writer, datasets []model.DatasetInfo) error {
	if len(datasets) == 0 {
		_, err := fmt.Fprintln(w, InfoStyle.Render("No datasets found. Use 'arverify import' to add one."))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n",
		TableHeaderStyle.Render("Name"),
		TableHeaderStyle.Render("Transactions"),
		TableHeaderStyle.Render("Items")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, d := range datasets {
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%d\n", d.Name, d.NumTransactions, d.NumItems); err != nil {
			return fmt.Errorf("failed to write dataset row: %w", err)
		}
	}
	return tw.Flush()
}

func formatRatio(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatIDs(ids []int, verbose bool) string {
	shown := ids
	if !verbose && len(ids) > maxListedIDs {
		shown = ids[:maxListedIDs]
	}
	parts := make([]string, len(shown))
	for i, id := range shown {
		parts[i] = strconv.Itoa(id)
	}
	out := strings.Join(parts, ", ")
	if len(shown) < len(ids) {
		out += fmt.Sprintf(", … (%d more)", len(ids)-len(shown))
	}
	return out
}
