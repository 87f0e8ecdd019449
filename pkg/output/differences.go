package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/rdt/pkg/models"
)

// JSONDifferenceData represents one differing path
type JSONDifferenceData struct {
	Path       string            `json:"path"`
	Kind       string            `json:"kind"`
	Reasons    []string          `json:"reasons,omitempty"`
	SourceInfo *JSONFileInfoData `json:"source_info,omitempty"`
	DestInfo   *JSONFileInfoData `json:"dest_info,omitempty"`
}

// JSONFileInfoData represents entry metadata in JSON
type JSONFileInfoData struct {
	Kind       string `json:"kind"`
	Size       int64  `json:"size"`
	ModTime    string `json:"mod_time"`
	Mode       string `json:"mode"`
	LinkTarget string `json:"link_target,omitempty"`
	Hash       string `json:"hash,omitempty"`
}

// WriteDifferencesReport writes the differences of a run to a file.
// Format can be "human" or "json". Nothing is written when the trees match.
func WriteDifferencesReport(report *models.SyncReport, diffs []models.DiffEntry, path string, format string) error {
	changes := make([]models.DiffEntry, 0, len(diffs))
	for _, d := range diffs {
		if d.Kind != models.Unchanged {
			changes = append(changes, d)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create differences file: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		return writeDifferencesJSON(report, changes, file)
	default:
		return writeDifferencesHuman(report, changes, file)
	}
}

// writeDifferencesHuman writes differences in human-readable format
func writeDifferencesHuman(report *models.SyncReport, diffs []models.DiffEntry, w io.Writer) error {
	fmt.Fprintf(w, "Differences Report\n")
	fmt.Fprintf(w, "==================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Source: %s\n", report.SourcePath)
	fmt.Fprintf(w, "Destination: %s\n", report.DestPath)
	fmt.Fprintf(w, "Mode: %s\n", report.Mode)
	fmt.Fprintf(w, "Dry Run: %v\n\n", report.DryRun)
	fmt.Fprintf(w, "Total Differences: %d\n\n", len(diffs))

	byKind := make(map[models.DiffKind][]models.DiffEntry)
	for _, d := range diffs {
		byKind[d.Kind] = append(byKind[d.Kind], d)
	}

	sections := []struct {
		kind  models.DiffKind
		label string
	}{
		{models.OnlyInSource, "Only in Source"},
		{models.OnlyInDestination, "Only in Destination"},
		{models.Changed, "Changed"},
	}
	for _, sec := range sections {
		entries := byKind[sec.kind]
		if len(entries) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d paths)", sec.label, len(entries))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		for _, d := range entries {
			fmt.Fprintf(w, "  %s\n", d.Path)
			if len(d.Reasons) > 0 {
				fmt.Fprintf(w, "    Reasons: %s\n", joinReasons(d.Reasons))
			}
			if d.Source != nil {
				fmt.Fprintf(w, "    Source:  %s\n", describeEntry(d.Source))
			}
			if d.Dest != nil {
				fmt.Fprintf(w, "    Dest:    %s\n", describeEntry(d.Dest))
			}
		}
		fmt.Fprintf(w, "\n")
	}

	if failures := report.Failures(); len(failures) > 0 {
		label := fmt.Sprintf("Errors (%d operations)", len(failures))
		fmt.Fprintf(w, "%s\n%s\n", label, strings.Repeat("-", len(label)))
		for _, res := range failures {
			fmt.Fprintf(w, "  %s\n    %s [%s] %s\n", res.Operation.Path, res.Status, res.Code, res.Error)
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

func describeEntry(e *models.Entry) string {
	switch e.Kind {
	case models.KindDir:
		return "directory"
	case models.KindSymlink:
		return "symlink -> " + e.LinkTarget
	case models.KindFile:
		s := fmt.Sprintf("%s, %s, %s", formatBytes(e.Size), e.ModTime.Format(time.RFC3339), e.Perm())
		if len(e.Hash) >= 12 {
			s += ", hash: " + e.Hash[:12]
		}
		return s
	default:
		return string(e.Kind)
	}
}

func joinReasons(reasons []models.ChangeReason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// writeDifferencesJSON writes differences in JSON format
func writeDifferencesJSON(report *models.SyncReport, diffs []models.DiffEntry, w io.Writer) error {
	output := struct {
		Generated   string               `json:"generated"`
		SourcePath  string               `json:"source_path"`
		DestPath    string               `json:"dest_path"`
		Mode        string               `json:"mode"`
		DryRun      bool                 `json:"dry_run"`
		TotalCount  int                  `json:"total_count"`
		Differences []JSONDifferenceData `json:"differences"`
	}{
		Generated:  time.Now().Format(time.RFC3339),
		SourcePath: report.SourcePath,
		DestPath:   report.DestPath,
		Mode:       string(report.Mode),
		DryRun:     report.DryRun,
		TotalCount: len(diffs),
	}
	for _, d := range diffs {
		output.Differences = append(output.Differences, NewJSONDifference(d))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// NewJSONDifference converts a diff entry to its JSON representation
func NewJSONDifference(d models.DiffEntry) JSONDifferenceData {
	data := JSONDifferenceData{
		Path:       d.Path,
		Kind:       string(d.Kind),
		SourceInfo: fileInfo(d.Source),
		DestInfo:   fileInfo(d.Dest),
	}
	for _, r := range d.Reasons {
		data.Reasons = append(data.Reasons, string(r))
	}
	return data
}

func fileInfo(e *models.Entry) *JSONFileInfoData {
	if e == nil {
		return nil
	}
	return &JSONFileInfoData{
		Kind:       string(e.Kind),
		Size:       e.Size,
		ModTime:    e.ModTime.Format(time.RFC3339),
		Mode:       e.Mode.String(),
		LinkTarget: e.LinkTarget,
		Hash:       e.Hash,
	}
}
