package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/sdejongh/rdt/pkg/models"
)

// ColorEnabled reports whether colored output should be written to w
func ColorEnabled(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(w)
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// Listing streams walked entries and diff lines, as text or JSON lines
type Listing struct {
	w       io.Writer
	json    bool
	enc     *json.Encoder
	palette *Palette
}

// NewListing creates a listing writer. format is "human" or "json".
func NewListing(w io.Writer, format string, useColor bool) *Listing {
	return &Listing{
		w:       w,
		json:    format == "json",
		enc:     json.NewEncoder(w),
		palette: NewPalette(useColor && format != "json"),
	}
}

type jsonEntry struct {
	Path       string `json:"path"`
	Kind       string `json:"kind"`
	Size       int64  `json:"size"`
	ModTime    string `json:"mod_time"`
	Mode       string `json:"mode"`
	LinkTarget string `json:"link_target,omitempty"`
}

// Entry writes one walked entry
func (l *Listing) Entry(e models.Entry) error {
	if l.json {
		return l.enc.Encode(jsonEntry{
			Path:       e.Path,
			Kind:       string(e.Kind),
			Size:       e.Size,
			ModTime:    e.ModTime.Format(time.RFC3339Nano),
			Mode:       e.Mode.String(),
			LinkTarget: e.LinkTarget,
		})
	}
	_, err := fmt.Fprintln(l.w, e.Path)
	return err
}

// Diff writes one comparison line. Unchanged paths are only written when
// unchanged is set.
func (l *Listing) Diff(d models.DiffEntry, unchanged bool) error {
	if d.Kind == models.Unchanged && !unchanged {
		return nil
	}
	if l.json {
		return l.enc.Encode(NewJSONDifference(d))
	}

	var path string
	switch d.Kind {
	case models.OnlyInSource:
		path = l.palette.added.Sprint(d.Path)
	case models.OnlyInDestination:
		path = l.palette.removed.Sprint(d.Path)
	case models.Changed:
		path = l.palette.modified.Sprint(d.Path)
	default:
		path = l.palette.unchanged.Sprint(d.Path)
	}
	_, err := fmt.Fprintf(l.w, "%s %s\n", d.Symbol(), path)
	return err
}

// Warnings writes walk and plan warnings
func (l *Listing) Warnings(warnings []models.Warning) error {
	for _, w := range warnings {
		if l.json {
			if err := l.enc.Encode(JSONWarning{Path: w.Path, Code: string(w.Code), Message: w.Message}); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(l.w, "%s %s: %s\n", l.palette.warn.Sprint("warning:"), w.Path, w.Message); err != nil {
			return err
		}
	}
	return nil
}
