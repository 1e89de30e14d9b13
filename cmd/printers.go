package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/teemow/odoocal/internal/attendee"
	"github.com/teemow/odoocal/internal/favorites"
	"github.com/teemow/odoocal/internal/notify"
)

// outputOptions selects between tables and JSON
type outputOptions struct {
	JSON bool
}

func addOutputFlag(cmd *cobra.Command, o *outputOptions) {
	cmd.Flags().BoolVar(&o.JSON, "json", false, "Output as JSON.")
}

// print writes v as JSON, or calls table for the human readable form.
func (o *outputOptions) print(w io.Writer, v any, table func(io.Writer)) error {
	if !o.JSON {
		table(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printFilters renders the filter sidebar
func printFilters(w io.Writer, entries []favorites.FilterEntry) {
	if len(entries) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(w, "no filters")
		return
	}

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("NAME"), bold.Sprint("COLOR"), bold.Sprint("REMOVABLE"))
	for _, e := range entries {
		removable := faint.Sprint("no")
		if e.CanBeRemoved {
			removable = "yes"
		}
		id := fmt.Sprint(e.Value)
		if e.Value == favorites.EverybodyID {
			id = faint.Sprint("-")
		}
		tbl.AddRow(id, e.Label, e.Color, removable)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

// statusColors highlights participation statuses
var statusColors = map[string]*color.Color{
	"accepted":    color.New(color.FgGreen),
	"declined":    color.New(color.FgRed),
	"tentative":   color.New(color.FgYellow),
	"needsAction": color.New(color.Faint),
}

// printTags renders attendee tags
func printTags(w io.Writer, tags []attendee.Tag) {
	if len(tags) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(w, "no attendees")
		return
	}

	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("NAME"), bold.Sprint("STATUS"), bold.Sprint("COLOR"))
	for _, t := range tags {
		status := t.Status
		if c, ok := statusColors[status]; ok {
			status = c.Sprint(status)
		}
		tbl.AddRow(t.ID, t.DisplayName, status, t.Color)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

// terminalSink prints reminders as they are shown and closed
type terminalSink struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

func newTerminalSink(w io.Writer, jsonOutput bool) *terminalSink {
	return &terminalSink{w: w, json: jsonOutput}
}

// Shown implements notify.Sink.
func (s *terminalSink) Shown(n *notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.json {
		b, _ := json.Marshal(struct {
			Event string `json:"event"`
			*notify.Notification
		}{"shown", n})
		_, _ = fmt.Fprintln(s.w, string(b))
		return
	}

	ts := color.New(color.Faint).Sprint(n.ShownAt.Format("15:04"))
	title := color.New(color.Bold, color.FgYellow).Sprint(n.Title)
	_, _ = fmt.Fprintf(s.w, "%s %s %s\n", ts, title, color.New(color.Faint).Sprintf("(event %d)", n.EventID))
	if msg := strings.TrimSpace(n.Message); msg != "" {
		_, _ = fmt.Fprintf(s.w, "      %s\n", msg)
	}
}

// Closed implements notify.Sink.
func (s *terminalSink) Closed(n *notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.json {
		_, _ = fmt.Fprintf(s.w, "{\"event\":\"closed\",\"event_id\":%d}\n", n.EventID)
		return
	}
	_, _ = color.New(color.Faint).Fprintf(s.w, "      closed: %s\n", n.Title)
}

// loadingIndicator shows a "Loading..." line on w while calls are in
// flight.
type loadingIndicator struct {
	mu    sync.Mutex
	w     io.Writer
	depth int
}

func newLoadingIndicator(w io.Writer) *loadingIndicator {
	return &loadingIndicator{w: w}
}

// Begin implements rpc.LoadingIndicator.
func (l *loadingIndicator) Begin() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.depth++
	if l.depth == 1 {
		_, _ = color.New(color.Faint).Fprint(l.w, "Loading...\r")
	}
}

// End implements rpc.LoadingIndicator.
func (l *loadingIndicator) End() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.depth == 0 {
		return
	}
	l.depth--
	if l.depth == 0 {
		_, _ = fmt.Fprint(l.w, "\r          \r")
	}
}

// promptConfirmer asks on w and reads a y/N answer from r.
func promptConfirmer(r io.Reader, w io.Writer) favorites.Confirmer {
	reader := bufio.NewReader(r)
	return favorites.ConfirmFunc(func(_ context.Context, message string) (bool, error) {
		_, _ = fmt.Fprintf(w, "%s [y/N] ", message)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}
