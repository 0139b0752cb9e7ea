package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

// render writes v as json or yaml, or calls table for the default format.
func render(w io.Writer, format string, v any, table func(tw *tabwriter.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// через json, чтобы ключи совпадали с API
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func taskTable(tw *tabwriter.Writer, tasks []model.Task) {
	fmt.Fprintln(tw, "ID\tSTATUS\tPRI\tDATE\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Status, orDash(t.Priority), orDash(t.ScheduledDate), t.Title)
	}
}

func taskLine(t model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s [%s]", t.ID, t.Title, t.Status)
	if t.Priority != nil {
		fmt.Fprintf(&b, " !%s", *t.Priority)
	}
	if t.ScheduledDate != nil {
		fmt.Fprintf(&b, " @%s", *t.ScheduledDate)
	}
	return b.String()
}

func orDash[T ~string](v *T) string {
	if v == nil {
		return "-"
	}
	return string(*v)
}
