package publish

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"taskdeck/internal/model"
)

// RenderProjectMarkdown renders a project as a Markdown page: a meta block and
// its tasks as a list, in stored order.
func RenderProjectMarkdown(p model.Project) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.ID
	}
	writeLn("# " + name)
	writeLn("")

	writeLn("## Meta")
	writeLn("")
	writeLn("- ID: " + p.ID)
	if ts := formatTimestamp(p.CreatedAt); ts != "" {
		writeLn("- Created: " + ts)
	}
	writeLn("- Tasks: " + strconv.Itoa(len(p.Tasks)))
	writeLn("")

	writeLn("## Tasks")
	writeLn("")
	if len(p.Tasks) == 0 {
		writeLn("_No tasks._")
		return buf.String()
	}
	for _, t := range p.Tasks {
		line := "- " + escapeInline(t.Name)
		if ts := formatTimestamp(t.CreatedAt); ts != "" {
			line += " (" + ts + ")"
		}
		writeLn(line)
	}
	return buf.String()
}

func formatTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := time.Parse(model.TimestampLayout, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

// escapeInline keeps task names from turning into Markdown structure.
func escapeInline(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)
	return r.Replace(s)
}
