package parser

import (
	"regexp"
	"strings"

	"github.com/eambriza/pmp-coach/internal/model"
)

var optionLineRegex = regexp.MustCompile(`^([A-D])\.\s*(.*)$`)

// parseOptionsField splits a combined options cell into the four choices.
// Each choice starts on a line prefixed "<Letter>. "; lines without a
// prefix continue the current choice and are joined with a single space.
// Text before the first prefix is ignored.
func parseOptionsField(text string) model.Choices {
	var choices model.Choices

	var current model.Option
	var buf string
	flush := func() {
		if current != "" && buf != "" {
			choices.Set(current, strings.TrimSpace(buf))
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		if m := optionLineRegex.FindStringSubmatch(line); m != nil {
			flush()
			current = model.Option(m[1])
			buf = m[2]
			continue
		}
		if current != "" {
			buf += " " + line
		}
	}
	flush()

	return choices
}

// splitTags turns a comma-separated cell into trimmed, non-empty tags.
func splitTags(cell string) []string {
	tags := []string{}
	for _, t := range strings.Split(cell, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
