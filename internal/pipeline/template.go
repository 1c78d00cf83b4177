package pipeline

import (
	"adcrew/internal"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// placeholders returns the task IDs referenced by tmpl.
func placeholders(tmpl string) []string {
	var ids []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// bind substitutes each placeholder with the output of the matching entry.
// Placeholders without an entry are left untouched.
func bind(tmpl string, entries []internal.Entry) string {
	outputs := make(map[string]string, len(entries))
	for _, e := range entries {
		outputs[e.TaskID] = e.Output
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		id := placeholderRe.FindStringSubmatch(m)[1]
		if out, ok := outputs[id]; ok {
			return out
		}
		return m
	})
}
