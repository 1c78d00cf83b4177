package generator

import (
	"fmt"
	"strings"
)

const maxContextChars = 6000

// BuildSystemPrompt renders the actor's identity.
func BuildSystemPrompt(id Identity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", strings.TrimSpace(id.Role))
	if backstory := strings.TrimSpace(id.Backstory); backstory != "" {
		fmt.Fprintf(&b, "%s\n", backstory)
	}
	if goal := strings.TrimSpace(id.Goal); goal != "" {
		fmt.Fprintf(&b, "\nYour personal goal is: %s\n", goal)
	}
	b.WriteString("\nAnswer with your final result only. Do not describe your reasoning steps.")
	return b.String()
}

// BuildUserPrompt renders the task with its context and tool observations.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("## Current task\n")
	b.WriteString(strings.TrimSpace(req.Description))
	b.WriteString("\n")

	if expected := strings.TrimSpace(req.ExpectedOutput); expected != "" {
		b.WriteString("\n## Expected output\n")
		b.WriteString(expected)
		b.WriteString("\n")
	}
	if human := strings.TrimSpace(req.HumanInput); human != "" {
		b.WriteString("\n## Input from the user\n")
		b.WriteString(human)
		b.WriteString("\n")
	}
	if len(req.Context) > 0 {
		b.WriteString("\n## Context from previous tasks\n")
		for _, item := range req.Context {
			fmt.Fprintf(&b, "### %s\n%s\n", item.TaskID, truncate(strings.TrimSpace(item.Output), maxContextChars))
		}
	}
	if len(req.Observations) > 0 {
		b.WriteString("\n## Tool results\n")
		for _, o := range req.Observations {
			fmt.Fprintf(&b, "### %s (%s)\n%s\n", o.Tool, o.Query, truncate(strings.TrimSpace(o.Output), maxContextChars))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
