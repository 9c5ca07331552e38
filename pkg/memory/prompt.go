package memory

import (
	"strings"
)

// NamedPartyNote renders the line that precedes the prompt when the user
// asks about someone by name.
func NamedPartyNote(parties []string) string {
	return "[Note: Answer about the person(s) mentioned (" + strings.Join(parties, ", ") + "), do not assume 'you']"
}

// PromptInput is everything BuildPrompt needs.
type PromptInput struct {
	Memory string
	Query  string

	// Parties are the named people the query mentions. Non-empty adds the
	// third-person note.
	Parties []string
}

// BuildPrompt assembles the user-facing prompt:
//
//	[Note: ...]            (only when Parties is set)
//	Memory:
//	<memory>
//	User: <query>
//	Agent:
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	if len(in.Parties) > 0 {
		b.WriteString(NamedPartyNote(in.Parties))
		b.WriteString("\n")
	}

	b.WriteString("Memory:\n")
	b.WriteString(in.Memory)
	b.WriteString("\nUser: ")
	b.WriteString(in.Query)
	b.WriteString("\nAgent:")

	return b.String()
}

// BuildInstruction prefixes a system instruction with recalled memory, the
// way remote search results are injected. Named parties add the same note
// BuildPrompt uses, ahead of everything else.
func BuildInstruction(memory, instruction string, parties ...string) string {
	out := instruction
	if memory != "" {
		out = "Memory Search Result: " + memory + "\n\n" + instruction
	}
	if len(parties) > 0 {
		out = NamedPartyNote(parties) + "\n" + out
	}
	return out
}
