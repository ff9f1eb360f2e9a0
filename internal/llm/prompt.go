package llm

import (
	"fmt"
	"strings"
)

// DefaultPersona is the instruction preamble used when none is configured.
const DefaultPersona = "You are a smart, friendly assistant with a warm local sense of humour."

// BuildPrompt composes the generation prompt from the persona, the caller's
// city, the rendered forecast block, and the user's message.
func BuildPrompt(persona, city, forecastBlock, message string) string {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n")
	fmt.Fprintf(&b, "The user is in: %s\n", city)
	b.WriteString("Weather forecast:\n")
	b.WriteString(forecastBlock)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Message: %q\n", message)
	b.WriteString("Reply naturally, in a fun and helpful way. Do not mention that you are an AI.\n")
	return b.String()
}
