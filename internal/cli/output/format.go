package output

import (
	"fmt"
	"strings"
)

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item "- **key:** value".
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}

// FormatCodeBlock fences text as a markdown code block.
func FormatCodeBlock(lang, text string) string {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return "```" + lang + "\n" + text + "```"
}
