package service

import (
	"fmt"
	"strings"
	"time"
)

// ChatEntry is one displayed message in an exported chat history.
type ChatEntry struct {
	Speaker   string  `json:"speaker"`
	Message   string  `json:"message"`
	Duration  float64 `json:"duration"`
	WordCount int     `json:"wordCount"`
}

// ExportMarkdown renders a chat history as a downloadable markdown
// document.
func ExportMarkdown(history []ChatEntry, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("# Audio Tutor Chat History\n\n")
	sb.WriteString(fmt.Sprintf("Exported on: %s\n\n", now.Format("2006-01-02 15:04:05")))

	for _, entry := range history {
		sb.WriteString(fmt.Sprintf("## %s\n\n%s\n\n*Duration: %gs | Words: %d*\n\n---\n\n",
			entry.Speaker, entry.Message, entry.Duration, entry.WordCount))
	}

	return sb.String()
}
