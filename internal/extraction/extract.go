// Package extraction pulls booking contact fields out of free text.
package extraction

import (
	"regexp"
	"strings"
)

var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)nome\s?completo\s?é\s?(.*)`),
		regexp.MustCompile(`(?i)me\s?chamo\s?(.*)`),
	}
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9._-]+`)
	phonePattern = regexp.MustCompile(`\d{2}\s?\d{5}\s?\d{4}|\d{11}`)
)

// Fields holds whatever an utterance yielded. Empty means not found.
type Fields struct {
	Name  string `json:"nome,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"telefone,omitempty"`
}

// Empty reports whether nothing was extracted.
func (f Fields) Empty() bool {
	return f.Name == "" && f.Email == "" && f.Phone == ""
}

// Extract attempts the name, email and phone patterns independently.
// Matches are taken as-is; nothing is validated beyond the pattern.
func Extract(utterance string) Fields {
	return Fields{
		Name:  extractName(utterance),
		Email: emailPattern.FindString(utterance),
		Phone: phonePattern.FindString(utterance),
	}
}

func extractName(utterance string) string {
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(utterance); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}
