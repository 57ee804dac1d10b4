// Package availability computes which offered appointment slots are still
// open and recognises which of them a patient picked.
package availability

import (
	"fmt"
	"strings"
)

// Slot is one offered appointment opportunity. Dates use dd/mm/yyyy and
// times the clinic's "15:30h" notation.
type Slot struct {
	Day  string `json:"dia"`
	Date string `json:"data"`
	Time string `json:"hora"`
}

// IsZero reports whether the slot is unset.
func (s Slot) IsZero() bool {
	return s.Date == "" && s.Time == ""
}

func (s Slot) String() string {
	return fmt.Sprintf("%s, %s às %s", s.Day, s.Date, s.Time)
}

// FormatList renders slots as a numbered list, one per line.
func FormatList(slots []Slot) string {
	lines := make([]string, 0, len(slots))
	for i, slot := range slots {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, slot))
	}
	return strings.Join(lines, "\n")
}
