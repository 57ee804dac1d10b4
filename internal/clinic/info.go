// Package clinic holds the static clinic content the assistant answers from.
package clinic

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
)

// DefaultName is used when the content file does not name the clinic.
const DefaultName = "Instituto de Carvalho"

// Hours holds the opening hours for the two weekdays the clinic attends.
type Hours struct {
	Tuesday string `json:"terca"`
	Friday  string `json:"sexta"`
}

// Info is the static clinic content the assistant answers from. It is read
// once at startup and never mutated.
type Info struct {
	Name     string              `json:"nome"`
	Phone    string              `json:"telefone"`
	Address  string              `json:"endereco"`
	Prices   map[string]int      `json:"valores"`
	Hours    Hours               `json:"horarios"`
	Calendar []availability.Slot `json:"agenda,omitempty"`
}

// DefaultCalendar is the set of slots offered when none are configured.
func DefaultCalendar() []availability.Slot {
	return []availability.Slot{
		{Day: "Terça-feira", Date: "25/08/2025", Time: "15:30h"},
		{Day: "Sexta-feira", Date: "28/08/2025", Time: "14:00h"},
		{Day: "Terça-feira", Date: "01/09/2025", Time: "16:00h"},
	}
}

// LoadInfo reads clinic content from a JSON file.
func LoadInfo(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("clinic: read %s: %w", path, err)
	}
	return ParseInfo(data)
}

// ParseInfo decodes clinic content and fills defaults.
func ParseInfo(data []byte) (Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("clinic: decode info: %w", err)
	}
	if strings.TrimSpace(info.Name) == "" {
		info.Name = DefaultName
	}
	if len(info.Calendar) == 0 {
		info.Calendar = DefaultCalendar()
	}
	for i, slot := range info.Calendar {
		if slot.Date == "" || slot.Time == "" {
			return Info{}, fmt.Errorf("clinic: calendar entry %d needs data and hora", i+1)
		}
	}
	return info, nil
}

// DefaultInfo is used when no content file exists.
func DefaultInfo() Info {
	return Info{Name: DefaultName, Prices: map[string]int{}, Calendar: DefaultCalendar()}
}

// LoadInfoOrDefault falls back to DefaultInfo when path does not exist.
func LoadInfoOrDefault(path string) (Info, error) {
	info, err := LoadInfo(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultInfo(), nil
	}
	return info, err
}

var camelBoundary = regexp.MustCompile(`([A-Z])`)

// HumanizeKey turns a camelCase price key into lower-case words,
// e.g. "primeiraConsulta" becomes "primeira consulta".
func HumanizeKey(key string) string {
	return strings.ToLower(camelBoundary.ReplaceAllString(key, " $1"))
}

// PriceLines renders the price list, one "- name: R$N,00" line per entry,
// sorted by key so the prompt is stable.
func (i Info) PriceLines() string {
	keys := make([]string, 0, len(i.Prices))
	for k := range i.Prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: R$%d,00", HumanizeKey(k), i.Prices[k]))
	}
	return strings.Join(lines, "\n")
}
