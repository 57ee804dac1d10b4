package availability

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bareIndexRE    = regexp.MustCompile(`^#?(\d{1,2})[.)!]?$`)
	labeledIndexRE = regexp.MustCompile(`\b(?:opcao|opção|numero|número|horario|horário|n[º°])\s*#?(\d{1,2})\b`)
	dateRE         = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/\d{2,4})?\b`)
	timeRE         = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2})h?|h(\d{2})?)(?:\b|$)`)
	weekdayFeiraRE = regexp.MustCompile(`\b(segunda|terca|quarta|quinta|sexta)(?:-|\s)feira\b`)
)

var ordinalWords = []struct {
	prefix string
	index  int
}{
	{"primeir", 1},
	{"segund", 2},
	{"terceir", 3},
	{"quart", 4},
	{"quint", 5},
	{"sext", 6},
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
)

// DetectChoice reports which open slot the utterance picks, by list number,
// ordinal, date, time or weekday. Ambiguous references select nothing.
// Ordinals only count in short replies or next to "opção"/"horário".
func DetectChoice(utterance string, open []Slot) (Slot, bool) {
	if len(open) == 0 {
		return Slot{}, false
	}
	msg := strings.ToLower(strings.TrimSpace(utterance))
	if msg == "" {
		return Slot{}, false
	}

	if m := bareIndexRE.FindStringSubmatch(msg); m != nil {
		return pickIndex(open, m[1])
	}
	if m := labeledIndexRE.FindStringSubmatch(msg); m != nil {
		return pickIndex(open, m[1])
	}

	folded := accentFolder.Replace(msg)

	if m := dateRE.FindStringSubmatch(folded); m != nil {
		if slot, ok := pickUnique(open, func(s Slot) bool { return sameDayMonth(s.Date, m[1], m[2]) }); ok {
			return slot, true
		}
	}
	if m := timeRE.FindStringSubmatch(folded); m != nil {
		minutes := m[2]
		if minutes == "" {
			minutes = m[3]
		}
		if minutes == "" {
			minutes = "0"
		}
		if slot, ok := pickUnique(open, func(s Slot) bool { return sameClock(s.Time, m[1], minutes) }); ok {
			return slot, true
		}
	}

	if m := weekdayFeiraRE.FindStringSubmatch(folded); m != nil {
		return pickUnique(open, func(s Slot) bool { return weekdayOf(s.Day) == m[1] })
	}
	for _, day := range []string{"domingo", "sabado", "terca", "quarta", "quinta", "sexta"} {
		if containsWord(folded, day) {
			if slot, ok := pickUnique(open, func(s Slot) bool { return weekdayOf(s.Day) == day }); ok {
				return slot, true
			}
		}
	}

	words := strings.Fields(folded)
	if len(words) > 4 && !strings.Contains(folded, "opcao") && !strings.Contains(folded, "horario") {
		return Slot{}, false
	}
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:")
		for _, ord := range ordinalWords {
			if strings.HasPrefix(word, ord.prefix) && (word == ord.prefix+"o" || word == ord.prefix+"a") {
				return pickIndex(open, strconv.Itoa(ord.index))
			}
		}
	}
	return Slot{}, false
}

func pickIndex(open []Slot, raw string) (Slot, bool) {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 1 || idx > len(open) {
		return Slot{}, false
	}
	return open[idx-1], true
}

func pickUnique(open []Slot, match func(Slot) bool) (Slot, bool) {
	var (
		found Slot
		count int
	)
	for _, slot := range open {
		if match(slot) {
			found = slot
			count++
		}
	}
	return found, count == 1
}

func sameDayMonth(date, day, month string) bool {
	parts := strings.Split(date, "/")
	if len(parts) < 2 {
		return false
	}
	return atoi(parts[0]) == atoi(day) && atoi(parts[1]) == atoi(month)
}

func sameClock(slotTime, hour, minutes string) bool {
	clock := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(slotTime)), "h")
	parts := strings.SplitN(clock, ":", 2)
	if atoi(parts[0]) != atoi(hour) {
		return false
	}
	slotMinutes := 0
	if len(parts) == 2 {
		slotMinutes = atoi(parts[1])
	}
	return slotMinutes == atoi(minutes)
}

func weekdayOf(day string) string {
	folded := accentFolder.Replace(strings.ToLower(strings.TrimSpace(day)))
	folded = strings.TrimSuffix(folded, "-feira")
	return strings.TrimSuffix(folded, " feira")
}

func containsWord(text, word string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == ';'
	}) {
		if field == word {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return n
}
