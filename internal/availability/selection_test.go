package availability

import "testing"

func TestDetectChoice(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      int // index into calendar, -1 for no choice
	}{
		{"bare number", "2", 1},
		{"bare number with dot", "3.", 2},
		{"labeled option", "quero a opção 1", 0},
		{"labeled option unaccented", "opcao 3", 2},
		{"ordinal", "a segunda", 1},
		{"ordinal masculine", "primeiro horário", 0},
		{"date", "pode ser dia 28/08?", 1},
		{"date single digits", "1/9 fica bom", 2},
		{"time with colon", "prefiro 14:00", 1},
		{"time with h", "às 16h", 2},
		{"time with h and minutes", "15h30 por favor", 0},
		{"unique weekday", "sexta", 1},
		{"weekday with feira", "sexta-feira está ótimo", 1},
		{"ambiguous weekday", "terça", -1},
		{"out of range", "9", -1},
		{"phone number", "11987654321", -1},
		{"email", "ana@exemplo.com", -1},
		{"name", "meu nome completo é Ana Silva", -1},
		{"long sentence with ordinal", "essa é a minha primeira consulta com vocês", -1},
		{"empty", "   ", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectChoice(tt.utterance, calendar)
			if tt.want < 0 {
				if ok {
					t.Fatalf("DetectChoice(%q) = %v, want no choice", tt.utterance, got)
				}
				return
			}
			if !ok {
				t.Fatalf("DetectChoice(%q) found no choice, want %v", tt.utterance, calendar[tt.want])
			}
			if got != calendar[tt.want] {
				t.Fatalf("DetectChoice(%q) = %v, want %v", tt.utterance, got, calendar[tt.want])
			}
		})
	}
}

func TestDetectChoice_NoOpenSlots(t *testing.T) {
	if _, ok := DetectChoice("1", nil); ok {
		t.Fatal("expected no choice without open slots")
	}
}
