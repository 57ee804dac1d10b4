package conversation

import "strings"

// WelcomeMessage is sent for first contact and greetings. It never varies.
const WelcomeMessage = "👋 Olá! Seja bem-vindo(a) ao Instituto de Carvalho.\n\n" +
	"Posso te ajudar com:\n\n" +
	"1️⃣ Agendar uma consulta 🗓️\n" +
	"2️⃣ Conhecer nossos cursos 🎓\n" +
	"3️⃣ Tirar dúvidas sobre tratamentos 🦷\n\n" +
	"Como posso te ajudar hoje?"

// ApologyMessage is the only text a user sees when a turn fails.
const ApologyMessage = "Desculpe, ocorreu um erro. Por favor, tente novamente mais tarde."

var greetings = map[string]struct{}{
	"olá":         {},
	"oi":          {},
	"ola":         {},
	"oi tudo bem": {},
	"bom dia":     {},
	"boa tarde":   {},
	"boa noite":   {},
}

// IsGreeting reports whether text is one of the fixed greetings, ignoring
// case and surrounding whitespace.
func IsGreeting(text string) bool {
	_, ok := greetings[strings.ToLower(strings.TrimSpace(text))]
	return ok
}
