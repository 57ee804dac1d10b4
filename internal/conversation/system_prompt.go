package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/internal/store"
)

// ConfirmationMarker in a generated reply finalizes the pending booking.
// Only an exact substring match counts.
const ConfirmationMarker = "✅ Agendamento Confirmado"

const assistantInstructions = `Você é um chatbot assistente do %s.
Sua principal função é ajudar com agendamentos de consultas, responder perguntas sobre tratamentos e fornecer informações gerais.

**Instruções de Resposta:**
- Mantenha a conversa natural e amigável.
- Responda apenas com texto. Não use emojis ou formatações de listas.
- Se o usuário perguntar sobre agendamento, responda com as opções de horários disponíveis.
- Se o usuário fornecer nome, email ou telefone, responda confirmando o dado recebido e solicitando o próximo.
- Se todas as informações para agendamento (nome, email, telefone, data e hora) forem fornecidas, responda com uma frase de confirmação específica, como: "` + ConfirmationMarker + `. Te ligaremos em breve para confirmar."
- Use as informações abaixo como suas únicas fontes de verdade.`

// BuildSystemPrompt renders the clinic facts and the slots still open. The
// availability block is left out entirely when nothing is open.
func BuildSystemPrompt(info clinic.Info, open []availability.Slot, chosen availability.Slot) string {
	var b strings.Builder
	fmt.Fprintf(&b, assistantInstructions, info.Name)

	b.WriteString("\n\n**Informações do Instituto:**\n")
	fmt.Fprintf(&b, "- Nome: %s\n", info.Name)
	fmt.Fprintf(&b, "- Telefone: %s\n", info.Phone)
	fmt.Fprintf(&b, "- Endereço: %s\n", info.Address)
	if prices := info.PriceLines(); prices != "" {
		b.WriteString("- Valores de Consulta:\n")
		b.WriteString(prices)
		b.WriteString("\n")
	}
	b.WriteString("- Horários de Funcionamento:\n")
	fmt.Fprintf(&b, "  - Terça: %s\n", info.Hours.Tuesday)
	fmt.Fprintf(&b, "  - Sexta: %s", info.Hours.Friday)

	if len(open) > 0 {
		b.WriteString("\n\n**Horários Disponíveis (para agendamento):**\n")
		b.WriteString(availability.FormatList(open))
	}
	if !chosen.IsZero() {
		fmt.Fprintf(&b, "\n\nO paciente escolheu o horário: %s.", chosen)
	}
	return b.String()
}

// AwaitingNote is the system note naming the field being collected.
func AwaitingNote(a session.Awaiting) string {
	return fmt.Sprintf("Você está atualmente coletando o slot: %s.", a)
}

// BuildMessages assembles the full generation context for one turn: system
// prompt, prior history, the awaiting note and finally the new utterance.
func BuildMessages(info clinic.Info, open []availability.Slot, sess session.Session, history []store.Turn, utterance string) []ChatMessage {
	messages := make([]ChatMessage, 0, len(history)+3)
	messages = append(messages, ChatMessage{
		Role:    ChatRoleSystem,
		Content: BuildSystemPrompt(info, open, sess.Booking.Slot()),
	})
	for _, turn := range history {
		role := ChatRoleAssistant
		if turn.Role == store.RoleUser {
			role = ChatRoleUser
		}
		messages = append(messages, ChatMessage{Role: role, Content: turn.Text})
	}
	if sess.Awaiting != session.AwaitingNone {
		messages = append(messages, ChatMessage{Role: ChatRoleSystem, Content: AwaitingNote(sess.Awaiting)})
	}
	return append(messages, ChatMessage{Role: ChatRoleUser, Content: utterance})
}
