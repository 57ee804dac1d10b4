package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
)

func TestParseAwaiting(t *testing.T) {
	for _, tag := range []string{"", "nome", "email", "telefone"} {
		got, err := ParseAwaiting(tag)
		assert.NoError(t, err)
		assert.Equal(t, Awaiting(tag), got)
	}
	_, err := ParseAwaiting("cpf")
	assert.True(t, errors.Is(err, ErrUnknownAwaiting))
}

func TestBooking_Missing(t *testing.T) {
	slot := availability.Slot{Day: "Sexta-feira", Date: "28/08/2025", Time: "14:00h"}

	assert.Equal(t, []string{"nome", "email", "telefone", "horario"}, Booking{}.Missing())
	assert.Equal(t, []string{"email", "telefone"}, Booking{Name: "Ana"}.WithSlot(slot).Missing())

	full := Booking{Name: "Ana", Email: "a@b.co", Phone: "11987654321"}.WithSlot(slot)
	assert.True(t, full.Complete())
	assert.Equal(t, slot, full.Slot())
	assert.True(t, Booking{Name: "Ana"}.Slot().IsZero())
}

func TestSession_Stage(t *testing.T) {
	slot := availability.Slot{Day: "Sexta-feira", Date: "28/08/2025", Time: "14:00h"}
	complete := Booking{Name: "Ana", Email: "a@b.co", Phone: "11987654321"}.WithSlot(slot)

	tests := []struct {
		name       string
		session    Session
		hasHistory bool
		want       Stage
	}{
		{"no history", Session{Awaiting: AwaitingEmail}, false, StageFresh},
		{"awaiting a field", Session{Awaiting: AwaitingEmail, Booking: Booking{Name: "Ana"}}, true, StageCollecting},
		{"partial booking", Session{Booking: Booking{Name: "Ana"}}, true, StageCollecting},
		{"nothing pending", Session{}, true, StageFreeform},
		{"complete booking", Session{Booking: complete}, true, StageFreeform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Stage(tt.hasHistory))
		})
	}
	assert.Equal(t, "collecting", StageCollecting.String())
}

func TestSession_Validate(t *testing.T) {
	assert.NoError(t, Session{}.Validate())
	assert.NoError(t, Session{Awaiting: AwaitingPhone, Booking: Booking{Email: "a@b.co"}}.Validate())
	assert.Error(t, Session{Awaiting: Awaiting("cpf")}.Validate())
	assert.Error(t, Session{Booking: Booking{Date: "28/08/2025"}}.Validate())
}
