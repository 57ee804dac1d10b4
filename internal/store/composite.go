package store

// Composite serves conversation state and appointments from different
// backends, e.g. Redis for sessions and SQL for appointments.
type Composite struct {
	ConversationStore
	AppointmentStore
}

// NewComposite joins the two halves into a Store.
func NewComposite(conversations ConversationStore, appointments AppointmentStore) *Composite {
	if conversations == nil || appointments == nil {
		panic("store: both conversation and appointment stores are required")
	}
	return &Composite{ConversationStore: conversations, AppointmentStore: appointments}
}
