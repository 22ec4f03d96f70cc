package ledger

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/light"
)

// Journal records controller activity in the ledger.
// Write failures are logged and never reach the caller.
type Journal struct {
	ledger *Ledger
	name   string
}

// NewJournal creates a journal for the combined light called name.
func NewJournal(l *Ledger, name string) *Journal {
	return &Journal{ledger: l, name: name}
}

// Sent records a successful command.
func (j *Journal) Sent(session, lightID string, level uint8) {
	j.append(EventCommandSent, session, lightID, map[string]any{
		"on":         level > 0,
		"brightness": int(level),
	})
}

// Failed records a command the backend rejected.
func (j *Journal) Failed(session, lightID string, err error) {
	j.append(EventCommandFailed, session, lightID, map[string]any{
		"error": err.Error(),
	})
}

// External records a state change that was not caused by the controller.
func (j *Journal) External(lightID string, st light.State) {
	payload := map[string]any{"on": st.On}
	if st.HasBrightness {
		payload["brightness"] = int(st.Brightness)
	}
	j.append(EventExternalChange, "", lightID, payload)
}

// TargetChanged records a new target brightness.
func (j *Journal) TargetChanged(session string, target uint8, reason string) {
	j.append(EventTargetChanged, session, j.name, map[string]any{
		"target": int(target),
		"reason": reason,
	})
}

func (j *Journal) append(eventType EventType, session, source string, payload map[string]any) {
	if err := j.ledger.Append(eventType, session, source, payload); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to append ledger entry")
	}
}
