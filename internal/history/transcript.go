package history

// Transcript is the ordered turn history of one session. Order is significant: it is
// replayed verbatim to the model.
type Transcript struct {
	turns []Turn
}

// NewTranscript wraps existing turns, e.g. when a session is loaded from a store.
func NewTranscript(turns ...Turn) Transcript {
	return Transcript{turns: append([]Turn(nil), turns...)}
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of the turns so callers cannot rewrite history in place.
func (t *Transcript) Turns() []Turn {
	return append([]Turn(nil), t.turns...)
}

// Append adds turns at the end, in order.
func (t *Transcript) Append(turns ...Turn) {
	t.turns = append(t.turns, turns...)
}
