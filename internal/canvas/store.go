package canvas

// Store holds the drawing history and the redo buffer. It performs no I/O and
// no locking; a single goroutine owns it.
type Store struct {
	history []Stroke
	redo    []Stroke
}

func NewStore() *Store {
	return &Store{}
}

// Append adds s to the end of the history. A new stroke invalidates any redo
// chain, so the redo buffer is emptied.
func (st *Store) Append(s Stroke) {
	st.history = append(st.history, s)
	st.redo = st.redo[:0]
}

// PopToRedo moves the most recent stroke onto the redo buffer and returns the
// remaining history. ok is false when the history was already empty, in which
// case nothing changed.
func (st *Store) PopToRedo() (history []Stroke, ok bool) {
	n := len(st.history)
	if n == 0 {
		return st.History(), false
	}
	last := st.history[n-1]
	st.history = st.history[:n-1]
	st.redo = append(st.redo, last)
	return st.History(), true
}

// PopToHistory moves the top of the redo buffer back onto the history and
// returns that single stroke.
func (st *Store) PopToHistory() (Stroke, bool) {
	n := len(st.redo)
	if n == 0 {
		return Stroke{}, false
	}
	s := st.redo[n-1]
	st.redo = st.redo[:n-1]
	st.history = append(st.history, s)
	return s, true
}

func (st *Store) Clear() {
	st.history = nil
	st.redo = nil
}

// History returns a copy of the history. The result is never nil so it
// encodes as [] rather than null.
func (st *Store) History() []Stroke {
	out := make([]Stroke, len(st.history))
	copy(out, st.history)
	return out
}

// Redo returns a copy of the redo buffer, bottom first.
func (st *Store) Redo() []Stroke {
	out := make([]Stroke, len(st.redo))
	copy(out, st.redo)
	return out
}

func (st *Store) Len() int       { return len(st.history) }
func (st *Store) RedoDepth() int { return len(st.redo) }
