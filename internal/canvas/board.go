// Package canvas holds the shared drawing state: the stroke history, the
// redo buffer, who is connected and who is currently drawing.
//
// Nothing in this package locks. A Board is meant to be owned by exactly one
// goroutine that applies mutations one at a time.
package canvas

// Board groups the process-wide state behind one value.
type Board struct {
	Strokes  *Store
	Presence *Presence
	Writer   Writer
}

func NewBoard(naming Naming) *Board {
	return &Board{
		Strokes:  NewStore(),
		Presence: NewPresence(naming),
	}
}

// Join registers a connection and returns its display name.
func (b *Board) Join(id string) string {
	return b.Presence.Add(id)
}

// Leave drops a connection. writerCleared is true when the departing
// participant held the writer flag and it was released.
func (b *Board) Leave(id string) (name string, left, writerCleared bool) {
	name, left = b.Presence.Remove(id)
	if !left {
		return "", false, false
	}
	return name, true, b.Writer.ReleaseIfHeldBy(name)
}

// StartDrawing marks id's participant as the current writer. Unknown ids
// leave the flag untouched.
func (b *Board) StartDrawing(id string) (string, bool) {
	name, ok := b.Presence.Name(id)
	if !ok {
		return "", false
	}
	b.Writer.Set(name)
	return name, true
}

func (b *Board) StopDrawing() {
	b.Writer.Clear()
}

// Snapshot is a point-in-time copy of the board.
type Snapshot struct {
	History   []Stroke          `json:"history"`
	RedoDepth int               `json:"redoDepth"`
	Presence  map[string]string `json:"presence"`
	Writer    *string           `json:"writer"`
}

func (b *Board) Snapshot() Snapshot {
	return Snapshot{
		History:   b.Strokes.History(),
		RedoDepth: b.Strokes.RedoDepth(),
		Presence:  b.Presence.Snapshot(),
		Writer:    b.Writer.Ptr(),
	}
}
