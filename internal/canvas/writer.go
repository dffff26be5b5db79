package canvas

// Writer is the advisory "who is drawing" flag. It is display state only and
// never blocks anyone from drawing.
type Writer struct {
	name string
	held bool
}

func (w *Writer) Set(name string) {
	w.name = name
	w.held = true
}

func (w *Writer) Clear() {
	w.name = ""
	w.held = false
}

// ReleaseIfHeldBy clears the flag when name currently holds it.
func (w *Writer) ReleaseIfHeldBy(name string) bool {
	if !w.held || w.name != name {
		return false
	}
	w.Clear()
	return true
}

func (w *Writer) Current() (string, bool) {
	return w.name, w.held
}

// Ptr returns the current name, or nil when nobody is drawing. It is the
// shape whoIsWriting payloads are encoded from.
func (w *Writer) Ptr() *string {
	if !w.held {
		return nil
	}
	name := w.name
	return &name
}
