package canvas_test

import (
	"testing"

	"sharedcanvas/internal/canvas"
)

func TestPresenceLiveNaming(t *testing.T) {
	p := canvas.NewPresence(canvas.NamingLive)

	if got := p.Add("a"); got != "Client1" {
		t.Errorf("first name = %q, want Client1", got)
	}
	if got := p.Add("b"); got != "Client2" {
		t.Errorf("second name = %q, want Client2", got)
	}

	// Live numbering reuses the head count, so a newcomer after a departure
	// collides with the participant still holding Client2.
	p.Remove("a")
	if got := p.Add("c"); got != "Client2" {
		t.Errorf("name after departure = %q, want Client2", got)
	}
}

func TestPresenceSequenceNaming(t *testing.T) {
	p := canvas.NewPresence(canvas.NamingSequence)
	p.Add("a")
	p.Add("b")
	p.Remove("a")

	if got := p.Add("c"); got != "Client3" {
		t.Errorf("name after departure = %q, want Client3", got)
	}
}

func TestPresenceAddIsIdempotent(t *testing.T) {
	p := canvas.NewPresence(canvas.NamingSequence)
	first := p.Add("a")
	if again := p.Add("a"); again != first {
		t.Errorf("re-adding id changed name from %q to %q", first, again)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestPresenceSnapshotIsACopy(t *testing.T) {
	p := canvas.NewPresence(canvas.NamingLive)
	p.Add("a")

	snap := p.Snapshot()
	delete(snap, "a")

	if _, ok := p.Name("a"); !ok {
		t.Error("mutating the snapshot removed a live entry")
	}
}

func TestParseNaming(t *testing.T) {
	for in, want := range map[string]canvas.Naming{
		"":         canvas.NamingLive,
		"live":     canvas.NamingLive,
		"sequence": canvas.NamingSequence,
	} {
		got, err := canvas.ParseNaming(in)
		if err != nil || got != want {
			t.Errorf("ParseNaming(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := canvas.ParseNaming("random"); err == nil {
		t.Error("ParseNaming accepted an unknown strategy")
	}
}

func TestWriterReleasedOnLeave(t *testing.T) {
	b := canvas.NewBoard(canvas.NamingLive)
	b.Join("a")
	b.Join("b")

	name, ok := b.StartDrawing("a")
	if !ok || name != "Client1" {
		t.Fatalf("StartDrawing = %q, %v; want Client1, true", name, ok)
	}

	if _, _, cleared := b.Leave("b"); cleared {
		t.Error("a bystander leaving cleared the writer")
	}
	if cur, held := b.Writer.Current(); !held || cur != "Client1" {
		t.Errorf("writer = %q, %v; want Client1, true", cur, held)
	}

	_, left, cleared := b.Leave("a")
	if !left || !cleared {
		t.Errorf("Leave(writer) = left %v, cleared %v; want true, true", left, cleared)
	}
	if b.Writer.Ptr() != nil {
		t.Error("writer still set after its holder left")
	}
}

func TestLeaveUnknownConnection(t *testing.T) {
	b := canvas.NewBoard(canvas.NamingLive)
	if _, left, _ := b.Leave("ghost"); left {
		t.Error("Leave reported removal of an unknown id")
	}
}

func TestStartDrawingUnknownConnection(t *testing.T) {
	b := canvas.NewBoard(canvas.NamingLive)
	if _, ok := b.StartDrawing("ghost"); ok {
		t.Error("StartDrawing accepted an unknown id")
	}
	if b.Writer.Ptr() != nil {
		t.Error("writer set by an unknown id")
	}
}

func TestStopDrawingClearsAnyWriter(t *testing.T) {
	b := canvas.NewBoard(canvas.NamingLive)
	b.Join("a")
	b.StartDrawing("a")
	b.StopDrawing()

	if _, held := b.Writer.Current(); held {
		t.Error("writer still held after StopDrawing")
	}
}

func TestBoardSnapshot(t *testing.T) {
	b := canvas.NewBoard(canvas.NamingLive)
	b.Join("a")
	b.StartDrawing("a")
	b.Strokes.Append(stroke(1))
	b.Strokes.Append(stroke(2))
	b.Strokes.PopToRedo()

	snap := b.Snapshot()
	if len(snap.History) != 1 || snap.RedoDepth != 1 {
		t.Errorf("snapshot history=%d redo=%d, want 1/1", len(snap.History), snap.RedoDepth)
	}
	if snap.Writer == nil || *snap.Writer != "Client1" {
		t.Errorf("snapshot writer = %v, want Client1", snap.Writer)
	}
	if snap.Presence["a"] != "Client1" {
		t.Errorf("snapshot presence = %v", snap.Presence)
	}
}
