package canvas

import (
	"fmt"
	"strconv"
)

// Naming selects how display names are numbered.
type Naming string

const (
	// NamingLive numbers a newcomer after the current head count. Names can
	// repeat once participants leave.
	NamingLive     Naming = "live"
	// NamingSequence numbers newcomers from a counter that never goes down.
	NamingSequence Naming = "sequence"
)

func ParseNaming(s string) (Naming, error) {
	switch n := Naming(s); n {
	case NamingLive, NamingSequence:
		return n, nil
	case "":
		return NamingLive, nil
	default:
		return "", fmt.Errorf("unknown naming strategy %q", s)
	}
}

// Presence maps connection identifiers to display names.
type Presence struct {
	naming Naming
	names  map[string]string
	issued int
}

func NewPresence(naming Naming) *Presence {
	if naming == "" {
		naming = NamingLive
	}
	return &Presence{
		naming: naming,
		names:  make(map[string]string),
	}
}

// Add assigns id a name and returns it. Adding an id twice keeps the first
// name.
func (p *Presence) Add(id string) string {
	if name, ok := p.names[id]; ok {
		return name
	}

	var n int
	switch p.naming {
	case NamingSequence:
		p.issued++
		n = p.issued
	default:
		n = len(p.names) + 1
	}

	name := "Client" + strconv.Itoa(n)
	p.names[id] = name
	return name
}

func (p *Presence) Remove(id string) (string, bool) {
	name, ok := p.names[id]
	if ok {
		delete(p.names, id)
	}
	return name, ok
}

func (p *Presence) Name(id string) (string, bool) {
	name, ok := p.names[id]
	return name, ok
}

func (p *Presence) Len() int { return len(p.names) }

// Snapshot returns a copy of the mapping, safe to hand to an encoder.
func (p *Presence) Snapshot() map[string]string {
	out := make(map[string]string, len(p.names))
	for id, name := range p.names {
		out[id] = name
	}
	return out
}
