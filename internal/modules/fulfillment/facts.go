package fulfillment

import (
	"fmt"
	"strings"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

// FactEntry is one record of the facts log.
type FactEntry struct {
	Seq           int             `json:"seq"`
	PlaceholderID string          `json:"placeholder_id"`
	Name          string          `json:"name"`
	Value         string          `json:"value"`
	Source        fill.FactSource `json:"source"`
}

// KnownFact is the name/value view handed to oracles.
type KnownFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Overlay is a session's append-only facts log replayed into a mapping. A
// key is the placeholder id; writing an existing key is refused.
type Overlay struct {
	entries []FactEntry
	byID    map[string]int
}

func NewOverlay() *Overlay {
	return &Overlay{byID: map[string]int{}}
}

// ReplayOverlay rebuilds an overlay from stored entries in seq order.
func ReplayOverlay(entries []FactEntry) (*Overlay, error) {
	o := NewOverlay()
	for _, e := range entries {
		if _, err := o.Append(e.PlaceholderID, e.Name, e.Value, e.Source); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Overlay) Append(placeholderID, name, value string, src fill.FactSource) (FactEntry, error) {
	const op = "facts.append"
	if strings.TrimSpace(placeholderID) == "" {
		return FactEntry{}, fill.NewError(fill.CodeInvariantViolation, op, "fact without placeholder id", nil)
	}
	if _, exists := o.byID[placeholderID]; exists {
		return FactEntry{}, fill.NewError(fill.CodeInvariantViolation, op,
			fmt.Sprintf("fact for %s already written", placeholderID), nil)
	}
	if strings.TrimSpace(value) == "" {
		return FactEntry{}, fill.NewError(fill.CodeInvariantViolation, op,
			fmt.Sprintf("empty value for %s", placeholderID), nil)
	}
	e := FactEntry{
		Seq:           len(o.entries) + 1,
		PlaceholderID: placeholderID,
		Name:          name,
		Value:         value,
		Source:        src,
	}
	o.byID[placeholderID] = len(o.entries)
	o.entries = append(o.entries, e)
	return e, nil
}

func (o *Overlay) Get(placeholderID string) (FactEntry, bool) {
	i, ok := o.byID[placeholderID]
	if !ok {
		return FactEntry{}, false
	}
	return o.entries[i], true
}

func (o *Overlay) Len() int { return len(o.entries) }

// Entries returns a copy of the log in insertion order.
func (o *Overlay) Entries() []FactEntry {
	out := make([]FactEntry, len(o.entries))
	copy(out, o.entries)
	return out
}

// Since returns the entries appended after the first n.
func (o *Overlay) Since(n int) []FactEntry {
	if n >= len(o.entries) {
		return nil
	}
	out := make([]FactEntry, len(o.entries)-n)
	copy(out, o.entries[n:])
	return out
}

// Known lists facts by name in insertion order. When two placeholders share a
// name the first value wins.
func (o *Overlay) Known() []KnownFact {
	seen := map[string]bool{}
	out := make([]KnownFact, 0, len(o.entries))
	for _, e := range o.entries {
		key := strings.ToLower(strings.TrimSpace(e.Name))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, KnownFact{Name: e.Name, Value: e.Value})
	}
	return out
}

func (o *Overlay) Clone() *Overlay {
	cp := &Overlay{
		entries: make([]FactEntry, len(o.entries)),
		byID:    make(map[string]int, len(o.byID)),
	}
	copy(cp.entries, o.entries)
	for k, v := range o.byID {
		cp.byID[k] = v
	}
	return cp
}

// FormatFacts renders facts as "name: value" lines for prompts.
func FormatFacts(facts []KnownFact) string {
	if len(facts) == 0 {
		return "(None)"
	}
	var b strings.Builder
	for i, f := range facts {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", f.Name, f.Value)
	}
	return b.String()
}
