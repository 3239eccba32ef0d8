package fulfillment

import (
	"sort"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

// Session is the aggregate the engine transitions: session row, ordered
// placeholders and the facts overlay.
type Session struct {
	Meta         fill.Session
	Placeholders []fill.Placeholder
	Facts        *Overlay
}

// Assemble builds a Session from stored rows. Placeholders are ordered by
// position and the facts log is replayed.
func Assemble(meta fill.Session, placeholders []*fill.Placeholder, facts []*fill.Fact) (Session, error) {
	s := Session{Meta: meta}
	for _, p := range placeholders {
		if p != nil {
			s.Placeholders = append(s.Placeholders, *p)
		}
	}
	sort.SliceStable(s.Placeholders, func(i, j int) bool {
		return s.Placeholders[i].Position < s.Placeholders[j].Position
	})
	entries := make([]FactEntry, 0, len(facts))
	for _, f := range facts {
		if f == nil {
			continue
		}
		entries = append(entries, FactEntry{
			Seq:           f.Seq,
			PlaceholderID: f.PlaceholderKey,
			Name:          f.Name,
			Value:         f.Value,
			Source:        f.Source,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	overlay, err := ReplayOverlay(entries)
	if err != nil {
		return Session{}, err
	}
	s.Facts = overlay
	return s, nil
}

// Clone returns a deep copy; the engine only ever mutates clones.
func (s Session) Clone() Session {
	cp := Session{Meta: s.Meta}
	cp.Placeholders = make([]fill.Placeholder, len(s.Placeholders))
	for i, p := range s.Placeholders {
		if p.Value != nil {
			v := *p.Value
			p.Value = &v
		}
		if p.ResolvedAt != nil {
			t := *p.ResolvedAt
			p.ResolvedAt = &t
		}
		cp.Placeholders[i] = p
	}
	if s.Facts != nil {
		cp.Facts = s.Facts.Clone()
	} else {
		cp.Facts = NewOverlay()
	}
	return cp
}

// ActiveIndex is the index of the first pending placeholder, or -1.
func (s Session) ActiveIndex() int {
	for i := range s.Placeholders {
		if s.Placeholders[i].Status == fill.StatusPending {
			return i
		}
	}
	return -1
}

func (s Session) Active() (fill.Placeholder, bool) {
	i := s.ActiveIndex()
	if i < 0 {
		return fill.Placeholder{}, false
	}
	return s.Placeholders[i], true
}

func (s Session) indexOf(placeholderID string) int {
	for i := range s.Placeholders {
		if s.Placeholders[i].Key == placeholderID {
			return i
		}
	}
	return -1
}

func (s Session) Placeholder(placeholderID string) (fill.Placeholder, bool) {
	i := s.indexOf(placeholderID)
	if i < 0 {
		return fill.Placeholder{}, false
	}
	return s.Placeholders[i], true
}

// Pending lists the ids of unresolved placeholders in order.
func (s Session) Pending() []string {
	var out []string
	for _, p := range s.Placeholders {
		if p.Status == fill.StatusPending {
			out = append(out, p.Key)
		}
	}
	return out
}

// Values is the resolved placeholder id to value mapping.
func (s Session) Values() map[string]string {
	out := make(map[string]string, len(s.Placeholders))
	for _, p := range s.Placeholders {
		if p.Status.Resolved() && p.Value != nil {
			out[p.Key] = *p.Value
		}
	}
	return out
}

// Changes reports the placeholders that differ between before and after and
// the facts appended in between. Both must be the same session.
func Changes(before, after Session) ([]fill.Placeholder, []FactEntry) {
	var changed []fill.Placeholder
	for i := range after.Placeholders {
		if i >= len(before.Placeholders) || placeholderChanged(before.Placeholders[i], after.Placeholders[i]) {
			changed = append(changed, after.Placeholders[i])
		}
	}
	prior := 0
	if before.Facts != nil {
		prior = before.Facts.Len()
	}
	return changed, after.Facts.Since(prior)
}

func placeholderChanged(a, b fill.Placeholder) bool {
	return a.Status != b.Status ||
		a.Attempts != b.Attempts ||
		a.ConsentAutoSuggest != b.ConsentAutoSuggest ||
		a.ValueOrEmpty() != b.ValueOrEmpty()
}
