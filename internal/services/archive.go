package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
	"github.com/yungbote/docfill-backend/internal/platform/objectstore"
)

// ManifestEntry is one resolved placeholder in document order.
type ManifestEntry struct {
	ID           string            `json:"placeholder_id"`
	Name         string            `json:"name"`
	ExpectedType fill.ExpectedType `json:"expected_type"`
	Value        string            `json:"value"`
	Source       fill.FactSource   `json:"source"`
}

// Manifest is what the final merge step consumes.
type Manifest struct {
	SessionID      string              `json:"session_id"`
	Reference      int64               `json:"reference"`
	Title          string              `json:"title,omitempty"`
	Classification fill.Classification `json:"classification"`
	Values         map[string]string   `json:"values"`
	Placeholders   []ManifestEntry     `json:"placeholders"`
	FinalizedAt    time.Time           `json:"finalized_at"`
}

type MergeResult struct {
	Key      string
	Location string
}

// Merger renders or stores the finished document. Implementations must be
// safe to call again for the same session.
type Merger interface {
	Merge(ctx context.Context, m Manifest, facts []fulfillment.FactEntry) (MergeResult, error)
}

// ManifestName is final_document.json for final sessions and
// final_draft.json for drafts.
func ManifestName(c fill.Classification) string {
	if c == fill.ClassificationDraft {
		return "final_draft.json"
	}
	return "final_document.json"
}

func BuildManifest(s fulfillment.Session, c fill.Classification, at time.Time) Manifest {
	m := Manifest{
		SessionID:      s.Meta.ID.String(),
		Reference:      s.Meta.Reference,
		Title:          s.Meta.Title,
		Classification: c,
		Values:         s.Values(),
		FinalizedAt:    at,
	}
	for _, p := range s.Placeholders {
		src := fill.FactFromUser
		if p.Status == fill.StatusAutoFilled {
			src = fill.FactFromSuggestion
		}
		m.Placeholders = append(m.Placeholders, ManifestEntry{
			ID:           p.Key,
			Name:         p.Name,
			ExpectedType: p.ExpectedType,
			Value:        p.ValueOrEmpty(),
			Source:       src,
		})
	}
	return m
}

// ArchiveMerger writes the manifest and the facts log to an object store.
type ArchiveMerger struct {
	store objectstore.Store
	log   *logger.Logger
}

func NewArchiveMerger(store objectstore.Store, baseLog *logger.Logger) *ArchiveMerger {
	return &ArchiveMerger{store: store, log: baseLog.With("service", "ArchiveMerger")}
}

func (a *ArchiveMerger) Merge(ctx context.Context, m Manifest, facts []fulfillment.FactEntry) (MergeResult, error) {
	prefix := fmt.Sprintf("sessions/%d", m.Reference)
	key := prefix + "/" + ManifestName(m.Classification)

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return MergeResult{}, err
	}
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return MergeResult{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.store.Put(gctx, key, manifest, "application/json")
	})
	g.Go(func() error {
		return a.store.Put(gctx, prefix+"/facts.json", factsJSON, "application/json")
	})
	if err := g.Wait(); err != nil {
		return MergeResult{}, err
	}
	loc := a.store.Location(key)
	a.log.Info("session archived", "reference", m.Reference, "classification", m.Classification, "location", loc)
	return MergeResult{Key: key, Location: loc}, nil
}
