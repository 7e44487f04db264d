package identity

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

type fakeDirectory struct {
	contacts []Contact
}

func (d *fakeDirectory) Lookup(_ context.Context, _ string) ([]Contact, error) {
	return d.contacts, nil
}

func testResolver(contacts ...Contact) *Resolver {
	cfg := config.ResolverConfig{MatchFloor: 0.6, ConfirmThreshold: 0.85}
	return NewResolver(&fakeDirectory{contacts: contacts}, NewTokenScorer(), cfg, zap.NewNop())
}

func TestScorerDeterministic(t *testing.T) {
	s := NewTokenScorer()
	a := s.Score("Julia", "Julia Weber")
	b := s.Score("Julia", "Julia Weber")
	if a != b {
		t.Errorf("same inputs scored differently: %v vs %v", a, b)
	}
}

func TestScorerExactAndContained(t *testing.T) {
	s := NewTokenScorer()

	if got := s.Score("Julia Weber", "Julia Weber"); got != 1 {
		t.Errorf("exact match = %v, want 1", got)
	}
	if got := s.Score("julia weber", "Julia Weber"); got != 1 {
		t.Errorf("case-insensitive match = %v, want 1", got)
	}
	if got := s.Score("Julia", "Julia Weber"); got < 0.85 {
		t.Errorf("first-name containment = %v, want >= 0.85", got)
	}
	if got := s.Score("Julia", "Thomas Becker"); got != 0 {
		t.Errorf("unrelated names = %v, want 0", got)
	}
}

func TestScorerFoldsDiacritics(t *testing.T) {
	s := NewTokenScorer()
	if got := s.Score("Muller", "Müller"); got != 1 {
		t.Errorf("diacritic fold = %v, want 1", got)
	}
}

func TestScorerMonotonicWithOverlap(t *testing.T) {
	s := NewTokenScorer()
	more := s.Score("Julia Weber", "Julia Weber Senior")
	less := s.Score("Julia", "Julia Weber Senior")
	if more <= less {
		t.Errorf("more overlapping tokens should not score lower: %v <= %v", more, less)
	}
}

func TestResolveNameConfident(t *testing.T) {
	r := testResolver(
		Contact{ID: "c1", DisplayName: "Julia Weber", Email: "julia@example.com"},
		Contact{ID: "c2", DisplayName: "Thomas Becker"},
	)

	annotation, err := r.ResolveName(context.Background(), "Julia")
	if err != nil {
		t.Fatalf("ResolveName() error = %v", err)
	}
	if annotation == nil {
		t.Fatal("no match for Julia")
	}
	if annotation.ContactID != "c1" {
		t.Errorf("ContactID = %s, want c1", annotation.ContactID)
	}
	if annotation.Confidence < 0.85 {
		t.Errorf("Confidence = %v, want >= 0.85", annotation.Confidence)
	}
	if annotation.NeedsConfirmation {
		t.Error("confident match should not need confirmation")
	}
}

func TestResolveNameBelowFloor(t *testing.T) {
	r := testResolver(Contact{ID: "c1", DisplayName: "Thomas Becker"})

	annotation, err := r.ResolveName(context.Background(), "Julia")
	if !errors.Is(err, entities.ErrNoMatch) {
		t.Fatalf("ResolveName() error = %v, want ErrNoMatch", err)
	}
	if annotation != nil {
		t.Errorf("expected no match, got %+v", annotation)
	}
}

func TestResolveNameTieKeepsDirectoryOrder(t *testing.T) {
	r := testResolver(
		Contact{ID: "c1", DisplayName: "Julia Weber"},
		Contact{ID: "c2", DisplayName: "Julia Wagner"},
	)

	first, err := r.ResolveName(context.Background(), "Julia")
	if err != nil {
		t.Fatalf("ResolveName() error = %v", err)
	}
	second, err := r.ResolveName(context.Background(), "Julia")
	if err != nil {
		t.Fatalf("ResolveName() error = %v", err)
	}
	if first.ContactID != "c1" || second.ContactID != "c1" {
		t.Errorf("tie should keep directory order: %s, %s", first.ContactID, second.ContactID)
	}
}

func TestResolveNameAlias(t *testing.T) {
	r := testResolver(Contact{ID: "c1", DisplayName: "Julia Weber", Aliases: []string{"Jules"}})

	annotation, err := r.ResolveName(context.Background(), "Jules")
	if err != nil {
		t.Fatalf("ResolveName() error = %v", err)
	}
	if annotation == nil || annotation.ContactID != "c1" {
		t.Errorf("alias lookup = %+v", annotation)
	}
}

func TestResolvePartyPrefersMeetingParticipants(t *testing.T) {
	// directory order would pick c-other first; the in-room participant
	// must win anyway
	r := testResolver(
		Contact{ID: "c-other", DisplayName: "Julia Wagner"},
		Contact{ID: "c-room", DisplayName: "Julia Weber"},
	)

	participants := []entities.Participant{{
		Name: "Julia Weber",
		Resolutions: []entities.IdentityAnnotation{{
			ContactID:   "c-room",
			DisplayName: "Julia Weber",
			Confidence:  1,
		}},
	}}

	ref, err := r.ResolveParty(context.Background(), entities.PartyRef{Raw: "Julia"}, participants)
	if err != nil {
		t.Fatalf("ResolveParty() error = %v", err)
	}
	if ref.ContactID != "c-room" {
		t.Errorf("ContactID = %s, want c-room", ref.ContactID)
	}
	if ref.Raw != "Julia" {
		t.Errorf("raw text must be preserved, got %q", ref.Raw)
	}
}

func TestResolvePartyNoMatchFlagsConfirmation(t *testing.T) {
	r := testResolver(Contact{ID: "c1", DisplayName: "Thomas Becker"})

	ref, err := r.ResolveParty(context.Background(), entities.PartyRef{Raw: "Marek"}, nil)
	if err != nil {
		t.Fatalf("ResolveParty() error = %v", err)
	}
	if ref.Resolved() {
		t.Errorf("unexpected resolution: %+v", ref)
	}
	if !ref.NeedsConfirmation {
		t.Error("unmatched reference should be flagged for confirmation")
	}
}

func TestResolveParticipantsAppendsHistory(t *testing.T) {
	r := testResolver(Contact{ID: "c1", DisplayName: "Julia Weber"})

	participants := []entities.Participant{{Name: "Julia", Present: true}}
	resolved, err := r.ResolveParticipants(context.Background(), participants)
	if err != nil {
		t.Fatalf("ResolveParticipants() error = %v", err)
	}
	if len(resolved[0].Resolutions) != 1 {
		t.Fatalf("Resolutions = %d, want 1", len(resolved[0].Resolutions))
	}

	// a second run appends, never overwrites
	resolved, err = r.ResolveParticipants(context.Background(), resolved)
	if err != nil {
		t.Fatalf("ResolveParticipants() error = %v", err)
	}
	if len(resolved[0].Resolutions) != 2 {
		t.Errorf("Resolutions after re-run = %d, want 2", len(resolved[0].Resolutions))
	}
	if resolved[0].CurrentIdentity().ContactID != "c1" {
		t.Errorf("CurrentIdentity = %+v", resolved[0].CurrentIdentity())
	}
}
