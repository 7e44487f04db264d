package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

// Contact is one entry of the contact directory
type Contact struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Directory looks up contacts by a free-text name fragment
type Directory interface {
	Lookup(ctx context.Context, name string) ([]Contact, error)
}

// Resolver links spoken names to directory contacts. Matches below the
// floor are treated as no match, matches between floor and the confirm
// threshold are flagged for human confirmation, and only matches at or
// above the threshold pass through silently.
type Resolver struct {
	directory Directory
	scorer    Scorer
	floor     float64
	confirm   float64
	logger    *zap.Logger
}

// NewResolver creates a new Resolver instance
func NewResolver(directory Directory, scorer Scorer, cfg config.ResolverConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		scorer:    scorer,
		floor:     cfg.MatchFloor,
		confirm:   cfg.ConfirmThreshold,
		logger:    logger,
	}
}

// ResolveName finds the best directory match for a name. Returns
// ErrNoMatch when no contact scores at or above the floor. Ties keep
// directory order, so the same input always resolves to the same contact.
func (r *Resolver) ResolveName(ctx context.Context, name string) (*entities.IdentityAnnotation, error) {
	contacts, err := r.directory.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("directory lookup for %q: %w", name, err)
	}

	var (
		best      *Contact
		bestScore float64
	)
	for i := range contacts {
		score := r.scoreContact(name, contacts[i])
		if score > bestScore {
			best = &contacts[i]
			bestScore = score
		}
	}

	if best == nil || bestScore < r.floor {
		return nil, fmt.Errorf("resolving %q: %w", name, entities.ErrNoMatch)
	}

	return &entities.IdentityAnnotation{
		ContactID:         best.ID,
		DisplayName:       best.DisplayName,
		Email:             best.Email,
		Confidence:        bestScore,
		NeedsConfirmation: bestScore < r.confirm,
		ResolvedAt:        time.Now().UTC(),
	}, nil
}

// scoreContact takes the best score across the display name and all aliases
func (r *Resolver) scoreContact(name string, c Contact) float64 {
	score := r.scorer.Score(name, c.DisplayName)
	for _, alias := range c.Aliases {
		if s := r.scorer.Score(name, alias); s > score {
			score = s
		}
	}
	return score
}

// ResolveParticipants annotates each participant with its best directory
// match. Participants with no match keep an empty resolution history; the
// raw name is never altered.
func (r *Resolver) ResolveParticipants(ctx context.Context, participants []entities.Participant) ([]entities.Participant, error) {
	for i := range participants {
		annotation, err := r.ResolveName(ctx, participants[i].Name)
		if errors.Is(err, entities.ErrNoMatch) {
			r.logger.Info("no directory match for participant",
				zap.String("name", participants[i].Name))
			continue
		}
		if err != nil {
			return nil, err
		}
		participants[i].Annotate(*annotation)
	}
	return participants, nil
}

// ResolveParty resolves a person reference inside extracted content.
// Participants of the same meeting are preferred over the wider directory:
// a name mentioned in a decision almost always refers to someone in the
// room. The raw text is always preserved.
func (r *Resolver) ResolveParty(ctx context.Context, ref entities.PartyRef, participants []entities.Participant) (entities.PartyRef, error) {
	if ref.Raw == "" {
		return ref, nil
	}

	var (
		best      *entities.IdentityAnnotation
		bestScore float64
	)
	for i := range participants {
		score := r.scorer.Score(ref.Raw, participants[i].Name)
		if id := participants[i].CurrentIdentity(); id != nil && score > bestScore {
			best = id
			bestScore = score
		}
	}

	if best != nil && bestScore >= r.floor {
		ref.ContactID = best.ContactID
		ref.DisplayName = best.DisplayName
		ref.Confidence = bestScore
		ref.NeedsConfirmation = bestScore < r.confirm
		return ref, nil
	}

	annotation, err := r.ResolveName(ctx, ref.Raw)
	if errors.Is(err, entities.ErrNoMatch) {
		ref.NeedsConfirmation = true
		return ref, nil
	}
	if err != nil {
		return ref, err
	}

	ref.ContactID = annotation.ContactID
	ref.DisplayName = annotation.DisplayName
	ref.Confidence = annotation.Confidence
	ref.NeedsConfirmation = annotation.NeedsConfirmation
	return ref, nil
}
