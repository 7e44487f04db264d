package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/dateparse"
)

// Normalizer turns the loosely structured analysis output into canonical
// records. Entries that are individually broken are dropped and recorded;
// the whole payload is rejected only when nothing usable is in it.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new Normalizer instance
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Result is the canonical output of one normalization run
type Result struct {
	Summary       string
	Participants  []entities.Participant
	Topics        []entities.Topic
	ActionItems   []entities.ActionItem
	OpenQuestions []entities.OpenQuestion
	Dropped       []entities.DroppedEntry
}

// Parse decodes a raw analysis payload. The analyzer sometimes wraps its
// JSON in markdown code fences; those are stripped first.
func (n *Normalizer) Parse(raw []byte) (*entities.AnalysisSuggestion, error) {
	jsonString := extractJSON(string(raw))

	var suggestion entities.AnalysisSuggestion
	if err := json.Unmarshal([]byte(jsonString), &suggestion); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrMalformedAnalysis, err)
	}

	return &suggestion, nil
}

// Normalize validates and canonicalizes a suggestion. meetingDate anchors
// relative deadline phrases. Returns ErrMalformedAnalysis when the payload
// has no participants or no extractable content at all.
func (n *Normalizer) Normalize(suggestion *entities.AnalysisSuggestion, meetingDate time.Time) (*Result, error) {
	if suggestion == nil {
		return nil, fmt.Errorf("%w: empty payload", entities.ErrMalformedAnalysis)
	}

	if len(suggestion.Participants) == 0 {
		return nil, fmt.Errorf("%w: no participants", entities.ErrMalformedAnalysis)
	}

	if len(suggestion.Topics) == 0 && len(suggestion.Decisions) == 0 &&
		len(suggestion.ActionItems) == 0 && len(suggestion.OpenQuestions) == 0 {
		return nil, fmt.Errorf("%w: no extractable content", entities.ErrMalformedAnalysis)
	}

	result := &Result{Summary: strings.TrimSpace(suggestion.Summary)}

	n.normalizeParticipants(suggestion, result)
	n.normalizeTopics(suggestion, result)
	n.normalizeActionItems(suggestion, result, meetingDate)
	n.normalizeOpenQuestions(suggestion, result)

	if len(result.Dropped) > 0 {
		n.logger.Warn("dropped malformed analysis entries",
			zap.Int("count", len(result.Dropped)))
	}

	return result, nil
}

func (n *Normalizer) normalizeParticipants(suggestion *entities.AnalysisSuggestion, result *Result) {
	seen := make(map[string]bool)

	for _, p := range suggestion.Participants {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			result.Dropped = append(result.Dropped, entities.DroppedEntry{
				Kind:   "participant",
				Reason: "missing name",
			})
			continue
		}

		key := strings.ToLower(name)
		if seen[key] {
			result.Dropped = append(result.Dropped, entities.DroppedEntry{
				Kind:   "participant",
				Reason: "duplicate name",
				Raw:    name,
			})
			continue
		}
		seen[key] = true

		// attendance defaults to present when the analyzer omitted it
		present := true
		if p.Present != nil {
			present = *p.Present
		}

		result.Participants = append(result.Participants, entities.Participant{
			Name:    name,
			Role:    strings.TrimSpace(p.Role),
			Present: present,
		})
	}
}

// normalizeTopics builds the topic list and attaches decisions to the topic
// whose title appears in the decision context. Decisions with no matching
// topic land in a catch-all topic so none are lost.
func (n *Normalizer) normalizeTopics(suggestion *entities.AnalysisSuggestion, result *Result) {
	for _, t := range suggestion.Topics {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			result.Dropped = append(result.Dropped, entities.DroppedEntry{
				Kind:   "topic",
				Reason: "missing title",
				Raw:    t.Content,
			})
			continue
		}
		result.Topics = append(result.Topics, entities.Topic{
			Title:   title,
			Content: strings.TrimSpace(t.Content),
		})
	}

	var general []entities.Decision

	for _, d := range suggestion.Decisions {
		desc := strings.TrimSpace(d.Description)
		if desc == "" {
			result.Dropped = append(result.Dropped, entities.DroppedEntry{
				Kind:   "decision",
				Reason: "missing description",
				Raw:    d.Context,
			})
			continue
		}

		decision := entities.Decision{
			Description: desc,
			Context:     strings.TrimSpace(d.Context),
		}
		for _, name := range d.DecidedBy {
			if name = strings.TrimSpace(name); name != "" {
				decision.DecidedBy = append(decision.DecidedBy, entities.PartyRef{Raw: name})
			}
		}

		if idx := n.matchTopic(result.Topics, decision.Context); idx >= 0 {
			result.Topics[idx].Decisions = append(result.Topics[idx].Decisions, decision)
		} else {
			general = append(general, decision)
		}
	}

	if len(general) > 0 {
		result.Topics = append(result.Topics, entities.Topic{
			Title:     "General",
			Decisions: general,
		})
	}
}

// matchTopic returns the index of the first topic whose title occurs in the
// context text, or -1
func (n *Normalizer) matchTopic(topics []entities.Topic, context string) int {
	if context == "" {
		return -1
	}
	lower := strings.ToLower(context)
	for i, t := range topics {
		if strings.Contains(lower, strings.ToLower(t.Title)) {
			return i
		}
	}
	return -1
}

func (n *Normalizer) normalizeActionItems(suggestion *entities.AnalysisSuggestion, result *Result, meetingDate time.Time) {
	for _, item := range suggestion.ActionItems {
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			result.Dropped = append(result.Dropped, entities.DroppedEntry{
				Kind:   "action_item",
				Reason: "missing description",
				Raw:    item.Context,
			})
			continue
		}

		actionItem := entities.NewActionItem(desc, entities.PartyRef{Raw: strings.TrimSpace(item.Assignee)})
		actionItem.Priority = normalizePriority(item.Priority)
		actionItem.Context = strings.TrimSpace(item.Context)

		// an explicit "no deadline" phrase clears the deadline entirely;
		// only genuinely ambiguous phrases are kept for review
		if raw := strings.TrimSpace(item.Deadline); !dateparse.Undefined(raw) {
			if deadline, ok := dateparse.Resolve(raw, meetingDate); ok {
				actionItem.Deadline = &deadline
			} else {
				actionItem.DeadlineRaw = raw
				actionItem.DeadlineUnparsed = true
			}
		}

		result.ActionItems = append(result.ActionItems, *actionItem)
	}
}

func (n *Normalizer) normalizeOpenQuestions(suggestion *entities.AnalysisSuggestion, result *Result) {
	for _, q := range suggestion.OpenQuestions {
		question := strings.TrimSpace(q.Question)
		if question == "" {
			result.Dropped = append(result.Dropped, entities.DroppedEntry{
				Kind:   "open_question",
				Reason: "missing question",
			})
			continue
		}

		oq := entities.OpenQuestion{
			Question: question,
			RaisedBy: entities.PartyRef{Raw: strings.TrimSpace(q.RaisedBy)},
		}
		if assigned := strings.TrimSpace(q.AssignedTo); assigned != "" {
			oq.AssignedTo = &entities.PartyRef{Raw: assigned}
		}

		result.OpenQuestions = append(result.OpenQuestions, oq)
	}
}

// normalizePriority maps analyzer priority strings, including the German
// forms, onto the canonical scale. Unknown values default to medium.
func normalizePriority(raw string) entities.ActionItemPriority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "hoch", "urgent", "dringend":
		return entities.ActionItemPriorityHigh
	case "low", "niedrig":
		return entities.ActionItemPriorityLow
	case "medium", "mittel", "normal", "":
		return entities.ActionItemPriorityMedium
	default:
		return entities.ActionItemPriorityMedium
	}
}

// extractJSON extracts JSON content from markdown code blocks or plain text
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
