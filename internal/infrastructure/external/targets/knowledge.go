package targets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/export"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

// Knowledge writes approved decisions, topic summaries and open questions
// into the team knowledge store as markdown documents on object storage.
type Knowledge struct {
	client *minio.Client
	bucket string
}

// NewKnowledge creates the knowledge store target and ensures its bucket
func NewKnowledge(cfg config.StorageConfig) (*Knowledge, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	k := &Knowledge{client: client, bucket: cfg.BucketName}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, k.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, k.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return k, nil
}

// Name implements export.Target
func (k *Knowledge) Name() string {
	return "knowledge"
}

// Accepts implements export.Target
func (k *Knowledge) Accepts(kind entities.ReviewItemKind) bool {
	switch kind {
	case entities.ReviewItemKindDecision,
		entities.ReviewItemKindTopicSummary,
		entities.ReviewItemKindOpenQuestion:
		return true
	}
	return false
}

// Write implements export.Target. The object path is derived from the
// meeting and item, so re-delivering the same item overwrites its own
// document instead of duplicating it.
func (k *Knowledge) Write(ctx context.Context, item *export.Item) (string, error) {
	doc, err := renderMarkdown(item)
	if err != nil {
		return "", export.Permanent(err)
	}

	objectName := fmt.Sprintf("meetings/%s/rev%d/%s-%s.md",
		item.Meeting.ID, item.Meeting.Revision, item.Review.Kind, item.Review.ID)

	_, err = k.client.PutObject(ctx, k.bucket, objectName,
		bytes.NewReader(doc), int64(len(doc)),
		minio.PutObjectOptions{ContentType: "text/markdown"})
	if err != nil {
		return "", fmt.Errorf("failed to upload knowledge document: %w", err)
	}

	return objectName, nil
}

func renderMarkdown(item *export.Item) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", item.Meeting.Title)
	fmt.Fprintf(&b, "- Meeting date: %s\n", item.Meeting.MeetingDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Revision: %d\n\n", item.Meeting.Revision)

	switch item.Review.Kind {
	case entities.ReviewItemKindDecision:
		var decision entities.Decision
		if err := json.Unmarshal(item.Review.Payload, &decision); err != nil {
			return nil, fmt.Errorf("decision payload unreadable: %w", err)
		}
		fmt.Fprintf(&b, "## Decision\n\n%s\n", decision.Description)
		if len(decision.DecidedBy) > 0 {
			names := make([]string, 0, len(decision.DecidedBy))
			for _, ref := range decision.DecidedBy {
				names = append(names, partyName(ref))
			}
			fmt.Fprintf(&b, "\nDecided by: %s\n", strings.Join(names, ", "))
		}
		if decision.Context != "" {
			fmt.Fprintf(&b, "\n> %s\n", decision.Context)
		}

	case entities.ReviewItemKindTopicSummary:
		var topic entities.Topic
		if err := json.Unmarshal(item.Review.Payload, &topic); err != nil {
			return nil, fmt.Errorf("topic payload unreadable: %w", err)
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n", topic.Title, topic.Content)

	case entities.ReviewItemKindOpenQuestion:
		var question entities.OpenQuestion
		if err := json.Unmarshal(item.Review.Payload, &question); err != nil {
			return nil, fmt.Errorf("open question payload unreadable: %w", err)
		}
		fmt.Fprintf(&b, "## Open Question\n\n%s\n", question.Question)
		if question.RaisedBy.Raw != "" {
			fmt.Fprintf(&b, "\nRaised by: %s\n", partyName(question.RaisedBy))
		}
		if question.AssignedTo != nil {
			fmt.Fprintf(&b, "Assigned to: %s\n", partyName(*question.AssignedTo))
		}

	default:
		return nil, fmt.Errorf("unsupported item kind %s", item.Review.Kind)
	}

	return []byte(b.String()), nil
}

func partyName(ref entities.PartyRef) string {
	if ref.DisplayName != "" {
		return ref.DisplayName
	}
	return ref.Raw
}
