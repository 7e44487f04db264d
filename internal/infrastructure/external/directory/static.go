package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/identity"
)

// Static serves contacts from a JSON file on disk. Used in deployments
// without a directory service and in local development.
type Static struct {
	contacts []identity.Contact
}

// NewStatic loads the contacts file once at startup
func NewStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts file: %w", err)
	}

	var contacts []identity.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("failed to parse contacts file %s: %w", path, err)
	}

	return &Static{contacts: contacts}, nil
}

// Lookup returns the full contact list; scoring narrows it down
func (s *Static) Lookup(_ context.Context, _ string) ([]identity.Contact, error) {
	return s.contacts, nil
}
