package session

import (
	"context"
	"fmt"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
)

// SubmitCheckin uploads the guest's check-in documents. The guest must be
// identified; an active conversation is not required.
func (e *Engine) SubmitCheckin(ctx context.Context, files []api.CheckinFile) error {
	if len(files) == 0 {
		return fmt.Errorf("session: no documents to submit")
	}

	e.mu.Lock()
	guest := e.guest
	e.mu.Unlock()
	if guest.ID == "" {
		return &chaterr.IdentityError{Reason: "identify before submitting documents"}
	}

	return e.client.SubmitCheckinDocuments(ctx, files, guest.fields())
}
