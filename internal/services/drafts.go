package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/bounty-flow-api/internal/constants"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoDraftsGenerated    = errors.New("AI did not generate any drafts")
	ErrAINoValidDrafts        = errors.New("no valid drafts could be built from AI output")
	ErrDraftTextRequired      = errors.New("text is required")
)

// DraftTasks suggests bounties for a free-text request. Nothing is created;
// callers post the drafts they accept through CreateTask.
func (s *BountyService) DraftTasks(ctx context.Context, text string) ([]BountyDraft, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrDraftTextRequired
	}

	drafts, err := s.aiService.GenerateBountyDrafts(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate drafts: %w", err)
	}

	if len(drafts) == 0 {
		return nil, ErrAINoDraftsGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedDrafts {
		drafts = drafts[:constants.MaxAIGeneratedDrafts]
	}

	valid := make([]BountyDraft, 0, len(drafts))
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" || d.Amount <= 0 {
			continue
		}
		valid = append(valid, d)
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidDrafts
	}

	return valid, nil
}
