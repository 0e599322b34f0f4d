package summarize

import (
	"context"
	"fmt"

	"github.com/guilhermegouw/voxchat/internal/session"
)

// TwoStepResult holds a summary and the action items derived from it.
type TwoStepResult struct {
	Summary     session.HistoryEntry
	ActionItems session.HistoryEntry
}

// TwoStep summarizes req, then asks the same model for action items based
// on that summary.
func TwoStep(ctx context.Context, s Summarizer, req Request) (TwoStepResult, error) {
	first, err := s.Summarize(ctx, req)
	if err != nil {
		return TwoStepResult{}, fmt.Errorf("summary step: %w", err)
	}

	followUp := Request{
		Content: "Based on the summary below, produce a concise list of action items (3-8 items) and next steps " +
			"the user can take. Keep each item short and actionable.\n\nSUMMARY:\n" + first.Summary,
		InputType: InputText,
		History:   []session.HistoryEntry{first},
		ModelID:   req.ModelID,
	}
	second, err := s.Summarize(ctx, followUp)
	if err != nil {
		return TwoStepResult{Summary: first}, fmt.Errorf("action items step: %w", err)
	}
	return TwoStepResult{Summary: first, ActionItems: second}, nil
}
