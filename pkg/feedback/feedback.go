// Package feedback records user ratings of assistant answers.
package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/snow-ghost/codeassist/pkg/store"
)

// Rating thresholds.
const (
	ApprovedMin    = 4
	DisapprovedMax = 2
)

// ErrNotAssistantMessage is returned when rating a user turn.
var ErrNotAssistantMessage = errors.New("only assistant messages can be rated")

// Service saves and summarizes feedback
type Service struct {
	store store.Store
}

// NewService creates a feedback service
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Save rates an assistant message. The agent name is the provider that answered it.
func (s *Service) Save(ctx context.Context, messageID int64, rating int, comment string) (store.Feedback, error) {
	if !store.ValidRating(rating) {
		return store.Feedback{}, store.ErrInvalidRating
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return store.Feedback{}, err
	}
	if msg.Role != store.RoleAssistant {
		return store.Feedback{}, fmt.Errorf("%w: message %d", ErrNotAssistantMessage, messageID)
	}

	return s.store.SaveFeedback(ctx, store.Feedback{
		MessageID: messageID,
		AgentName: msg.Provider,
		Rating:    rating,
		Comment:   comment,
	})
}

// Summary aggregates the feedback on one message.
type Summary struct {
	MessageID        int64    `json:"message_id"`
	AgentName        string   `json:"agent_name,omitempty"`
	ApprovedCount    int      `json:"approved_count"`
	DisapprovedCount int      `json:"disapproved_count"`
	AverageRating    float64  `json:"average_rating"`
	Comments         []string `json:"comments"`
}

// Summary counts ratings of ApprovedMin and up as approved and ratings of
// DisapprovedMax and below as disapproved. Neutral ratings count toward the average only.
func (s *Service) Summary(ctx context.Context, messageID int64) (Summary, error) {
	entries, err := s.store.ListFeedback(ctx, messageID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{MessageID: messageID, Comments: []string{}}
	total := 0
	for _, fb := range entries {
		sum.AgentName = fb.AgentName
		total += fb.Rating
		switch {
		case fb.Rating >= ApprovedMin:
			sum.ApprovedCount++
		case fb.Rating <= DisapprovedMax:
			sum.DisapprovedCount++
		}
		if fb.Comment != "" {
			sum.Comments = append(sum.Comments, fb.Comment)
		}
	}
	if len(entries) > 0 {
		sum.AverageRating = float64(total) / float64(len(entries))
	}
	return sum, nil
}
