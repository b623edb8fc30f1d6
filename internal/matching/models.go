// internal/matching/models.go

package matching

import (
	"fmt"
	"time"

	"github.com/xperia/xperia-backend/internal/common/database"
	"github.com/xperia/xperia-backend/internal/travelers"
)

// Status is the lifecycle state of a match. Only pending has outgoing
// transitions.
type Status string

const (
	StatusPending  Status = "pending"
	StatusMutual   Status = "mutual"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

type Response string

const (
	ResponseAccept  Response = "accept"
	ResponseDecline Response = "decline"
)

const (
	DefaultMatchTTL        = 7 * 24 * time.Hour
	maxSuggestedActivities = 3
)

// Match is a proposed pairing of two travelers. User1 is the initiator.
type Match struct {
	ID                  int64               `json:"id" db:"id"`
	PairKey             string              `json:"-" db:"pair_key"`
	User1ID             int64               `json:"user1_id" db:"user1_id"`
	User2ID             int64               `json:"user2_id" db:"user2_id"`
	CompatibilityScore  int                 `json:"compatibility_score" db:"compatibility_score"`
	Status              Status              `json:"status" db:"status"`
	MatchReason         string              `json:"match_reason" db:"match_reason"`
	CommonInterests     database.StringList `json:"common_interests" db:"common_interests"`
	SuggestedActivities database.StringList `json:"suggested_activities" db:"suggested_activities"`
	CreatedByAgent      bool                `json:"created_by_agent" db:"created_by_agent"`
	ExpiresAt           time.Time           `json:"expires_at" db:"expires_at"`
	CreatedAt           time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" db:"updated_at"`
}

// HasParticipant reports whether the user is one side of the match
func (m *Match) HasParticipant(userID int64) bool {
	return userID != 0 && (m.User1ID == userID || m.User2ID == userID)
}

// Counterpart returns the other side of the match
func (m *Match) Counterpart(userID int64) int64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// PairKey is the canonical key of an unordered pair of users
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// MatchView is a match as seen by one participant
type MatchView struct {
	*Match
	OtherUser *travelers.PublicProfile `json:"other_user"`
}

type RespondRequest struct {
	Response Response `json:"response" validate:"required,oneof=accept decline"`
}

// RespondResult carries the conversation unlocked by an accept
type RespondResult struct {
	Match          *Match `json:"match"`
	ConversationID *int64 `json:"conversation_id"`
}

// ScanResult reports the matches created by a scan or sweep
type ScanResult struct {
	MatchesCreated int      `json:"matches_created"`
	Matches        []*Match `json:"matches"`
}

type MeetupResponse struct {
	MatchID    int64  `json:"match_id"`
	Suggestion string `json:"suggestion"`
}
