package models

import (
	"fmt"
	"time"

	"github.com/danielhkuo/rentradar/apperr"
)

// Collection names
const (
	CollectionReports  = "reports"
	CollectionVotes    = "votes"
	CollectionFeedback = "feedback"
	CollectionUsers    = "users"
)

// ReportTTL is how long a report stays publicly visible after creation.
const ReportTTL = 14 * 24 * time.Hour

// AdminPageSize is the fixed page size of the moderation views.
const AdminPageSize = 10

// Report status constants (set by creation or moderation only)
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User status constants
const (
	UserActive     = "active"
	UserRestricted = "restricted"
	UserBanned     = "banned"
)

// VoteCategory is one of the four vote kinds a user can cast on a report.
type VoteCategory string

const (
	VoteConfirm  VoteCategory = "confirm"
	VotePossible VoteCategory = "possible"
	VoteFraud    VoteCategory = "fraud"
	VoteInactive VoteCategory = "inactive"
)

// Categories lists every vote category.
var Categories = []VoteCategory{VoteConfirm, VotePossible, VoteFraud, VoteInactive}

// ParseCategory validates a category coming from a request.
func ParseCategory(s string) (VoteCategory, error) {
	switch c := VoteCategory(s); c {
	case VoteConfirm, VotePossible, VoteFraud, VoteInactive:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", apperr.ErrInvalidCategory, s)
}

// Field returns the report counter the category maintains.
func (c VoteCategory) Field() string {
	switch c {
	case VoteConfirm:
		return "confirmations"
	case VotePossible:
		return "possibleFraudVotes"
	case VoteFraud:
		return "fraudVotes"
	case VoteInactive:
		return "inactiveVotes"
	}
	panic(fmt.Sprintf("unknown vote category %q", string(c)))
}

// DisplayStatus is the status derived from a report's counters.
type DisplayStatus string

const (
	DisplayNeutral  DisplayStatus = "neutral"
	DisplayConfirm  DisplayStatus = "confirm"
	DisplayPossible DisplayStatus = "possible"
	DisplayFraud    DisplayStatus = "fraud"
	DisplayInactive DisplayStatus = "inactive"
)

// Vote transitions returned by the ledger
const (
	TransitionCreated   = "created"
	TransitionWithdrawn = "withdrawn"
	TransitionSwitched  = "switched"
)

// Domain types

type Counters struct {
	Confirmations      int64 `json:"confirmations"`
	PossibleFraudVotes int64 `json:"possible_fraud_votes"`
	FraudVotes         int64 `json:"fraud_votes"`
	InactiveVotes      int64 `json:"inactive_votes"`
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Report struct {
	ID          string    `json:"id"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Location    Location  `json:"location"`
	Price       *string   `json:"price,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Status      string    `json:"status"`
	Counters    Counters  `json:"counters"`
}

// Vote is a voter's single vote on a report. Applied is false while the
// counter deltas of its last transition are still being written.
type Vote struct {
	ReportID  string       `json:"report_id"`
	VoterID   string       `json:"voter_id"`
	Category  VoteCategory `json:"vote_type"`
	UpdatedAt time.Time    `json:"updated_at"`
	Applied   bool         `json:"applied"`
}

type Feedback struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Resolved  bool      `json:"resolved"`
	CreatedBy *string   `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	ID                 string     `json:"id"`
	DisplayName        string     `json:"display_name"`
	Email              string     `json:"email,omitempty"`
	ReputationScore    int64      `json:"reputation_score"`
	ContributionsCount int64      `json:"contributions_count"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
}

// Request types

type CreateReportRequest struct {
	Location    *Location `json:"location"`
	Price       string    `json:"price"`
	Phone       string    `json:"phone"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
}

type EditReportRequest struct {
	Price       string `json:"price"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

type CastVoteRequest struct {
	VoteType string `json:"vote_type"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type SetResolvedRequest struct {
	Resolved bool `json:"resolved"`
}

type SubmitFeedbackRequest struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type SessionRequest struct {
	Email string `json:"email"`
}

// Response types

type CreateReportResponse struct {
	ReportID  string    `json:"report_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReportView is a report with its derived status, as served to clients.
type ReportView struct {
	Report
	DisplayStatus DisplayStatus `json:"display_status"`
	Visible       bool          `json:"visible"`
}

type ListReportsResponse struct {
	Reports []ReportView `json:"reports"`
}

type CastVoteResponse struct {
	Transition string `json:"transition"`
	Message    string `json:"message"`
}

type MyVoteResponse struct {
	VoteType *VoteCategory `json:"vote_type"`
}

type SubmitFeedbackResponse struct {
	FeedbackID string `json:"feedback_id"`
}

type StatsResponse struct {
	TotalFeedback   int64 `json:"total_feedback"`
	PendingFeedback int64 `json:"pending_feedback"`
	ActiveReports   int64 `json:"active_reports"`
	InactiveReports int64 `json:"inactive_reports"`
}

// AdminReportRow is a report in the moderation table.
type AdminReportRow struct {
	Report
	DisplayStatus DisplayStatus `json:"display_status"`
	Age           string        `json:"age"`
}

type AdminFeedbackRow struct {
	Feedback
	Age string `json:"age"`
}

type ReportPageResponse struct {
	Items      []AdminReportRow `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

type FeedbackPageResponse struct {
	Items      []AdminFeedbackRow `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

// StreamMessage is one websocket frame of the report stream.
type StreamMessage struct {
	Type     string      `json:"type"` // "snapshot" or "removed"
	ReportID string      `json:"report_id"`
	Report   *ReportView `json:"report,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
