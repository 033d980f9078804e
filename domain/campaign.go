package domain

import (
	"encoding/json"
	"time"
)

// CampaignStatus enumerates the lifecycle of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
)

// DefaultMessageTemplate is used when a campaign is created without one.
// The {name} placeholder is substituted per recipient at send time.
const DefaultMessageTemplate = "Hi {name}, here's 10% off on your next order!"

// Segment stores a reusable audience rule tree. The tree is kept as raw JSON
// here and compiled into a store query by the segment package.
type Segment struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Rules     json.RawMessage `json:"rules"`
	CreatedAt time.Time       `json:"created_at"`
}

// Campaign fans one message template out to every customer matching its segment.
// Invariant: SentCount + FailedCount never exceeds AudienceSize.
type Campaign struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	SegmentID    string         `json:"segment_id"`
	Message      string         `json:"message_template"`
	AudienceSize int            `json:"audience_size"`
	SentCount    int            `json:"sent_count"`
	FailedCount  int            `json:"failed_count"`
	Status       CampaignStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

// IsResolved reports whether every recipient reached a terminal delivery state.
func (c *Campaign) IsResolved() bool {
	return c != nil && c.AudienceSize > 0 && c.SentCount+c.FailedCount >= c.AudienceSize
}
