package domain

import (
	"strings"
	"time"
)

// DeliveryStatus enumerates the state of one owed message. QUEUED is the only
// non-terminal state; SENT and FAILED are write-once.
type DeliveryStatus string

const (
	DeliveryQueued DeliveryStatus = "QUEUED"
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// QueueStatus enumerates the processing state of a delivery queue item.
type QueueStatus string

const (
	QueuePending    QueueStatus = "PENDING"
	QueueProcessing QueueStatus = "PROCESSING"
	QueueCompleted  QueueStatus = "COMPLETED"
	QueueFailed     QueueStatus = "FAILED"
)

// BatchStatus enumerates the state of a batch update accumulator.
type BatchStatus string

const (
	BatchPending    BatchStatus = "PENDING"
	BatchProcessing BatchStatus = "PROCESSING"
	BatchCompleted  BatchStatus = "COMPLETED"
)

// BatchCapacity bounds how many record ids a single batch update may carry.
const BatchCapacity = 100

// DeliveryRecord is the durable record of one message owed to one recipient
// for one campaign. Exactly one exists per (campaign, customer) pair.
type DeliveryRecord struct {
	ID               string         `json:"id"`
	CampaignID       string         `json:"campaign_id"`
	CustomerID       string         `json:"customer_id"`
	Message          string         `json:"message"`
	Status           DeliveryStatus `json:"status"`
	DeliveryAttempts int            `json:"delivery_attempts"`
	SentAt           *time.Time     `json:"sent_at,omitempty"`
	FailedAt         *time.Time     `json:"failed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Render substitutes the recipient name into the message template.
func (r *DeliveryRecord) Render(name string) string {
	if r == nil {
		return ""
	}
	if name == "" {
		name = "Customer"
	}
	return strings.ReplaceAll(r.Message, "{name}", name)
}

// QueueItem is the unit of work tracking processing state of one DeliveryRecord.
type QueueItem struct {
	ID                 string      `json:"id"`
	RecordID           string      `json:"record_id"`
	Status             QueueStatus `json:"status"`
	ProcessingAttempts int         `json:"processing_attempts"`
	LastProcessedAt    *time.Time  `json:"last_processed_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// BatchUpdate accumulates delivery record ids sharing the same target outcome
// so their terminal writes and the campaign counter increment happen in bulk.
type BatchUpdate struct {
	ID        string         `json:"id"`
	RecordIDs []string       `json:"record_ids"`
	Size      int            `json:"size"`
	Outcome   DeliveryStatus `json:"outcome"`
	Status    BatchStatus    `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
