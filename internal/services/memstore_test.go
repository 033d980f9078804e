package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/segment"
	"github.com/minicrm/backend/internal/vendorapi"
)

type memCustomers struct {
	mu    sync.Mutex
	items map[string]*domain.Customer
}

func newMemCustomers() *memCustomers {
	return &memCustomers{items: map[string]*domain.Customer{}}
}

func (m *memCustomers) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.items[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	clone := *customer
	return &clone, nil
}

func (m *memCustomers) Create(_ context.Context, customer *domain.Customer) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	m.items[customer.ID] = customer
	return customer, nil
}

func (m *memCustomers) List(_ context.Context, _, _ int) ([]domain.Customer, error) {
	return m.all(), nil
}

func (m *memCustomers) Match(_ context.Context, _ segment.Filter) ([]domain.Customer, error) {
	return m.all(), nil
}

func (m *memCustomers) CountMatch(_ context.Context, _ segment.Filter) (int, error) {
	return len(m.all()), nil
}

func (m *memCustomers) all() []domain.Customer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Customer, 0, len(m.items))
	for _, customer := range m.items {
		out = append(out, *customer)
	}
	return out
}

type memSegments struct {
	mu    sync.Mutex
	items map[string]*domain.Segment
}

func newMemSegments() *memSegments {
	return &memSegments{items: map[string]*domain.Segment{}}
}

func (m *memSegments) GetByID(_ context.Context, id string) (*domain.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seg, ok := m.items[id]
	if !ok {
		return nil, domain.ErrSegmentNotFound
	}
	return seg, nil
}

func (m *memSegments) Create(_ context.Context, seg *domain.Segment) (*domain.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	m.items[seg.ID] = seg
	return seg, nil
}

func (m *memSegments) List(_ context.Context, _, _ int) ([]domain.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Segment, 0, len(m.items))
	for _, seg := range m.items {
		out = append(out, *seg)
	}
	return out, nil
}

type memCampaigns struct {
	mu    sync.Mutex
	items map[string]*domain.Campaign
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{items: map[string]*domain.Campaign{}}
}

func (m *memCampaigns) GetByID(_ context.Context, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.items[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	clone := *campaign
	return &clone, nil
}

func (m *memCampaigns) Create(_ context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	m.items[campaign.ID] = campaign
	return campaign, nil
}

func (m *memCampaigns) List(_ context.Context, _, _ int) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Campaign, 0, len(m.items))
	for _, campaign := range m.items {
		out = append(out, *campaign)
	}
	return out, nil
}

func (m *memCampaigns) MarkScheduled(_ context.Context, id string, audienceSize int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.items[id]
	if !ok {
		return false, domain.ErrCampaignNotFound
	}
	if campaign.Status != domain.CampaignDraft {
		return false, nil
	}
	campaign.Status = domain.CampaignScheduled
	campaign.AudienceSize = audienceSize
	return true, nil
}

func (m *memCampaigns) RevertSchedule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.items[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	if campaign.Status == domain.CampaignScheduled && campaign.SentCount == 0 && campaign.FailedCount == 0 {
		campaign.Status = domain.CampaignDraft
		campaign.AudienceSize = 0
	}
	return nil
}

func (m *memCampaigns) IncrementCounter(_ context.Context, id string, outcome domain.DeliveryStatus, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.items[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	if outcome == domain.DeliverySent {
		campaign.SentCount += n
	} else {
		campaign.FailedCount += n
	}
	return nil
}

func (m *memCampaigns) MarkSentIfResolved(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.items[id]
	if !ok {
		return false, domain.ErrCampaignNotFound
	}
	if campaign.Status == domain.CampaignScheduled && campaign.IsResolved() {
		campaign.Status = domain.CampaignSent
		return true, nil
	}
	return false, nil
}

type memQueue struct {
	mu    sync.Mutex
	items map[string]*domain.QueueItem
	order []string
}

func newMemQueue() *memQueue {
	return &memQueue{items: map[string]*domain.QueueItem{}}
}

func (m *memQueue) add(recordID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := &domain.QueueItem{
		ID:        uuid.NewString(),
		RecordID:  recordID,
		Status:    domain.QueuePending,
		CreatedAt: time.Now(),
	}
	m.items[item.ID] = item
	m.order = append(m.order, item.ID)
}

func (m *memQueue) Claim(_ context.Context, limit int) ([]domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claimed := make([]domain.QueueItem, 0, limit)
	for _, id := range m.order {
		if len(claimed) >= limit {
			break
		}
		item := m.items[id]
		if item.Status != domain.QueuePending {
			continue
		}
		item.Status = domain.QueueProcessing
		item.ProcessingAttempts++
		now := time.Now()
		item.LastProcessedAt = &now
		claimed = append(claimed, *item)
	}
	return claimed, nil
}

func (m *memQueue) Complete(_ context.Context, id string) error {
	return m.transition(id, domain.QueueCompleted)
}

func (m *memQueue) Fail(_ context.Context, id string) error {
	return m.transition(id, domain.QueueFailed)
}

func (m *memQueue) Release(_ context.Context, id string) error {
	return m.transition(id, domain.QueuePending)
}

func (m *memQueue) ReleaseStale(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}

func (m *memQueue) transition(id string, status domain.QueueStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.ErrQueueItemNotFound
	}
	item.Status = status
	return nil
}

func (m *memQueue) byRecord(recordID string) *domain.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.RecordID == recordID {
			clone := *item
			return &clone
		}
	}
	return nil
}

type memDelivery struct {
	mu           sync.Mutex
	records      map[string]*domain.DeliveryRecord
	queue        *memQueue
	createErr    error
	setStatusErr error
}

func newMemDelivery(queue *memQueue) *memDelivery {
	return &memDelivery{records: map[string]*domain.DeliveryRecord{}, queue: queue}
}

func (m *memDelivery) CreateBatch(_ context.Context, records []domain.DeliveryRecord) error {
	m.mu.Lock()
	if m.createErr != nil {
		m.mu.Unlock()
		return m.createErr
	}
	for i := range records {
		record := records[i]
		m.records[record.ID] = &record
	}
	m.mu.Unlock()
	if m.queue != nil {
		for _, record := range records {
			m.queue.add(record.ID)
		}
	}
	return nil
}

func (m *memDelivery) GetRecord(_ context.Context, id string) (*domain.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *memDelivery) MarkAttempt(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	record.DeliveryAttempts++
	return nil
}

func (m *memDelivery) SetStatus(_ context.Context, ids []string, status domain.DeliveryStatus, at time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setStatusErr != nil {
		return nil, m.setStatusErr
	}
	var transitioned []string
	for _, id := range ids {
		record, ok := m.records[id]
		if !ok || record.Status != domain.DeliveryQueued {
			continue
		}
		record.Status = status
		if status == domain.DeliverySent {
			record.SentAt = &at
		} else {
			record.FailedAt = &at
		}
		transitioned = append(transitioned, id)
	}
	return transitioned, nil
}

func (m *memDelivery) StatusCounts(_ context.Context, campaignID string) (map[domain.DeliveryStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[domain.DeliveryStatus]int{}
	for _, record := range m.records {
		if record.CampaignID == campaignID {
			counts[record.Status]++
		}
	}
	return counts, nil
}

type memBatches struct {
	mu    sync.Mutex
	items map[string]*domain.BatchUpdate
	order []string
}

func newMemBatches() *memBatches {
	return &memBatches{items: map[string]*domain.BatchUpdate{}}
}

func (m *memBatches) Append(_ context.Context, recordID string, outcome domain.DeliveryStatus, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		batch := m.items[id]
		if batch.Status == domain.BatchPending && batch.Outcome == outcome && len(batch.RecordIDs) < capacity {
			batch.RecordIDs = append(batch.RecordIDs, recordID)
			batch.Size = len(batch.RecordIDs)
			return nil
		}
	}
	batch := &domain.BatchUpdate{
		ID:        uuid.NewString(),
		RecordIDs: []string{recordID},
		Size:      1,
		Outcome:   outcome,
		Status:    domain.BatchPending,
		CreatedAt: time.Now(),
	}
	m.items[batch.ID] = batch
	m.order = append(m.order, batch.ID)
	return nil
}

func (m *memBatches) Claim(_ context.Context, limit int) ([]domain.BatchUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claimed := make([]domain.BatchUpdate, 0, limit)
	for _, id := range m.order {
		if len(claimed) >= limit {
			break
		}
		batch := m.items[id]
		if batch.Status != domain.BatchPending {
			continue
		}
		batch.Status = domain.BatchProcessing
		claimed = append(claimed, *batch)
	}
	return claimed, nil
}

func (m *memBatches) Complete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.items[id]
	if !ok {
		return false, nil
	}
	if batch.Status != domain.BatchProcessing {
		return false, nil
	}
	batch.Status = domain.BatchCompleted
	return true, nil
}

func (m *memBatches) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if batch, ok := m.items[id]; ok && batch.Status == domain.BatchProcessing {
		batch.Status = domain.BatchPending
	}
	return nil
}

func (m *memBatches) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, batch := range m.items {
		if batch.Status == domain.BatchPending {
			n++
		}
	}
	return n
}

// scriptedSender returns its results in order, then repeats the last one.
type scriptedSender struct {
	mu      sync.Mutex
	results []vendorapi.Result
	err     error
	calls   []string
}

func (s *scriptedSender) Send(_ context.Context, _ string, message string) (vendorapi.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, message)
	if s.err != nil {
		return vendorapi.Result{}, s.err
	}
	if len(s.results) == 0 {
		return vendorapi.Result{Success: true, MessageID: "msg_" + uuid.NewString(), Timestamp: time.Now()}, nil
	}
	result := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return result, nil
}

func (s *scriptedSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type receiptRecorder struct {
	mu       sync.Mutex
	receipts []domain.DeliveryStatus
}

func (r *receiptRecorder) PushReceipt(_ string, status domain.DeliveryStatus, _ vendorapi.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, status)
}

type outcomeCollector struct {
	mu       sync.Mutex
	outcomes map[string]domain.DeliveryStatus
}

func newOutcomeCollector() *outcomeCollector {
	return &outcomeCollector{outcomes: map[string]domain.DeliveryStatus{}}
}

func (c *outcomeCollector) AddOutcome(_ context.Context, recordID string, outcome domain.DeliveryStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[recordID] = outcome
	return nil
}
