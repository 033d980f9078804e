package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
)

func producerFixture(t *testing.T) (*DeliveryProducer, *memCampaigns, *memCustomers, *memDelivery, *memQueue) {
	t.Helper()

	customers := newMemCustomers()
	segments := newMemSegments()
	campaigns := newMemCampaigns()
	queue := newMemQueue()
	delivery := newMemDelivery(queue)

	ctx := context.Background()
	for _, name := range []string{"Ada", "Grace", "Edsger"} {
		_, err := customers.Create(ctx, &domain.Customer{Name: name, Email: name + "@example.com"})
		require.NoError(t, err)
	}

	seg, err := segments.Create(ctx, &domain.Segment{
		Name:  "everyone",
		Rules: json.RawMessage(`{"operator":"AND","conditions":[]}`),
	})
	require.NoError(t, err)

	_, err = campaigns.Create(ctx, &domain.Campaign{
		ID:        "camp-1",
		Name:      "spring promo",
		SegmentID: seg.ID,
		Message:   domain.DefaultMessageTemplate,
		Status:    domain.CampaignDraft,
	})
	require.NoError(t, err)

	producer := NewDeliveryProducer(campaigns, segments, customers, delivery, zap.NewNop())
	return producer, campaigns, customers, delivery, queue
}

func TestScheduleCreatesDeliveryWork(t *testing.T) {
	producer, campaigns, _, delivery, queue := producerFixture(t)
	ctx := context.Background()

	scheduled, err := producer.Schedule(ctx, "camp-1")
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignScheduled, scheduled.Status)
	assert.Equal(t, 3, scheduled.AudienceSize)

	stored, err := campaigns.GetByID(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignScheduled, stored.Status)
	assert.Equal(t, 3, stored.AudienceSize)

	counts, err := delivery.StatusCounts(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.DeliveryQueued])

	pending, err := queue.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	for _, record := range delivery.records {
		assert.Equal(t, domain.DefaultMessageTemplate, record.Message)
		assert.Equal(t, domain.DeliveryQueued, record.Status)
	}
}

func TestScheduleTwiceConflicts(t *testing.T) {
	producer, _, _, delivery, _ := producerFixture(t)
	ctx := context.Background()

	_, err := producer.Schedule(ctx, "camp-1")
	require.NoError(t, err)

	_, err = producer.Schedule(ctx, "camp-1")
	require.ErrorIs(t, err, domain.ErrAlreadyScheduled)
	assert.Len(t, delivery.records, 3)
}

func TestScheduleRevertsClaimWhenFanOutFails(t *testing.T) {
	producer, campaigns, _, delivery, queue := producerFixture(t)
	ctx := context.Background()

	delivery.createErr = errors.New("insert failed")

	_, err := producer.Schedule(ctx, "camp-1")
	require.Error(t, err)

	stored, err := campaigns.GetByID(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignDraft, stored.Status)
	assert.Zero(t, stored.AudienceSize)

	delivery.createErr = nil

	scheduled, err := producer.Schedule(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, 3, scheduled.AudienceSize)

	pending, err := queue.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestScheduleUnknownCampaign(t *testing.T) {
	producer, _, _, _, _ := producerFixture(t)

	_, err := producer.Schedule(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrCampaignNotFound)
}

func TestScheduleRejectsInvalidRules(t *testing.T) {
	customers := newMemCustomers()
	segments := newMemSegments()
	campaigns := newMemCampaigns()
	queue := newMemQueue()
	delivery := newMemDelivery(queue)
	ctx := context.Background()

	seg, err := segments.Create(ctx, &domain.Segment{
		Name:  "broken",
		Rules: json.RawMessage(`{"operator":"AND","conditions":[{"type":"condition","field":"password","operator":"equals","value":1}]}`),
	})
	require.NoError(t, err)

	_, err = campaigns.Create(ctx, &domain.Campaign{
		ID:        "camp-bad",
		Name:      "broken",
		SegmentID: seg.ID,
		Status:    domain.CampaignDraft,
	})
	require.NoError(t, err)

	producer := NewDeliveryProducer(campaigns, segments, customers, delivery, zap.NewNop())

	_, err = producer.Schedule(ctx, "camp-bad")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	stored, err := campaigns.GetByID(ctx, "camp-bad")
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignDraft, stored.Status)
}
