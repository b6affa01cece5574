package services

import (
	"time"

	"productboards-backend/internal/models"
)

// Sidebar recency buckets, in display order.
const (
	BucketToday     = "Today"
	BucketYesterday = "Yesterday"
	BucketLastWeek  = "Previous 7 Days"
	BucketOlder     = "Older"
)

var bucketOrder = []string{BucketToday, BucketYesterday, BucketLastWeek, BucketOlder}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// BucketFor classifies updatedAt relative to now. Calendar days are taken in now's location.
// Timestamps ahead of now (clock skew) count as Today.
func BucketFor(updatedAt, now time.Time) string {
	t := updatedAt.In(now.Location())
	switch {
	case sameDay(t, now) || t.After(now):
		return BucketToday
	case sameDay(t, now.AddDate(0, 0, -1)):
		return BucketYesterday
	case t.After(now.AddDate(0, 0, -7)):
		return BucketLastWeek
	default:
		return BucketOlder
	}
}

// GroupByRecency splits conversations into buckets, keeping their relative order.
// Empty buckets are omitted.
func GroupByRecency(convs []models.Conversation, now time.Time) []models.ConversationGroup {
	byBucket := make(map[string][]models.Conversation, len(bucketOrder))
	for _, c := range convs {
		b := BucketFor(c.UpdatedAt, now)
		byBucket[b] = append(byBucket[b], c)
	}

	groups := make([]models.ConversationGroup, 0, len(bucketOrder))
	for _, label := range bucketOrder {
		if len(byBucket[label]) == 0 {
			continue
		}
		groups = append(groups, models.ConversationGroup{Label: label, Conversations: byBucket[label]})
	}
	return groups
}
