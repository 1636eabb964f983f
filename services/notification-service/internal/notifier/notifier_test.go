package notifier

import (
	"strings"
	"testing"
)

var evt = BookingEvent{
	BookingID:     42,
	Token:         "abc-123",
	CustomerName:  "Sam",
	CustomerEmail: "sam@example.com",
	Date:          "2026-09-15",
	StartTime:     "18:00",
	EndTime:       "19:30",
	Status:        "confirmed",
}

func TestComposeKnownTopics(t *testing.T) {
	cases := []struct {
		topic    string
		wantKind string
	}{
		{"booking.created.v1", KindCreated},
		{"booking.confirmed.v1", KindConfirmed},
		{"booking.cancelled.v1", KindCancelled},
		{"booking.reminder.due.v1", KindReminder},
		{"booking.completed.v1", KindReviewInvite},
	}
	for _, c := range cases {
		kind, subject, body, ok := Compose(c.topic, evt)
		if !ok {
			t.Errorf("%s: expected a message", c.topic)
			continue
		}
		if kind != c.wantKind {
			t.Errorf("%s: kind = %s, want %s", c.topic, kind, c.wantKind)
		}
		if subject == "" || body == "" {
			t.Errorf("%s: empty subject or body", c.topic)
		}
		if !strings.Contains(body, evt.CustomerName) {
			t.Errorf("%s: body does not address the customer", c.topic)
		}
	}
}

func TestComposeIncludesManagementToken(t *testing.T) {
	for _, topic := range []string{"booking.created.v1", "booking.confirmed.v1", "booking.reminder.due.v1"} {
		_, _, body, _ := Compose(topic, evt)
		if !strings.Contains(body, evt.Token) {
			t.Errorf("%s: body missing booking reference", topic)
		}
	}
}

func TestComposeUnknownTopic(t *testing.T) {
	if _, _, _, ok := Compose("booking.updated.v1", evt); ok {
		t.Error("updated events should not email the customer")
	}
	if _, _, _, ok := Compose("something.else", evt); ok {
		t.Error("unknown topics should be ignored")
	}
}
