package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	"github.com/noah-isme/alumni-portal-api/pkg/jobs"
)

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockSender struct {
	mu       sync.Mutex
	messages map[int64][]string
}

func (m *mockSender) SendOutcome(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages == nil {
		m.messages = make(map[int64][]string)
	}
	m.messages[chatID] = append(m.messages[chatID], text)
	return nil
}

func (m *mockSender) sent(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages[chatID]...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNotificationServiceDeliversToLinkedChat(t *testing.T) {
	tgID := int64(42)
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", TelegramID: &tgID},
	}}
	sender := &mockSender{}
	svc := NewNotificationService(users, sender, nil, jobs.QueueConfig{Workers: 1}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyResolution(models.ResolutionEvent{
		RequestID: "req-1",
		UserID:    "user-1",
		Kind:      models.RequestKindCourse,
		Outcome:   models.RequestStatusApproved,
		Feedback:  "welcome",
		Subject:   "Robotics",
	})

	waitFor(t, func() bool { return len(sender.sent(tgID)) == 1 })
	msg := sender.sent(tgID)[0]
	assert.Contains(t, msg, "Robotics")
	assert.Contains(t, msg, "approved")
	assert.Contains(t, msg, "welcome")
}

func TestNotificationServiceSkipsUnlinkedUser(t *testing.T) {
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1"},
	}}
	sender := &mockSender{}
	svc := NewNotificationService(users, sender, nil, jobs.QueueConfig{Workers: 1}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.NotifyResolution(models.ResolutionEvent{RequestID: "req-1", UserID: "user-1", Kind: models.RequestKindPass, Outcome: models.RequestStatusRejected})

	// Nothing to deliver; just make sure the worker drains without sending.
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, sender.messages)
}

func TestFormatOutcomeMessage(t *testing.T) {
	msg := FormatOutcomeMessage(models.ResolutionEvent{
		Kind:    models.RequestKindPass,
		Outcome: models.RequestStatusRejected,
		Subject: "2026-09-12",
	})
	assert.Contains(t, msg, "campus pass request")
	assert.Contains(t, msg, "2026-09-12")
	assert.Contains(t, msg, "rejected")
	assert.NotContains(t, msg, "Feedback:")

	withFeedback := FormatOutcomeMessage(models.ResolutionEvent{
		Kind:     models.RequestKindCourse,
		Outcome:  models.RequestStatusApproved,
		Subject:  "Robotics",
		Feedback: "see you Monday",
	})
	assert.Contains(t, withFeedback, "Feedback: see you Monday")
}
