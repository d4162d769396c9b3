package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(i int, user string, success bool) Event {
	e := NewEvent().
		WithActor(user, "outsource").
		WithArticle(fmt.Sprintf("article %d", i), "normal").
		WithResult(success, "", "", int64(i))
	e.Timestamp = time.Date(2026, 4, 1, 0, i, 0, 0, time.UTC)
	return *e
}

func TestNewEvent(t *testing.T) {
	e := NewEvent()
	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Second)
}

func TestEventBuilders(t *testing.T) {
	e := NewEvent().
		WithActor("vendor", "outsource").
		WithArticle(strings.Repeat("标", maxTitleRunes+10), "headline").
		WithModeration("disabled", true).
		WithPost(77, "draft").
		WithResult(true, "", "", 15).
		WithRequestID("req-1")

	assert.Equal(t, "vendor", e.Username)
	assert.Len(t, []rune(e.Title), maxTitleRunes)
	assert.Equal(t, "headline", e.PublishType)
	assert.True(t, e.ModerationBypassed)
	require.NotNil(t, e.PostID)
	assert.Equal(t, int64(77), *e.PostID)
	assert.Equal(t, "draft", e.CMSStatus)
	assert.Equal(t, int64(15), e.DurationMS)
	assert.Equal(t, "req-1", e.RequestID)
}

func TestMemoryLogger_NewestFirst(t *testing.T) {
	m := NewMemoryLogger(10)
	ctx := context.Background()
	for i := range 3 {
		require.NoError(t, m.Log(ctx, testEvent(i, "a", true)))
	}

	got, err := m.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "article 2", got[0].Title)
	assert.Equal(t, "article 0", got[2].Title)
}

func TestMemoryLogger_RingOverwrites(t *testing.T) {
	m := NewMemoryLogger(3)
	ctx := context.Background()
	for i := range 5 {
		require.NoError(t, m.Log(ctx, testEvent(i, "a", true)))
	}

	got, err := m.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"article 4", "article 3", "article 2"},
		[]string{got[0].Title, got[1].Title, got[2].Title})
}

func TestMemoryLogger_Filter(t *testing.T) {
	m := NewMemoryLogger(0)
	ctx := context.Background()
	for i := range 6 {
		user := "a"
		if i%2 == 1 {
			user = "b"
		}
		require.NoError(t, m.Log(ctx, testEvent(i, user, i < 4)))
	}

	failed := false
	got, err := m.Query(ctx, QueryFilter{Success: &failed})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = m.Query(ctx, QueryFilter{Username: "b", Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "article 5", got[0].Title)

	got, err = m.Query(ctx, QueryFilter{Username: "a", Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "article 2", got[0].Title)

	start := time.Date(2026, 4, 1, 0, 3, 0, 0, time.UTC)
	got, err = m.Query(ctx, QueryFilter{StartTime: &start})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	assert.NoError(t, m.Close())
}

func TestMemoryLogger_EmptyQuery(t *testing.T) {
	got, err := NewMemoryLogger(4).Query(context.Background(), QueryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
