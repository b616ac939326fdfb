package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternity-chat/internal/models"
)

func collect(s *Stream) []Message {
	var out []Message
	for m := range s.All() {
		out = append(out, m)
	}
	return out
}

func TestAppendPreservesOrder(t *testing.T) {
	s := New()
	s.SeedHistory(nil)
	for _, body := range []string{"m1", "m2", "m3"} {
		s.Append(Message{Body: body, Origin: OriginLive})
	}

	got := collect(s)
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].Body)
	assert.Equal(t, "m2", got[1].Body)
	assert.Equal(t, "m3", got[2].Body)
}

func TestHistoryPrecedesLive(t *testing.T) {
	s := New()
	s.SeedHistory([]models.RawMessage{
		{Sender: "doctor", Message: "h1", CreatedAt: time.Now()},
		{Sender: "mother", Message: "h2", CreatedAt: time.Now()},
	})
	s.Append(Message{Body: "l1", Origin: OriginLive})

	got := collect(s)
	require.Len(t, got, 3)
	assert.Equal(t, "h1", got[0].Body)
	assert.Equal(t, OriginHistory, got[0].Origin)
	assert.Equal(t, "h2", got[1].Body)
	assert.Equal(t, "l1", got[2].Body)
	assert.Equal(t, OriginLive, got[2].Origin)
}

func TestSeedHistoryClearsExistingContent(t *testing.T) {
	s := New()
	s.Append(Message{Body: "raced ahead", Origin: OriginLive})
	s.SeedHistory([]models.RawMessage{{Sender: "doctor", Message: "h1"}})

	got := collect(s)
	require.Len(t, got, 1)
	assert.Equal(t, "h1", got[0].Body)
}

func TestFromRawNamePrefersMotherName(t *testing.T) {
	m := FromRaw(models.RawMessage{MotherName: "Amina", Sender: "mother", Message: "hi"}, OriginHistory)
	assert.Equal(t, "Amina", m.SenderName)

	m = FromRaw(models.RawMessage{Sender: "doctor", Message: "hi"}, OriginHistory)
	assert.Equal(t, "doctor", m.SenderName)
}

func TestFromRawDefaultsMissingFields(t *testing.T) {
	before := time.Now()
	m := FromRaw(models.RawMessage{Sender: "mother"}, OriginLive)

	assert.Equal(t, "", m.Body)
	assert.False(t, m.SentAt.Before(before))
}

func TestPatchUpdatesMatchingInPlace(t *testing.T) {
	s := New()
	s.Append(Message{ID: "1", Body: "a", Origin: OriginLive})
	s.Append(Message{ID: "2", Body: "b", Origin: OriginLive})

	s.Patch(
		func(m Message) bool { return m.ID == "2" },
		func(m *Message) { m.Body = "b (edited)" },
	)

	got := collect(s)
	assert.Equal(t, "a", got[0].Body)
	assert.Equal(t, "b (edited)", got[1].Body)
}

func TestAllIsRestartable(t *testing.T) {
	s := New()
	s.Append(Message{Body: "only", Origin: OriginLive})

	first := collect(s)
	second := collect(s)
	assert.Equal(t, first, second)

	// Early break must not poison later iterations.
	for range s.All() {
		break
	}
	assert.Len(t, collect(s), 1)
}
