package web

import (
	"errors"
	"testing"
	"time"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/insight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(t *testing.T) *dataset.Dataset {
	t.Helper()
	d, err := dataset.LoadBytes([]byte("title,sentiment\nup,pos\ndown,neg\n"), dataset.DefaultOptions())
	require.NoError(t, err)
	return d
}

func TestSessionAskLifecycle(t *testing.T) {
	s := newSession(time.Now())
	_, err := s.Apply(Event{Kind: EventAsk, Question: "q"})
	assert.ErrorIs(t, err, errNoDataset)

	st, err := s.Apply(Event{Kind: EventUpload, FileName: "a.csv", Key: "k1", Data: loaded(t)})
	require.NoError(t, err)
	assert.Equal(t, AskIdle, st.Ask)

	st, err = s.Apply(Event{Kind: EventAsk, Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, AskRequesting, st.Ask)
	_, err = s.Apply(Event{Kind: EventAsk, Question: "again"})
	assert.ErrorIs(t, err, errAskInFlight)

	ok := insight.Exchange{Question: "q", Answer: "fine"}
	st, _ = s.Apply(Event{Kind: EventAnswer, Gen: st.Gen, Exchange: &ok})
	assert.Equal(t, AskDisplayed, st.Ask)

	st, _ = s.Apply(Event{Kind: EventAsk, Question: "q2"})
	bad := insight.Exchange{Question: "q2", Answer: insight.FallbackAnswer, Err: errors.New("down")}
	st, _ = s.Apply(Event{Kind: EventAnswer, Gen: st.Gen, Exchange: &bad})
	assert.Equal(t, AskFallback, st.Ask)
}

func TestSessionDropsStaleAnswer(t *testing.T) {
	s := newSession(time.Now())
	s.Apply(Event{Kind: EventUpload, Data: loaded(t)})
	asked, _ := s.Apply(Event{Kind: EventAsk, Question: "q"})
	s.Apply(Event{Kind: EventUpload, Data: loaded(t), FileName: "b.csv"})

	ex := insight.Exchange{Answer: "late"}
	st, err := s.Apply(Event{Kind: EventAnswer, Gen: asked.Gen, Exchange: &ex})
	require.NoError(t, err)
	assert.Nil(t, st.Exchange)
	assert.Equal(t, AskIdle, st.Ask)
	assert.Equal(t, "b.csv", st.FileName)
}

func TestSessionUploadErrorAndFilter(t *testing.T) {
	s := newSession(time.Now())
	st, _ := s.Apply(Event{Kind: EventUpload, FileName: "x.csv", Err: dataset.ErrMalformed})
	assert.Nil(t, st.Data)
	assert.Equal(t, "Error loading dataset: The file contains invalid or inconsistent rows.", st.LoadErr)

	st, _ = s.Apply(Event{Kind: EventFilter, Sentiment: "neg"})
	assert.Equal(t, "neg", st.Selection.Sentiment)
	st, _ = s.Apply(Event{Kind: EventReset})
	assert.Empty(t, st.Selection.Sentiment)
	assert.Empty(t, st.LoadErr)

	_, err := s.Apply(Event{Kind: "bogus"})
	assert.ErrorIs(t, err, errBadEvent)
}

func TestSessionStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newSessionStore(time.Hour)
	store.now = func() time.Time { return now }

	a := store.create()
	got, ok := store.get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	now = now.Add(2 * time.Hour)
	_, ok = store.get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.len())

	b := store.create()
	now = now.Add(90 * time.Minute)
	store.create()
	assert.Equal(t, 1, store.len(), "idle sessions are swept on create")
	_, ok = store.get(b.ID)
	assert.False(t, ok)
}
