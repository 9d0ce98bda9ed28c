package web

import (
	"errors"
	"sync"
	"time"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/insight"
	"github.com/KaramelBytes/odap/internal/pipeline"
	"github.com/google/uuid"
)

// EventKind names a user interaction that changes session state.
type EventKind string

const (
	EventUpload EventKind = "upload"
	EventFilter EventKind = "filter"
	EventAsk    EventKind = "ask"
	EventAnswer EventKind = "answer"
	EventReset  EventKind = "reset"
)

// Event is one interaction. Only the fields for its Kind are read.
type Event struct {
	Kind EventKind

	// upload
	FileName string
	Key      string
	Data     *dataset.Dataset
	Err      error

	// filter
	Sentiment string

	// ask / answer
	Question string
	Exchange *insight.Exchange
	Gen      int
}

// AskState tracks the insight panel.
type AskState string

const (
	AskIdle       AskState = "idle"
	AskRequesting AskState = "requesting"
	AskDisplayed  AskState = "displayed"
	AskFallback   AskState = "displayed-fallback"
)

var (
	errAskInFlight = errors.New("an insight request is already running for this session")
	errNoDataset   = errors.New("no dataset loaded")
	errBadEvent    = errors.New("unknown event")
	errAskAborted  = errors.New("insight request aborted")
)

// State is a point-in-time copy of a session. Data is shared and must be
// treated as read-only.
type State struct {
	// Gen increments whenever the dataset changes or the session is reset.
	Gen        int
	FileName   string
	DatasetKey string
	Data       *dataset.Dataset
	LoadErr    string
	Selection  pipeline.Selection
	Question   string
	Exchange   *insight.Exchange
	Ask        AskState
}

// Session is one browser's dashboard state.
type Session struct {
	ID string

	mu    sync.Mutex
	state State
	seen  time.Time
}

func newSession(now time.Time) *Session {
	return &Session{ID: uuid.NewString(), state: State{Ask: AskIdle}, seen: now}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply folds ev into the session and returns the resulting state.
func (s *Session) Apply(ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &s.state
	switch ev.Kind {
	case EventUpload:
		gen := st.Gen + 1
		*st = State{Gen: gen, FileName: ev.FileName, Ask: AskIdle}
		if ev.Err != nil {
			st.LoadErr = dataset.UserMessage(ev.Err)
		} else {
			st.Data, st.DatasetKey = ev.Data, ev.Key
		}
	case EventFilter:
		st.Selection = pipeline.Selection{Sentiment: ev.Sentiment}
	case EventAsk:
		if st.Data == nil {
			return *st, errNoDataset
		}
		if st.Ask == AskRequesting {
			return *st, errAskInFlight
		}
		st.Question, st.Exchange, st.Ask = ev.Question, nil, AskRequesting
	case EventAnswer:
		// A reply for a dataset that has since been replaced is dropped.
		if ev.Gen != st.Gen || st.Ask != AskRequesting || ev.Exchange == nil {
			return *st, nil
		}
		st.Exchange = ev.Exchange
		st.Ask = AskDisplayed
		if ev.Exchange.Failed() {
			st.Ask = AskFallback
		}
	case EventReset:
		*st = State{Gen: st.Gen + 1, Ask: AskIdle}
	default:
		return *st, errBadEvent
	}
	return *st, nil
}

type sessionStore struct {
	mu  sync.RWMutex
	m   map[string]*Session
	ttl time.Duration
	now func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{m: make(map[string]*Session), ttl: ttl, now: time.Now}
}

func (st *sessionStore) get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.m[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := st.now()
	s.mu.Lock()
	expired := st.ttl > 0 && now.Sub(s.seen) > st.ttl
	if !expired {
		s.seen = now
	}
	s.mu.Unlock()
	if expired {
		st.mu.Lock()
		delete(st.m, id)
		st.mu.Unlock()
		return nil, false
	}
	return s, true
}

func (st *sessionStore) create() *Session {
	now := st.now()
	s := newSession(now)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(now)
	st.m[s.ID] = s
	return s
}

func (st *sessionStore) sweepLocked(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for id, s := range st.m {
		s.mu.Lock()
		idle := now.Sub(s.seen)
		s.mu.Unlock()
		if idle > st.ttl {
			delete(st.m, id)
		}
	}
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.m)
}
