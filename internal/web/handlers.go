package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/insight"
	"github.com/KaramelBytes/odap/internal/pipeline"
	"go.uber.org/zap"
)

const multipartMemory = 32 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.session(w, r).State()
	s.renderTemplate(w, "index.html", view(r.Context(), st, s.opt.Render))
}

// seeOther finishes a POST by sending the browser back to the page.
func seeOther(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if r.ContentLength > s.opt.MaxUploadBytes {
		s.metrics.uploads.WithLabelValues("too_large").Inc()
		http.Error(w, "file exceeds the upload limit", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.metrics.uploads.WithLabelValues("too_large").Inc()
			http.Error(w, "file exceeds the upload limit", http.StatusRequestEntityTooLarge)
			return
		}
		s.metrics.uploads.WithLabelValues("rejected").Inc()
		http.Error(w, "invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.uploads.WithLabelValues("rejected").Inc()
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()
	if !isCSVUpload(header.Filename, header.Header.Get("Content-Type")) {
		s.metrics.uploads.WithLabelValues("rejected").Inc()
		http.Error(w, "only CSV files are accepted", http.StatusUnsupportedMediaType)
		return
	}
	b, err := io.ReadAll(file)
	if err != nil {
		s.metrics.uploads.WithLabelValues("rejected").Inc()
		http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := filepath.Base(header.Filename)
	d, key, loadErr := s.cache.Load(b, name)
	result := "ok"
	switch {
	case errors.Is(loadErr, dataset.ErrMalformed):
		result = "malformed"
	case loadErr != nil:
		result = "error"
	}
	s.metrics.uploads.WithLabelValues(result).Inc()
	if loadErr != nil {
		s.log.Info("dataset rejected", zap.String("session", sess.ID), zap.String("file", name), zap.Error(loadErr))
	} else {
		s.log.Info("dataset loaded", zap.String("session", sess.ID), zap.String("file", name),
			zap.String("key", key), zap.Int("rows", d.Rows()), zap.Int("skipped", d.Skipped))
	}
	_, _ = sess.Apply(Event{Kind: EventUpload, FileName: name, Key: key, Data: d, Err: loadErr})
	seeOther(w, r)
}

func isCSVUpload(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/csv"
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	_, _ = sess.Apply(Event{Kind: EventFilter, Sentiment: r.FormValue("sentiment")})
	seeOther(w, r)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	q := strings.TrimSpace(r.FormValue("question"))
	if q == "" {
		seeOther(w, r)
		return
	}
	st, err := sess.Apply(Event{Kind: EventAsk, Question: q})
	switch {
	case errors.Is(err, errAskInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, errNoDataset):
		http.Error(w, MsgNoUpload, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.answer(r.Context(), sess, st, q)
	seeOther(w, r)
}

// answer runs the insight request for an accepted ask. The answer event is
// applied even if the request panics, so the session never stays in
// AskRequesting.
func (s *Server) answer(ctx context.Context, sess *Session, st State, q string) {
	ex := insight.Exchange{Question: q, Answer: insight.FallbackAnswer, Err: errAskAborted}
	defer func() {
		_, _ = sess.Apply(Event{Kind: EventAnswer, Gen: st.Gen, Exchange: &ex})
	}()

	ex = s.insight.Ask(ctx, q, st.Data)
	result := "ok"
	if ex.Failed() {
		result = "fallback"
	}
	s.metrics.insightRequests.WithLabelValues(result).Inc()
	s.metrics.insightDuration.Observe(ex.Duration.Seconds())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	_, _ = sess.Apply(Event{Kind: EventReset})
	seeOther(w, r)
}

type apiInsight struct {
	Question  string  `json:"question"`
	Answer    string  `json:"answer"`
	Error     string  `json:"error,omitempty"`
	Model     string  `json:"model"`
	RequestID string  `json:"request_id,omitempty"`
	Seconds   float64 `json:"seconds"`
	CostUSD   float64 `json:"cost_usd,omitempty"`
}

type apiPage struct {
	Session  string         `json:"session"`
	File     string         `json:"file,omitempty"`
	Error    string         `json:"error,omitempty"`
	Message  string         `json:"message,omitempty"`
	Filter   string         `json:"filter,omitempty"`
	AskState AskState       `json:"ask_state"`
	Page     *pipeline.Page `json:"page,omitempty"`
	Insight  *apiInsight    `json:"insight,omitempty"`
}

// handleAPIPage returns the render description as JSON. Charts are omitted.
func (s *Server) handleAPIPage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	st := sess.State()
	out := apiPage{Session: sess.ID, File: st.FileName, Error: st.LoadErr, Filter: st.Selection.Sentiment, AskState: st.Ask}
	if st.Data != nil {
		out.Page = pipeline.Render(r.Context(), st.Data, st.Selection, s.opt.Render)
	} else if st.LoadErr == "" {
		out.Message = MsgNoUpload
	}
	if ex := st.Exchange; ex != nil {
		out.Insight = &apiInsight{
			Question:  ex.Question,
			Answer:    ex.Answer,
			Error:     ex.ErrorMessage(),
			Model:     ex.Model,
			RequestID: ex.RequestID,
			Seconds:   ex.Duration.Round(time.Millisecond).Seconds(),
			CostUSD:   ex.CostUSD,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Warn("encode page", zap.Error(err))
	}
}
