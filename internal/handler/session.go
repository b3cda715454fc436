package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/practice"
)

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) handleTags(w http.ResponseWriter, r *http.Request) {
	tags := h.engine.TagBreakdown()
	if tags == nil {
		tags = []model.TagStat{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	flash := ""
	if !h.engine.Start() {
		flash = "NoQuestions"
	}
	respond(w, r, http.StatusOK, h.engine.Snapshot(), flash)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	flash := ""
	if !h.engine.Reset() {
		flash = "NoQuestions"
	}
	respond(w, r, http.StatusOK, h.engine.Snapshot(), flash)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	h.engine.End()
	respond(w, r, http.StatusOK, h.engine.Snapshot(), "")
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.engine.Pause()
	respond(w, r, http.StatusOK, h.engine.Snapshot(), "")
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	h.engine.Resume()
	respond(w, r, http.StatusOK, h.engine.Snapshot(), "")
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	h.engine.EnterReviewMode()
	respond(w, r, http.StatusOK, h.engine.Snapshot(), "")
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	h.engine.Next()
	respond(w, r, http.StatusOK, h.engine.Snapshot(), "")
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	h.engine.Previous()
	respond(w, r, http.StatusOK, h.engine.Snapshot(), "")
}

func (h *Handler) handleJump(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	h.engine.Jump(i)
	respond(w, r, http.StatusOK, h.engine.Snapshot(), "")
}

type answerRequest struct {
	Option string `json:"option"`
}

type answerResponse struct {
	Outcome practice.AnswerOutcome `json:"outcome"`
	State   practice.State         `json:"state"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("option")
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		raw = req.Option
	}
	opt, ok := model.ParseOption(raw)
	if !ok {
		http.Error(w, "option must be one of A, B, C, D", http.StatusBadRequest)
		return
	}

	out := h.engine.Answer(opt)
	flash := ""
	if out.Milestone > 0 {
		flash = "Milestone" + strconv.Itoa(out.Milestone)
	}
	respond(w, r, http.StatusOK, answerResponse{Outcome: out, State: h.engine.Snapshot()}, flash)
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	if h.explainer == nil {
		writeError(w, http.StatusNotFound, "explanations are not configured")
		return
	}
	st := h.engine.Snapshot()
	if st.Session == nil {
		writeError(w, http.StatusConflict, "no active session")
		return
	}
	i := st.Session.CurrentIndex
	if s := r.URL.Query().Get("index"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n >= len(st.Session.Questions) {
			http.Error(w, "invalid index", http.StatusBadRequest)
			return
		}
		i = n
	}
	ex, err := h.explainer.Explain(r.Context(), st.Session.Questions[i], st.Session.Answers[i].SelectedOption)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ex)
}
