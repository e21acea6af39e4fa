package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lucasnoah/hirepipe/internal/board"
	"github.com/lucasnoah/hirepipe/internal/bulk"
	"github.com/lucasnoah/hirepipe/internal/collab"
	"github.com/lucasnoah/hirepipe/internal/dragdrop"
	"github.com/lucasnoah/hirepipe/internal/optimistic"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
	"github.com/lucasnoah/hirepipe/internal/reports"
)

// ---- request and response shapes ----

type filterRequest struct {
	Query     string   `json:"query" validate:"max=200"`
	Statuses  []string `json:"statuses" validate:"omitempty,dive,required"`
	MinRating int      `json:"min_rating" validate:"gte=0,lte=5"`
}

type boardResponse struct {
	Columns            []board.StageColumn `json:"columns"`
	Selected           []int               `json:"selected"`
	Visible            []int               `json:"visible"`
	AllVisibleSelected bool                `json:"all_visible_selected"`
}

type selectionResponse struct {
	Selected []int `json:"selected"`
	Count    int   `json:"count"`
}

type toggleRequest struct {
	ApplicationID int `json:"application_id" validate:"required,gt=0"`
}

type moveRequest struct {
	StageID *int   `json:"stage_id" validate:"required,gte=0"`
	Notes   string `json:"notes" validate:"max=2000"`
}

type bulkRequest struct {
	Kind           string `json:"kind" validate:"required,oneof=move_stage send_email send_form archive"`
	ApplicationIDs []int  `json:"application_ids" validate:"omitempty,dive,gt=0"`
	StageID        int    `json:"stage_id" validate:"required_if=Kind move_stage,gte=0"`
	Notes          string `json:"notes" validate:"max=2000"`
	TemplateID     int    `json:"template_id" validate:"required_if=Kind send_email,gte=0"`
	FormID         int    `json:"form_id" validate:"required_if=Kind send_form,gte=0"`
	CustomMessage  string `json:"custom_message" validate:"max=2000"`
}

type bulkResponse struct {
	bulk.Result
	Summary  string `json:"summary"`
	RetryIDs []int  `json:"retry_ids,omitempty"`
}

type dragRequest struct {
	Type          string `json:"type" validate:"required,oneof=start drop cancel key"`
	ApplicationID int    `json:"application_id" validate:"gte=0"`
	Target        string `json:"target" validate:"omitempty,oneof=none column card"`
	StageID       int    `json:"stage_id" validate:"gte=0"`
	CardID        int    `json:"card_id" validate:"gte=0"`
	Key           string `json:"key" validate:"required_if=Type key"`
}

type dragResponse struct {
	dragdrop.Resolution
	Error string `json:"error,omitempty"`
}

type interviewRequest struct {
	ApplicationIDs []int     `json:"application_ids" validate:"omitempty,dive,gt=0"`
	StartTime      time.Time `json:"start_time" validate:"required"`
	IntervalHours  float64   `json:"interval_hours" validate:"gte=0,lte=24"`
	Location       string    `json:"location" validate:"required,max=500"`
	Notes          string    `json:"notes" validate:"max=2000"`
	StageID        *int      `json:"stage_id" validate:"omitempty,gt=0"`
}

type interviewResponse struct {
	collab.InterviewBatchResult
	Slots []pipeline.InterviewSlot `json:"slots"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Named("web").Debugw("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		resp := errorResponse{Error: "invalid request"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Fields = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				resp.Fields[fe.Field()] = fe.Tag()
			}
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return false
	}
	return true
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	var rb *optimistic.RollbackError
	switch {
	case errors.As(err, &rb):
		return http.StatusBadGateway
	case errors.Is(err, optimistic.ErrNotFound), errors.Is(err, collab.ErrNotFound), errors.Is(err, reports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrUnknownStage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, optimistic.ErrMutationInFlight),
		errors.Is(err, dragdrop.ErrAlreadyDragging),
		errors.Is(err, dragdrop.ErrNotDragging):
		return http.StatusConflict
	case errors.Is(err, bulk.ErrEmptyTargets), errors.Is(err, bulk.ErrInvalidCommand), errors.Is(err, dragdrop.ErrNoFocus):
		return http.StatusBadRequest
	case errors.Is(err, collab.ErrUnauthorized):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, chi.URLParam(r, name))
	}
	return id, nil
}

// filterFromQuery reads ?q=, ?status=a,b and ?min_rating= into a Filter.
func filterFromQuery(r *http.Request) (pipeline.Filter, error) {
	q := r.URL.Query()
	f := pipeline.Filter{Query: q.Get("q")}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := pipeline.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				return f, err
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if raw := q.Get("min_rating"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid min_rating %q", raw)
		}
		f.MinRating = n
	}
	return f, nil
}

func (fr filterRequest) filter() (pipeline.Filter, error) {
	f := pipeline.Filter{Query: fr.Query, MinRating: fr.MinRating}
	for _, raw := range fr.Statuses {
		st, err := pipeline.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, st)
	}
	return f, nil
}

func (s *Server) selection() selectionResponse {
	ids := s.board.Selection().IDs()
	return selectionResponse{Selected: ids, Count: len(ids)}
}

// ---- handlers ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.board.Refresh(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
	}
	visible := s.board.VisibleIDs(f)
	writeJSON(w, http.StatusOK, boardResponse{
		Columns:            s.board.StageColumns(f),
		Selected:           s.board.Selection().IDs(),
		Visible:            visible,
		AllVisibleSelected: s.board.Selection().AllVisibleSelected(visible),
	})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.selection())
}

func (s *Server) handleSelectionToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, ok := s.board.Application(req.ApplicationID); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("application %d: %w", req.ApplicationID, optimistic.ErrNotFound))
		return
	}
	s.board.Selection().Toggle(req.ApplicationID)
	writeJSON(w, http.StatusOK, s.selection())
}

// handleSelectAll toggles every candidate matching the posted filter.
func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := req.filter()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.board.Selection().ToggleAllVisible(s.board.VisibleIDs(f))
	writeJSON(w, http.StatusOK, s.selection())
}

func (s *Server) handleSelectionClear(w http.ResponseWriter, r *http.Request) {
	s.board.Selection().Clear()
	writeJSON(w, http.StatusOK, s.selection())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hist, err := s.board.History(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if hist == nil {
		hist = []pipeline.StageTransition{}
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.board.QuickMove(r.Context(), id, *req.StageID, req.Notes)
	if err != nil {
		// A rollback still returns the restored candidate.
		writeJSON(w, statusFor(err), struct {
			errorResponse
			Application *pipeline.Application `json:"application,omitempty"`
		}{errorResponse{Error: err.Error()}, appOrNil(res.Application)})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func appOrNil(a pipeline.Application) *pipeline.Application {
	if a.ID == 0 {
		return nil
	}
	return &a
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !s.decode(w, r, &req) {
		return
	}
	payload := bulk.Payload{
		StageID:       req.StageID,
		Notes:         req.Notes,
		TemplateID:    req.TemplateID,
		FormID:        req.FormID,
		CustomMessage: req.CustomMessage,
	}
	ids := req.ApplicationIDs
	if len(ids) == 0 {
		ids = s.board.Selection().IDs()
	}
	cmd, err := bulk.NewCommand(bulk.Kind(req.Kind), ids, payload)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res := s.board.RunBulkCommand(r.Context(), cmd, nil)
	writeJSON(w, http.StatusOK, bulkResponse{Result: res, Summary: res.Summary(), RetryIDs: res.RetryIDs()})
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.board.ResolveDrag(r.Context(), board.DragEvent{
		Type:          board.DragEventType(req.Type),
		ApplicationID: req.ApplicationID,
		Target:        dragdrop.TargetKind(req.Target),
		StageID:       req.StageID,
		CardID:        req.CardID,
		Key:           req.Key,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := dragResponse{Resolution: res}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInterviews(w http.ResponseWriter, r *http.Request) {
	var req interviewRequest
	if !s.decode(w, r, &req) {
		return
	}
	ids := req.ApplicationIDs
	if len(ids) == 0 {
		ids = s.board.Selection().IDs()
	}
	plan, err := bulk.NewInterviewPlan(ids, req.StartTime, req.IntervalHours, req.Location, req.Notes, req.StageID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res, err := s.board.ScheduleInterviews(r.Context(), plan)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, interviewResponse{InterviewBatchResult: *res, Slots: plan.Slots()})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeJSON(w, http.StatusOK, []reports.Report{})
		return
	}
	var kind bulk.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, err := bulk.ParseKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		kind = k
	}
	list, err := s.reports.List(kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []reports.Report{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	// Reject anything that could escape the reports directory.
	if strings.ContainsAny(runID, `/\`) || strings.HasPrefix(runID, ".") {
		http.NotFound(w, r)
		return
	}
	if s.reports == nil {
		http.NotFound(w, r)
		return
	}
	rep, err := s.reports.Get(runID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
