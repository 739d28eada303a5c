package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/engine"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/pattern"
	"github.com/Veraticus/rd-classifier/internal/xlsx"
)

// SaveConfigRequest is the body of POST /configs.
type SaveConfigRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// ProfilesResponse is the body of GET /profiles.
type ProfilesResponse struct {
	ActiveProfileID string          `json:"activeProfileId"`
	Profiles        []model.Profile `json:"profiles"`
}

// ClassifyResponse is the body of POST /classify.
type ClassifyResponse struct {
	Summary   model.SummaryData `json:"summary"`
	Mode      model.Mode        `json:"mode"`
	Source    string            `json:"source"`
	ProfileID string            `json:"profileId"`
	Rows      []model.Row       `json:"rows"`
}

// ExplainRequest is the body of POST /explain.
type ExplainRequest struct {
	Row     map[string]any `json:"row"`
	Mode    string         `json:"mode"`
	Profile string         `json:"profile,omitempty"`
}

// RuleMatch is one rule that assigned a value to the explained row.
type RuleMatch struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	TargetField model.TargetField `json:"targetField"`
	Value       string            `json:"value"`
	Priority    float64           `json:"priority"`
	OnlyIfEmpty bool              `json:"onlyIfEmpty,omitempty"`
}

// ExplainResponse is the body of POST /explain.
type ExplainResponse struct {
	Group           string      `json:"group"`
	GroupConcession string      `json:"groupConcession"`
	Matches         []RuleMatch `json:"matches"`
	// Shadowed holds rules whose conditions hold for the classified row but
	// that assigned nothing, either because an earlier Group rule stopped
	// the walk or because onlyIfEmpty found the field set.
	Shadowed []RuleMatch `json:"shadowed"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps err onto a status code and a message safe to show.
func respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrShapeMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrUnreadableSource),
		errors.Is(err, common.ErrInvalidConfig),
		errors.Is(err, common.ErrProfileProtected):
		status = http.StatusBadRequest
	}

	message := http.StatusText(status)
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		message = userErr.UserMessage
	} else if status != http.StatusInternalServerError {
		message = err.Error()
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	respondError(w, status, message)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.GetConfigs(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req SaveConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Key == "" {
		respondError(w, http.StatusBadRequest, "Key is required")
		return
	}
	if len(req.Value) == 0 {
		req.Value = json.RawMessage("null")
	}

	if err := s.store.SaveConfig(r.Context(), req.Key, req.Value); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	state, err := s.profiles.Load(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ProfilesResponse{
		ActiveProfileID: state.Active().ID,
		Profiles:        state.Profiles,
	})
}

func (s *Server) mode(raw string) (model.Mode, error) {
	if raw == "" {
		return s.opts.DefaultMode, nil
	}
	mode, err := model.ParseMode(raw)
	if err != nil {
		return "", common.NewUserError(err.Error(), common.ErrInvalidConfig)
	}
	return mode, nil
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	mode, err := s.mode(r.URL.Query().Get("mode"))
	if err != nil {
		respondErr(w, err)
		return
	}
	prof, err := s.profiles.Resolve(r.Context(), r.URL.Query().Get("profile"))
	if err != nil {
		respondErr(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	schema, err := model.SchemaFor(mode)
	if err != nil {
		respondErr(w, err)
		return
	}
	source := xlsx.NewStreamReader(filepath.Base(header.Filename), file, schema.HeaderRows)

	result, err := s.engine.Run(r.Context(), source, mode, prof.Rules(mode))
	if err != nil {
		respondErr(w, err)
		return
	}

	rows := result.Rows
	if rows == nil {
		rows = []model.Row{}
	}
	respondJSON(w, http.StatusOK, ClassifyResponse{
		Summary:   result.Summary,
		Mode:      result.Mode,
		Source:    result.Source,
		ProfileID: prof.ID,
		Rows:      rows,
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode, err := s.mode(req.Mode)
	if err != nil {
		respondErr(w, err)
		return
	}
	prof, err := s.profiles.Resolve(r.Context(), req.Profile)
	if err != nil {
		respondErr(w, err)
		return
	}

	resp, err := Explain(req.Row, mode, prof)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Explain classifies values with prof's rules for mode and lists the rules
// that assigned a value, in firing order.
func Explain(values map[string]any, mode model.Mode, prof model.Profile) (ExplainResponse, error) {
	schema, err := model.SchemaFor(mode)
	if err != nil {
		return ExplainResponse{}, err
	}

	cells := make(map[string]model.Cell, len(schema.Columns))
	for _, col := range schema.Columns {
		cells[col] = model.CellFromAny(values[col])
	}
	row := model.NewRow(cells, schema.Sentinels)

	fired, shadowed := explainRow(&row, pattern.NewMatcher(prof.Rules(mode)))

	return ExplainResponse{
		Group:           schema.Render(row, string(model.FieldGroup)).String(),
		GroupConcession: schema.Render(row, string(model.FieldGroupConcession)).String(),
		Matches:         fired,
		Shadowed:        shadowed,
	}, nil
}

// explainRow classifies row with m's rules and splits the rules that match
// the classified row into those that fired and those that did not.
func explainRow(row *model.Row, m pattern.Matcher) (fired, shadowed []RuleMatch) {
	ordered := m.Rules()
	didFire := subsequence(ordered, engine.TraceRow(row, ordered))
	matched := subsequence(ordered, m.Match(*row))

	fired = make([]RuleMatch, 0)
	shadowed = make([]RuleMatch, 0)
	for i, rule := range ordered {
		switch {
		case didFire[i]:
			fired = append(fired, ruleMatch(rule))
		case matched[i]:
			shadowed = append(shadowed, ruleMatch(rule))
		}
	}
	return fired, shadowed
}

// subsequence marks the positions in all taken by sub, which must keep the
// order of all.
func subsequence(all, sub []model.Rule) map[int]bool {
	at := make(map[int]bool, len(sub))
	j := 0
	for i := range all {
		if j < len(sub) && sameRule(all[i], sub[j]) {
			at[i] = true
			j++
		}
	}
	return at
}

func sameRule(a, b model.Rule) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Priority == b.Priority &&
		a.Target() == b.Target() && a.ResultValue == b.ResultValue &&
		len(a.Conditions) == len(b.Conditions)
}

func ruleMatch(rule model.Rule) RuleMatch {
	return RuleMatch{
		ID:          rule.ID,
		Name:        rule.Name,
		TargetField: rule.Target(),
		Value:       rule.AssignedValue(),
		Priority:    rule.Priority,
		OnlyIfEmpty: rule.OnlyIfEmpty,
	}
}
