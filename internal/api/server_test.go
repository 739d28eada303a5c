package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/rd-classifier/internal/certs"
	"github.com/Veraticus/rd-classifier/internal/classification"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/profile"
	"github.com/Veraticus/rd-classifier/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	s := NewServer(db.Storage, DefaultOptions())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// rd03 returns a full-width RD03 sheet record.
func rd03(pea, concession, lineType string) testutil.Record {
	rec := make(testutil.Record, 20)
	copy(rec, testutil.Record{pea, "route", "tag", "owner", concession, lineType, 10, 12})
	rec[19] = "tester"
	return rec
}

func upload(t *testing.T, url string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "north.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := setupServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestConfigs(t *testing.T) {
	_, ts := setupServer(t)
	url := ts.URL + BasePath + "/configs"

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "missing key", body: `{"value": 1}`, status: http.StatusBadRequest},
		{name: "empty key", body: `{"key": "", "value": 1}`, status: http.StatusBadRequest},
		{name: "invalid json", body: `{`, status: http.StatusBadRequest},
		{name: "saved", body: `{"key": "theme", "value": {"dark": true}}`, status: http.StatusOK},
		{name: "value omitted stores null", body: `{"key": "empty"}`, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(url, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp, err := http.Get(url)
	require.NoError(t, err)
	configs := decode[map[string]json.RawMessage](t, resp)
	assert.JSONEq(t, `{"dark": true}`, string(configs["theme"]))
	assert.JSONEq(t, `null`, string(configs["empty"]))
}

func TestProfiles_DefaultWhenEmpty(t *testing.T) {
	_, ts := setupServer(t)

	resp, err := http.Get(ts.URL + BasePath + "/profiles")
	require.NoError(t, err)
	got := decode[ProfilesResponse](t, resp)
	assert.Equal(t, model.DefaultProfileID, got.ActiveProfileID)
	require.Len(t, got.Profiles, 1)
	assert.Equal(t, profile.DefaultProfileName, got.Profiles[0].Name)
}

// classifyBody mirrors ClassifyResponse with rows decoded as plain objects.
type classifyBody struct {
	Summary   model.SummaryData `json:"summary"`
	Mode      model.Mode        `json:"mode"`
	Source    string            `json:"source"`
	ProfileID string            `json:"profileId"`
	Rows      []map[string]any  `json:"rows"`
}

func TestClassify(t *testing.T) {
	_, ts := setupServer(t)
	data := testutil.NewWorkbook(t).
		WithRecords(
			rd03("PEA-1", "-", classification.LineFiberFig8),
			rd03("PEA-2", "somebody", "Aerial"),
			rd03("", "-", classification.LineFiberFig8),
		).
		Bytes()

	resp := upload(t, ts.URL+BasePath+"/classify?mode=RD03", data)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[classifyBody](t, resp)

	assert.Equal(t, model.ModeRD03, got.Mode)
	assert.Equal(t, "north.xlsx", got.Source)
	assert.Equal(t, model.DefaultProfileID, got.ProfileID)
	assert.Equal(t, 2, got.Summary.TotalRows)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "4.1.1", got.Rows[0]["Group"])
	assert.Equal(t, classification.ConcessionNT, got.Rows[0]["GroupConcession"])
	assert.Equal(t, model.NotFound, got.Rows[1]["Group"])
	assert.Equal(t, model.NotFound, got.Rows[1]["GroupConcession"])
}

func TestClassify_Errors(t *testing.T) {
	_, ts := setupServer(t)
	valid := testutil.NewWorkbook(t).WithRecords(rd03("PEA-1", "-", "Aerial")).Bytes()

	tests := []struct {
		name   string
		query  string
		data   []byte
		status int
	}{
		{name: "unknown mode", query: "?mode=RD07", data: valid, status: http.StatusBadRequest},
		{name: "unknown profile", query: "?profile=nope", data: valid, status: http.StatusNotFound},
		{name: "not a workbook", query: "?mode=RD03", data: []byte("plain text"), status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, ts.URL+BasePath+"/classify"+tt.query, tt.data)
			body := decode[map[string]string](t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}

	resp, err := http.Post(ts.URL+BasePath+"/classify", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExplain(t *testing.T) {
	_, ts := setupServer(t)

	body := `{"mode": "RD03", "row": {"PEA": "PEA-1", "Concession": "-", "Line_Type": "` + classification.LineFiberFig8 + `"}}`
	resp, err := http.Post(ts.URL+BasePath+"/explain", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[ExplainResponse](t, resp)
	assert.Equal(t, "4.1.1", got.Group)
	assert.Equal(t, classification.ConcessionNT, got.GroupConcession)
	require.Len(t, got.Matches, 2)
	assert.Equal(t, "map-nt", got.Matches[0].ID)
	assert.Equal(t, model.FieldGroupConcession, got.Matches[0].TargetField)
	assert.Equal(t, "4.1.1", got.Matches[1].ID)
}

func TestExplain_RD05Fallback(t *testing.T) {
	got, err := Explain(map[string]any{"PEA": "x", "Concession": "nobody"}, model.ModeRD05, profile.DefaultProfile())
	require.NoError(t, err)
	assert.Equal(t, "3.0", got.Group)
	assert.Equal(t, model.NotFound, got.GroupConcession)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "3.0", got.Matches[0].ID)
}

func TestExplain_Shadowed(t *testing.T) {
	onA := []model.Condition{{Column: "PEA", Operator: model.OpEquals, Value: model.NewScalar("A")}}
	rules := []model.Rule{
		{ID: "g1", ResultValue: "1.1", Priority: 1, Conditions: onA},
		{ID: "g2", ResultValue: "1.2", Priority: 2, Conditions: onA},
		{ID: "miss", ResultValue: "9.9", Priority: 3, Conditions: []model.Condition{
			{Column: "PEA", Operator: model.OpEquals, Value: model.NewScalar("B")},
		}},
		{ID: "c1", ResultValue: "X", Priority: 0.5, TargetField: model.FieldGroupConcession, Conditions: onA},
		{ID: "c2", ResultValue: "Y", Priority: 0.7, TargetField: model.FieldGroupConcession, OnlyIfEmpty: true},
	}
	prof := model.Profile{ID: "p", Name: "P"}.WithRules(model.ModeRD03, rules)

	got, err := Explain(map[string]any{"PEA": "A"}, model.ModeRD03, prof)
	require.NoError(t, err)

	ids := func(ms []RuleMatch) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.ID
		}
		return out
	}
	assert.Equal(t, "1.1", got.Group)
	assert.Equal(t, "X", got.GroupConcession)
	assert.Equal(t, []string{"c1", "g1"}, ids(got.Matches))
	assert.Equal(t, []string{"c2", "g2"}, ids(got.Shadowed))
}

func TestExplain_NoRules(t *testing.T) {
	got, err := Explain(map[string]any{"PEA": "A"}, model.ModeRD03, model.Profile{ID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, got.Matches)
	assert.Empty(t, got.Shadowed)
	assert.NotNil(t, got.Shadowed)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s := NewServer(testutil.SetupTestDB(t).Storage, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}

func TestListenAndServe_TLS(t *testing.T) {
	cfg, err := certs.NewFileManager(t.TempDir()).TLSConfig()
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.TLS = cfg
	s := NewServer(testutil.SetupTestDB(t).Storage, opts)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, addr) }()

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS12}, // #nosec G402
	}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("https://" + addr + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
