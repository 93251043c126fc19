package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/api"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/checkpoint"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/negotiation"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/pipeline"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/steps"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/store"
)

type testEnv struct {
	handler *api.Handler
	runs    *pipeline.Manager
	store   *store.SQLiteStore
	echo    *echo.Echo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.NewSQLiteStore(":memory:")
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cp, err := checkpoint.NewStore(t.TempDir())
	assert.NoError(t, err)

	registry := steps.NewRegistry(steps.Deps{
		Searcher:   &steps.LocalSearcher{},
		Profiles:   &steps.FileProfileLoader{},
		Scorer:     steps.KeywordScorer{},
		Researcher: steps.TemplateResearcher{},
		Tailor:     &steps.TemplateTailor{OutDir: t.TempDir()},
		Outreach:   steps.TemplateOutreach{},
		Submitter:  &steps.LocalSubmitter{},
		Recorder:   db,
	})
	exec := pipeline.NewExecutor(registry, cp, nil, db)
	runs := pipeline.NewManager(exec, db, nil, 70, 10)
	neg := negotiation.New(negotiation.ScriptedGenerator{})

	return &testEnv{
		handler: api.NewHandler(runs, db, neg),
		runs:    runs,
		store:   db,
		echo:    echo.New(),
	}
}

func (env *testEnv) request(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, env.echo.NewContext(req, rec)
}

func TestStartRunAndGetRun(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/v1/runs", domain.StartRunRequest{
		SessionID: "s1",
		Query:     "go backend",
	})
	assert.NoError(t, env.handler.StartRun(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp domain.StartRunResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "s1", resp.SessionID)

	env.runs.Wait(resp.RunID)

	rec, c = env.request(http.MethodGet, "/v1/runs/"+resp.RunID, nil)
	c.SetPath("/v1/runs/:run_id")
	c.SetParamNames("run_id")
	c.SetParamValues(resp.RunID)
	assert.NoError(t, env.handler.GetRun(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var run domain.Run
	json.Unmarshal(rec.Body.Bytes(), &run)
	assert.Equal(t, domain.RunStatusDone, run.Status)
	assert.NotNil(t, run.EndedAt)
}

func TestStartRunValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/v1/runs", domain.StartRunRequest{Query: "go"})
	assert.NoError(t, env.handler.StartRun(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, c = env.request(http.MethodPost, "/v1/runs", domain.StartRunRequest{SessionID: "s1"})
	assert.NoError(t, env.handler.StartRun(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodGet, "/v1/runs/run_missing", nil)
	c.SetPath("/v1/runs/:run_id")
	c.SetParamNames("run_id")
	c.SetParamValues("run_missing")
	assert.NoError(t, env.handler.GetRun(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunEvents(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/v1/runs", domain.StartRunRequest{
		SessionID: "s1",
		Query:     "go backend",
	})
	assert.NoError(t, env.handler.StartRun(c))
	var resp domain.StartRunResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	env.runs.Wait(resp.RunID)

	rec, c = env.request(http.MethodGet, "/v1/runs/"+resp.RunID+"/events", nil)
	c.SetPath("/v1/runs/:run_id/events")
	c.SetParamNames("run_id")
	c.SetParamValues(resp.RunID)
	assert.NoError(t, env.handler.GetRunEvents(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Events []domain.Event `json:"events"`
	}
	json.Unmarshal(rec.Body.Bytes(), &out)
	assert.NotEmpty(t, out.Events)
	assert.Equal(t, domain.EventTypeRunStarted, out.Events[0].Type)
}

func TestStopAndPauseUnknownRun(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/v1/runs/run_missing/stop", nil)
	c.SetPath("/v1/runs/:run_id/stop")
	c.SetParamNames("run_id")
	c.SetParamValues("run_missing")
	assert.NoError(t, env.handler.StopRun(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, c = env.request(http.MethodPost, "/v1/runs/run_missing/pause", nil)
	c.SetPath("/v1/runs/:run_id/pause")
	c.SetParamNames("run_id")
	c.SetParamValues("run_missing")
	assert.NoError(t, env.handler.PauseRun(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResumeWithoutCheckpoint(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/v1/runs/run_missing/resume", nil)
	c.SetPath("/v1/runs/:run_id/resume")
	c.SetParamNames("run_id")
	c.SetParamValues("run_missing")
	assert.NoError(t, env.handler.ResumeRun(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestNegotiationFlow(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.request(http.MethodPost, "/v1/negotiations", domain.CreateNegotiationRequest{
		SessionID:    "s1",
		TargetSalary: 150000,
	})
	assert.NoError(t, env.handler.CreateNegotiation(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var n domain.Negotiation
	json.Unmarshal(rec.Body.Bytes(), &n)
	assert.NotEmpty(t, n.NegotiationID)
	assert.Equal(t, domain.NegotiationStatusActive, n.Status)
	assert.Equal(t, domain.NegotiationPhaseOpening, n.Phase)

	rec, c = env.request(http.MethodPost, "/v1/negotiations/"+n.NegotiationID+"/messages", domain.NegotiationMessageRequest{
		Message: "our offer is 120k",
	})
	c.SetPath("/v1/negotiations/:negotiation_id/messages")
	c.SetParamNames("negotiation_id")
	c.SetParamValues(n.NegotiationID)
	assert.NoError(t, env.handler.NegotiationMessage(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var turn domain.NegotiationMessageResponse
	json.Unmarshal(rec.Body.Bytes(), &turn)
	assert.Equal(t, 1, turn.Turn)
	assert.Equal(t, domain.NegotiationPhaseOpening, turn.Phase)
	assert.NotEmpty(t, turn.Response)

	// Accepting language concludes the negotiation; further messages 409.
	rec, c = env.request(http.MethodPost, "/v1/negotiations/"+n.NegotiationID+"/messages", domain.NegotiationMessageRequest{
		Message: "we accept your number",
	})
	c.SetPath("/v1/negotiations/:negotiation_id/messages")
	c.SetParamNames("negotiation_id")
	c.SetParamValues(n.NegotiationID)
	assert.NoError(t, env.handler.NegotiationMessage(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	json.Unmarshal(rec.Body.Bytes(), &turn)
	assert.Equal(t, domain.NegotiationStatusWon, turn.Status)

	rec, c = env.request(http.MethodPost, "/v1/negotiations/"+n.NegotiationID+"/messages", domain.NegotiationMessageRequest{
		Message: "hello again",
	})
	c.SetPath("/v1/negotiations/:negotiation_id/messages")
	c.SetParamNames("negotiation_id")
	c.SetParamValues(n.NegotiationID)
	assert.NoError(t, env.handler.NegotiationMessage(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, c = env.request(http.MethodGet, "/v1/negotiations/"+n.NegotiationID, nil)
	c.SetPath("/v1/negotiations/:negotiation_id")
	c.SetParamNames("negotiation_id")
	c.SetParamValues(n.NegotiationID)
	assert.NoError(t, env.handler.GetNegotiation(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var final domain.Negotiation
	json.Unmarshal(rec.Body.Bytes(), &final)
	assert.Equal(t, domain.NegotiationStatusWon, final.Status)
	assert.Len(t, final.History, 2)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec, c := env.request(http.MethodGet, "/healthz", nil)
	assert.NoError(t, env.handler.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
