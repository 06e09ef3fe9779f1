package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"live-translation/config"
	"live-translation/dto"
	"live-translation/pkg/sse"
	"live-translation/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *service.SessionManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	manager := service.NewSessionManager(nil, config.Session{})
	orchestrator := service.NewOrchestrator(manager, nil, nil, nil, nil, nil, 0)
	hub := sse.NewHub()
	t.Cleanup(hub.Close)

	r := gin.New()
	NewHTTP(manager, orchestrator, hub).Register(r.Group("/api"))
	return r, manager
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createSessionViaAPI(t *testing.T, r *gin.Engine, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/sessions", dto.CreateSessionRequest{
		ImamID:             "imam-1",
		ImamName:           "Sheikh Ahmad",
		SourceLanguage:     "ar",
		SourceLanguageName: "Arabic",
		Title:              "Friday Khutbah",
		Password:           password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", w.Code, w.Body.String())
	}
	var resp dto.CreateSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.SessionID == "" {
		t.Fatalf("unexpected create response: %+v", resp)
	}
	return resp.SessionID
}

func TestCreateSession(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSessionViaAPI(t, r, "secret")

	w := doJSON(t, r, http.MethodGet, "/api/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get session: status %d", w.Code)
	}
	var view dto.SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Status != "pending" || !view.Protected {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestCreateSessionValidationStatus(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/sessions", dto.CreateSessionRequest{Title: "no imam"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/sessions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestJoinValidatesWithoutTakingASeat(t *testing.T) {
	r, manager := newTestRouter(t)
	id := createSessionViaAPI(t, r, "")

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/join", dto.JoinSessionRequest{
		UserID:             "u1",
		TargetLanguage:     "en",
		TargetLanguageName: "English",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("join: status %d, body %s", w.Code, w.Body.String())
	}
	var resp dto.JoinSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.EventsURL != "/api/sessions/"+id+"/events" {
		t.Errorf("EventsURL = %q", resp.EventsURL)
	}
	// the seat is taken when the event stream attaches, not here
	if n := len(manager.GetActiveWorshippers(id)); n != 0 {
		t.Errorf("roster size = %d, want 0 after REST join", n)
	}
}

func TestJoinWrongPassword(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSessionViaAPI(t, r, "secret")

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/join", dto.JoinSessionRequest{
		UserID:             "u1",
		TargetLanguage:     "en",
		TargetLanguageName: "English",
		Password:           "wrong",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestEndSessionOwnership(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSessionViaAPI(t, r, "")

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/end", dto.EndSessionRequest{CallerID: "intruder"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/end", dto.EndSessionRequest{CallerID: "imam-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	// joining an ended session conflicts
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/join", dto.JoinSessionRequest{
		UserID:             "u1",
		TargetLanguage:     "en",
		TargetLanguageName: "English",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("join after end: status = %d, want 409", w.Code)
	}
}

func TestStatistics(t *testing.T) {
	r, _ := newTestRouter(t)
	createSessionViaAPI(t, r, "")

	w := doJSON(t, r, http.MethodGet, "/api/statistics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats dto.StatisticsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalSessions != 1 || stats.ActiveSessions != 0 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
}

func TestHistoryEmptySession(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSessionViaAPI(t, r, "")

	w := doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/history?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var page dto.HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 || page.Limit != 5 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestEventsRequiresUserID(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSessionViaAPI(t, r, "")

	w := doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/events", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/sessions/nope/events?userId=u1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
