package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/zenotes/internal/notes"
	"github.com/MarcoPoloResearchLab/zenotes/internal/settings"
	"github.com/MarcoPoloResearchLab/zenotes/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/hack-pad/hackpadfs/mem"
)

type testEnvironment struct {
	repository *notes.Repository
	settings   *settings.Store
	realtime   *RealtimeDispatcher
	handler    http.Handler
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) Summarize(context.Context, string) (string, error) {
	return s.summary, s.err
}

func newMemoryStore(testContext *testing.T) *storage.FileStore {
	testContext.Helper()
	fileSystem, err := mem.NewFS()
	if err != nil {
		testContext.Fatalf("failed to create memory fs: %v", err)
	}
	store, err := storage.NewFileStore(fileSystem, nil)
	if err != nil {
		testContext.Fatalf("failed to create store: %v", err)
	}
	return store
}

func newTestEnvironment(testContext *testing.T, customize func(*Dependencies)) *testEnvironment {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemoryStore(testContext)
	counter := 0
	repository, err := notes.NewRepository(notes.RepositoryConfig{
		Store: store,
		IDProvider: notes.IDProviderFunc(func() (string, error) {
			counter++
			return fmt.Sprintf("note-%d", counter), nil
		}),
	})
	if err != nil {
		testContext.Fatalf("failed to create repository: %v", err)
	}
	settingsStore, err := settings.NewStore(settings.StoreConfig{Store: store})
	if err != nil {
		testContext.Fatalf("failed to create settings store: %v", err)
	}

	repository.Load(context.Background())
	settingsStore.Load(context.Background())

	realtime := NewRealtimeDispatcher()
	BridgeRepository(repository, realtime)

	deps := Dependencies{
		Repository:        repository,
		Settings:          settingsStore,
		Realtime:          realtime,
		HeartbeatInterval: time.Hour,
	}
	if customize != nil {
		customize(&deps)
	}
	handler, err := NewHTTPHandler(deps)
	if err != nil {
		testContext.Fatalf("failed to construct http handler: %v", err)
	}
	return &testEnvironment{
		repository: repository,
		settings:   settingsStore,
		realtime:   realtime,
		handler:    handler,
	}
}

func (e *testEnvironment) do(testContext *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	testContext.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			testContext.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, target, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}

func (e *testEnvironment) addNote(testContext *testing.T, draft notes.NoteDraft) string {
	testContext.Helper()
	id, err := e.repository.AddNote(context.Background(), draft)
	if err != nil {
		testContext.Fatalf("failed to add note: %v", err)
	}
	return id
}

func decodeBody[T any](testContext *testing.T, recorder *httptest.ResponseRecorder) T {
	testContext.Helper()
	var payload T
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		testContext.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

type noteEnvelope struct {
	Note    notes.Note `json:"note"`
	Changed bool       `json:"changed"`
}

type notesEnvelope struct {
	Notes []notes.Note `json:"notes"`
}

func expectStatus(testContext *testing.T, recorder *httptest.ResponseRecorder, status int) {
	testContext.Helper()
	if recorder.Code != status {
		testContext.Fatalf("expected status %d, got %d: %s", status, recorder.Code, recorder.Body.String())
	}
}
