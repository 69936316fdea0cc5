package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"
)

// fakeTasksAPI serves the subset of the Tasks v1 REST API used by Manager.
type fakeTasksAPI struct {
	mu      sync.Mutex
	items   []*tasksapi.Task
	nextID  int
	failAll bool
	calls   []string
}

func (f *fakeTasksAPI) add(title, status string) *tasksapi.Task {
	f.nextID++
	t := &tasksapi.Task{Id: fmt.Sprintf("g%d", f.nextID), Title: title, Status: status}
	f.items = append(f.items, t)
	return t
}

func (f *fakeTasksAPI) find(id string) *tasksapi.Task {
	for _, t := range f.items {
		if t.Id == id {
			return t
		}
	}
	return nil
}

func (f *fakeTasksAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, r.Method)

	if f.failAll {
		writeAPIError(w, http.StatusInternalServerError, "backend error")
		return
	}

	const prefix = "/tasks/v1/lists/@default/tasks"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeAPIError(w, http.StatusNotFound, "unknown path "+r.URL.Path)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		var visible []*tasksapi.Task
		for _, t := range f.items {
			if r.URL.Query().Get("showCompleted") == "false" && t.Status == "completed" {
				continue
			}
			visible = append(visible, t)
		}
		_ = json.NewEncoder(w).Encode(&tasksapi.Tasks{Items: visible})
	case r.Method == http.MethodPost && id == "":
		var in tasksapi.Task
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(f.add(in.Title, "needsAction"))
	case r.Method == http.MethodGet:
		t := f.find(id)
		if t == nil {
			writeAPIError(w, http.StatusNotFound, "Task not found")
			return
		}
		_ = json.NewEncoder(w).Encode(t)
	case r.Method == http.MethodPatch:
		t := f.find(id)
		if t == nil {
			writeAPIError(w, http.StatusNotFound, "Task not found")
			return
		}
		var in tasksapi.Task
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Status != "" {
			t.Status = in.Status
		}
		_ = json.NewEncoder(w).Encode(t)
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "unsupported")
	}
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": msg}})
}

func newFakeService(t *testing.T, api *fakeTasksAPI) *tasksapi.Service {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := tasksapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	return svc
}
