package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// apiCall is one request received by fakeAPI.
type apiCall struct {
	Method string
	Fields map[string]string
}

// fakeAPI stands in for the Bot API server.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
	fail  map[string]bool
}

var formFields = []string{
	"chat_id", "text", "parse_mode", "link_preview_options", "reply_parameters",
	"reply_markup", "from_chat_id", "message_id", "url",
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{fail: map[string]bool{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	fields := map[string]string{}
	for _, name := range formFields {
		if v := r.FormValue(name); v != "" {
			fields[name] = v
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Fields: fields})
	fail := f.fail[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		return
	}

	var result any = true
	switch method {
	case "getMe":
		result = map[string]any{"id": 42, "is_bot": true, "first_name": "TululBot", "username": "tululbot"}
	case "sendMessage", "forwardMessage":
		result = map[string]any{"message_id": 100, "date": 0, "chat": map[string]any{"id": 1, "type": "group"}}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeAPI) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

func (f *fakeAPI) FailMethod(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = true
}
