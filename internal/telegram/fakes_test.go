package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/pipeline"
)

const testToken = "123:abc"

type apiCall struct {
	Method   string
	Fields   map[string]string
	Body     map[string]any
	FileName string
	File     string
}

type apiFailure struct {
	Status      int
	Description string
	Times       int // 0 means always
}

// fakeAPI is an httptest Bot API that records every call
type fakeAPI struct {
	mu       sync.Mutex
	srv      *httptest.Server
	calls    []apiCall
	failures map[string]*apiFailure
	updates  [][]Update
	nextID   int64
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{failures: map[string]*apiFailure{}, nextID: 100}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) client() *Client {
	return NewClient(f.srv.Client(), f.srv.URL, testToken)
}

func (f *fakeAPI) fail(method string, status int, description string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = &apiFailure{Status: status, Description: description, Times: times}
}

func (f *fakeAPI) queueUpdates(batch ...Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, batch)
}

func (f *fakeAPI) Calls(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	prefix := "/bot" + testToken + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	call := apiCall{Method: strings.TrimPrefix(r.URL.Path, prefix), Fields: map[string]string{}}

	switch {
	case strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/"):
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for k, v := range r.MultipartForm.Value {
			call.Fields[k] = v[0]
		}
		for _, headers := range r.MultipartForm.File {
			fh := headers[0]
			file, err := fh.Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			data, _ := io.ReadAll(file)
			_ = file.Close()
			call.FileName = fh.Filename
			call.File = string(data)
		}
	case r.Method == http.MethodPost:
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	default:
		for k, v := range r.URL.Query() {
			call.Fields[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	failure := f.failures[call.Method]
	if failure != nil && failure.Times > 0 {
		failure.Times--
		if failure.Times == 0 {
			delete(f.failures, call.Method)
		}
	}
	var batch []Update
	if call.Method == "getUpdates" && len(f.updates) > 0 {
		batch = f.updates[0]
		f.updates = f.updates[1:]
	}
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failure != nil {
		w.WriteHeader(failure.Status)
		_, _ = fmt.Fprintf(w, `{"ok":false,"error_code":%d,"description":%q}`, failure.Status, failure.Description)
		return
	}

	switch call.Method {
	case "sendMessage":
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d}}`, id)
	case "getUpdates":
		if batch == nil {
			// idle long poll
			select {
			case <-r.Context().Done():
				return
			case <-time.After(20 * time.Millisecond):
			}
			batch = []Update{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": batch})
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

type fakeRunner struct {
	mu    sync.Mutex
	reqs  []model.MediaRequest
	block chan struct{}
}

func (f *fakeRunner) Handle(ctx context.Context, req model.MediaRequest, sess pipeline.Session) pipeline.Result {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return pipeline.Result{Kind: model.MediaKindSingle, Outcome: model.Delivered("ok")}
}

func (f *fakeRunner) Requests() []model.MediaRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MediaRequest(nil), f.reqs...)
}

type recordingUpdates struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recordingUpdates) HandleUpdate(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingUpdates) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func textUpdate(id int64, chatID int64, text string) Update {
	return Update{
		UpdateID: id,
		Message: &Message{
			MessageID: id * 10,
			Chat:      &Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}
