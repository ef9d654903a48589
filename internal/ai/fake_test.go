package ai_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

// fakeOpenAI serves the subset of the OpenAI API the service uses.
type fakeOpenAI struct {
	t      *testing.T
	srv    *httptest.Server
	reply  func(chatRequest) string
	status int

	mu       sync.Mutex
	chats    []chatRequest
	images   int
	imageURL string
	png      []byte
}

func newFakeOpenAI(t *testing.T, reply func(chatRequest) string) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{t: t, reply: reply}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", f.handleChat)
	mux.HandleFunc("/v1/images/generations", f.handleImage)
	mux.HandleFunc("/files/dish.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(f.png)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	f.imageURL = f.srv.URL + "/files/dish.png"
	return f
}

func (f *fakeOpenAI) baseURL() string { return f.srv.URL + "/v1" }

func (f *fakeOpenAI) handleChat(w http.ResponseWriter, r *http.Request) {
	require.Equal(f.t, "Bearer test-key", r.Header.Get("Authorization"))
	var req chatRequest
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
	f.mu.Lock()
	f.chats = append(f.chats, req)
	f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": f.reply(req)},
		}},
	})
}

func (f *fakeOpenAI) handleImage(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.images++
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"created": 1700000000,
		"data":    []map[string]any{{"url": f.imageURL}},
	})
}

func (f *fakeOpenAI) lastChat() chatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.chats)
	return f.chats[len(f.chats)-1]
}

func textOf(m chatMessage) string {
	var s string
	if json.Unmarshal(m.Content, &s) == nil {
		return s
	}
	return string(m.Content)
}
