package rest

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/zubacap/zubacap-go/core"
	"github.com/zubacap/zubacap-go/core/training"
)

// memCreds is a minimal CredentialSource that counts evictions.
type memCreds struct {
	mu     sync.Mutex
	token  string
	clears int
}

func (mc *memCreds) Token() (string, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.token, mc.token != ""
}

func (mc *memCreds) Clear() {
	mc.mu.Lock()
	mc.token = ""
	mc.clears++
	mc.mu.Unlock()
}

func (mc *memCreds) clearCount() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.clears
}

func newTestClient(baseURL string, creds CredentialSource) *Client {
	conf := &core.Config{
		Backend: core.BackendConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
	}
	return NewClient(conf, creds)
}

func Test_Client_requestHeaders(t *testing.T) {
	var gotAuth, gotReqID, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &memCreds{token: "tok"})
	if _, err := client.Programs(context.Background()); err != nil {
		t.Fatalf("Programs() failed: %v", err)
	}

	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want \"Bearer tok\"", gotAuth)
	}
	if gotReqID == "" {
		t.Error("X-Request-ID header is missing")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want \"application/json\"", gotContentType)
	}
}

func Test_Client_anonymousRequestOmitsBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &memCreds{})
	if _, err := client.Programs(context.Background()); err != nil {
		t.Fatalf("Programs() failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want no header without a credential", gotAuth)
	}
}

func Test_Client_queryComposition(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &memCreds{token: "tok"})
	if _, err := client.ModulesByProgram(context.Background(), 7); err != nil {
		t.Fatalf("ModulesByProgram() failed: %v", err)
	}

	wants := map[string]string{
		"filters[capacitacion][id][$eq]": "7",
		"populate":                       "*",
		"sort":                           "orden:asc",
	}
	for key, want := range wants {
		if got := gotQuery[key]; len(got) != 1 || got[0] != want {
			t.Errorf("query[%q] = %v, want %q", key, got, want)
		}
	}
}

func Test_Client_envelopeDecoding(t *testing.T) {
	t.Run("data list", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"id":1,"titulo":"Intro","orden":1},{"id":2,"titulo":"EPP","orden":2}]}`))
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, &memCreds{token: "tok"})
		modules, err := client.ModulesByProgram(context.Background(), 7)
		if err != nil {
			t.Fatalf("ModulesByProgram() failed: %v", err)
		}
		if len(modules) != 2 || modules[0].Title != "Intro" || modules[1].Order != 2 {
			t.Errorf("ModulesByProgram() = %+v", modules)
		}
	})

	t.Run("null data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":null}`))
		}))
		defer srv.Close()

		client := newTestClient(srv.URL, &memCreds{token: "tok"})
		modules, err := client.ModulesByProgram(context.Background(), 7)
		if err != nil {
			t.Fatalf("ModulesByProgram() failed: %v", err)
		}
		if modules != nil {
			t.Errorf("ModulesByProgram() = %v, want nil for a null data member", modules)
		}
	})
}

func Test_Client_writeEnvelope(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"id":5,"estado":"Completado"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &memCreds{token: "tok"})
	record, err := client.CreateLessonProgress(context.Background(), training.NewLessonProgress{
		Lesson:  3,
		Student: 42,
		Status:  training.LessonCompleted,
	})
	if err != nil {
		t.Fatalf("CreateLessonProgress() failed: %v", err)
	}
	if record.ID != 5 {
		t.Errorf("record.ID = %d, want 5", record.ID)
	}
	want := `{"data":{"leccion":3,"alumno":42,"estado":"Completado"}}` + "\n"
	if gotBody != want {
		t.Errorf("request body = %q, want %q", gotBody, want)
	}
}

func Test_Client_apiErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"status":400,"name":"ValidationError","message":"Invalid identifier or password"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, &memCreds{token: "tok"})
	_, err := client.Login(context.Background(), "awe", "wrong")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Login() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("APIError.Status = %d, want 400", apiErr.Status)
	}
	if apiErr.APIMessage() != "Invalid identifier or password" {
		t.Errorf("APIMessage() = %q, want the backend message", apiErr.APIMessage())
	}
	if apiErr.RequestID == "" {
		t.Error("APIError.RequestID is empty")
	}
	if IsUnauthorized(err) {
		t.Error("IsUnauthorized() = true for a 400")
	}
}

func Test_Client_unauthorizedEvictsOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"name":"UnauthorizedError","message":"Missing or invalid credentials"}}`))
	}))
	defer srv.Close()

	creds := &memCreds{token: "stale-tok"}
	client := newTestClient(srv.URL, creds)

	var mu sync.Mutex
	var expirations int
	client.OnSessionExpired(func() {
		mu.Lock()
		expirations++
		mu.Unlock()
	})

	// a burst of concurrent calls sharing the same stale credential
	const calls = 8
	errs := make([]error, calls)
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Me(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !IsUnauthorized(err) {
			t.Errorf("call %d: error = %v, want a 401 *APIError", i, err)
		}
	}
	if got := creds.clearCount(); got != 1 {
		t.Errorf("credential cleared %d times, want exactly once", got)
	}
	if expirations != 1 {
		t.Errorf("session-expiry signal fired %d times, want exactly once", expirations)
	}
	if _, ok := creds.Token(); ok {
		t.Error("credential should be absent after the eviction")
	}
}
