package exec

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"qapi/internal/model"
)

func boolPtr(v bool) *bool { return &v }

func TestParseHeaders(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		headers := ParseHeaders(`{"accept": "application/json", "x-trace": "abc"}`)
		want := map[string]string{"accept": "application/json", "x-trace": "abc"}
		if !reflect.DeepEqual(headers, want) {
			t.Errorf("expected %v, got %v", want, headers)
		}
	})

	t.Run("parsing twice yields the same map", func(t *testing.T) {
		text := `{"accept": "application/json"}`
		first := ParseHeaders(text)
		second := ParseHeaders(text)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("expected identical maps, got %v and %v", first, second)
		}
	})

	t.Run("malformed input yields empty map", func(t *testing.T) {
		for _, text := range []string{"", "not json", `["a"]`, `42`, `null`, `{"a": 1}`} {
			headers := ParseHeaders(text)
			if len(headers) != 0 {
				t.Errorf("ParseHeaders(%q): expected empty map, got %v", text, headers)
			}
		}
	})
}

func TestResolveHeaders(t *testing.T) {
	t.Run("bearer attached by default", func(t *testing.T) {
		p := model.Preset{Type: model.TypeREST, Headers: "{}"}
		auth := model.AuthConfig{BearerToken: "abc"}

		headers := ResolveHeaders(p, auth)
		if headers["Authorization"] != "Bearer abc" {
			t.Errorf("expected Authorization header, got %v", headers)
		}
	})

	t.Run("bearer toggle off omits the header", func(t *testing.T) {
		p := model.Preset{Type: model.TypeREST, IncludeBearer: boolPtr(false)}
		auth := model.AuthConfig{BearerToken: "abc"}

		headers := ResolveHeaders(p, auth)
		if _, ok := headers["Authorization"]; ok {
			t.Errorf("expected no Authorization header, got %v", headers)
		}
	})

	t.Run("empty token attaches nothing", func(t *testing.T) {
		headers := ResolveHeaders(model.Preset{}, model.AuthConfig{})
		if len(headers) != 0 {
			t.Errorf("expected empty headers, got %v", headers)
		}
	})

	t.Run("api key uses the configured header name", func(t *testing.T) {
		p := model.Preset{IncludeAPIKey: boolPtr(true)}
		auth := model.AuthConfig{APIKeyName: "x-service-key", APIKeyValue: "s3cret"}

		headers := ResolveHeaders(p, auth)
		if headers["X-Service-Key"] != "s3cret" {
			t.Errorf("expected api key header, got %v", headers)
		}
	})

	t.Run("auth wins a key collision", func(t *testing.T) {
		p := model.Preset{Headers: `{"Authorization": "Basic old"}`}
		auth := model.AuthConfig{BearerToken: "abc"}

		headers := ResolveHeaders(p, auth)
		if headers["Authorization"] != "Bearer abc" {
			t.Errorf("expected auth header to win, got %v", headers)
		}
	})

	t.Run("auth wins a case-variant key collision", func(t *testing.T) {
		p := model.Preset{Headers: `{"authorization": "Bearer preset-token"}`}
		auth := model.AuthConfig{BearerToken: "global-token"}

		headers := ResolveHeaders(p, auth)
		if len(headers) != 1 {
			t.Fatalf("expected the colliding keys folded into one, got %v", headers)
		}
		if headers["Authorization"] != "Bearer global-token" {
			t.Errorf("expected the auth header to win, got %v", headers)
		}
	})
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name  string
		p     model.Preset
		want  string
	}{
		{
			name: "no query",
			p:    model.Preset{Type: model.TypeREST, URL: "https://example.test/posts"},
			want: "https://example.test/posts",
		},
		{
			name: "pairs joined with ampersand",
			p:    model.Preset{Type: model.TypeREST, URL: "https://example.test/posts", Query: "status=active\nlimit=10"},
			want: "https://example.test/posts?status=active&limit=10",
		},
		{
			name: "bare key serializes with trailing equals",
			p:    model.Preset{Type: model.TypeREST, URL: "https://example.test/posts", Query: "debug"},
			want: "https://example.test/posts?debug=",
		},
		{
			name: "existing query string gets ampersand",
			p:    model.Preset{Type: model.TypeREST, URL: "https://example.test/posts?page=2", Query: "limit=10"},
			want: "https://example.test/posts?page=2&limit=10",
		},
		{
			name: "blank lines dropped",
			p:    model.Preset{Type: model.TypeREST, URL: "https://example.test/posts", Query: "\n  \nlimit=10\n"},
			want: "https://example.test/posts?limit=10",
		},
		{
			name: "query ignored for graphql",
			p:    model.Preset{Type: model.TypeGraphQL, URL: "https://example.test/graphql", Query: "limit=10"},
			want: "https://example.test/graphql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.p); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	t.Run("empty url is a no-op", func(t *testing.T) {
		rec := New().Execute(context.Background(), model.Preset{Type: model.TypeREST, Method: "GET"}, model.AuthConfig{})
		if rec != nil {
			t.Errorf("expected nil record, got %+v", rec)
		}
	})

	t.Run("GET sends no body and carries bearer auth", func(t *testing.T) {
		var gotMethod, gotAuth string
		var gotBody []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotAuth = r.Header.Get("Authorization")
			gotBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		p := model.Preset{
			ID:      "rest-posts",
			Name:    "List Posts",
			Type:    model.TypeREST,
			Method:  "GET",
			URL:     server.URL + "/posts",
			Headers: "{}",
			Body:    `{"ignored": "for GET"}`,
		}
		rec := New().Execute(context.Background(), p, model.AuthConfig{BearerToken: "abc"})

		if rec == nil {
			t.Fatal("expected a record")
		}
		if gotMethod != "GET" {
			t.Errorf("expected GET, got %s", gotMethod)
		}
		if gotAuth != "Bearer abc" {
			t.Errorf("expected bearer header, got %q", gotAuth)
		}
		if len(gotBody) != 0 {
			t.Errorf("expected empty request body, got %q", gotBody)
		}
		if rec.Status != "200" || !rec.OK {
			t.Errorf("expected 200/ok, got %s/%v", rec.Status, rec.OK)
		}
	})

	t.Run("case-variant preset header never shadows the bearer", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		p := model.Preset{
			ID:      "rest-shadow",
			Type:    model.TypeREST,
			Method:  "GET",
			URL:     server.URL,
			Headers: `{"authorization": "Bearer preset-token"}`,
		}
		for i := 0; i < 20; i++ {
			New().Execute(context.Background(), p, model.AuthConfig{BearerToken: "global-token"})
			if gotAuth != "Bearer global-token" {
				t.Fatalf("run %d: expected the global token on the wire, got %q", i, gotAuth)
			}
		}
	})

	t.Run("graphql is always POST with json payload", func(t *testing.T) {
		var gotMethod, gotContentType string
		var payload struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotContentType = r.Header.Get("Content-Type")
			json.NewDecoder(r.Body).Decode(&payload)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data": {}}`))
		}))
		defer server.Close()

		p := model.Preset{
			ID:               "graphql-demo",
			Name:             "Demo",
			Type:             model.TypeGraphQL,
			Method:           "GET", // ignored for GraphQL
			URL:              server.URL,
			GraphQLQuery:     "query { me { id } }",
			GraphQLVariables: `{"limit": 10}`,
		}
		rec := New().Execute(context.Background(), p, model.AuthConfig{})

		if rec == nil {
			t.Fatal("expected a record")
		}
		if gotMethod != "POST" {
			t.Errorf("expected POST, got %s", gotMethod)
		}
		if gotContentType != "application/json" {
			t.Errorf("expected json content type, got %q", gotContentType)
		}
		if payload.Query != "query { me { id } }" {
			t.Errorf("unexpected query: %q", payload.Query)
		}
		if payload.Variables["limit"] != float64(10) {
			t.Errorf("unexpected variables: %v", payload.Variables)
		}
	})

	t.Run("malformed graphql variables become empty object", func(t *testing.T) {
		var payload map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&payload)
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		p := model.Preset{
			ID:               "graphql-demo",
			Type:             model.TypeGraphQL,
			URL:              server.URL,
			GraphQLQuery:     "query { me { id } }",
			GraphQLVariables: "{not json",
		}
		New().Execute(context.Background(), p, model.AuthConfig{})

		vars, ok := payload["variables"].(map[string]any)
		if !ok || len(vars) != 0 {
			t.Errorf("expected empty variables object, got %v", payload["variables"])
		}
	})

	t.Run("REST POST sends the raw body verbatim", func(t *testing.T) {
		var gotBody []byte
		var gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)
			gotContentType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("created"))
		}))
		defer server.Close()

		body := "{\n  \"title\": \"QA demo\"\n}"
		p := model.Preset{
			ID:     "rest-create",
			Type:   model.TypeREST,
			Method: "POST",
			URL:    server.URL,
			Body:   body,
		}
		rec := New().Execute(context.Background(), p, model.AuthConfig{})

		if string(gotBody) != body {
			t.Errorf("expected body passed through verbatim, got %q", gotBody)
		}
		if gotContentType != "application/json" {
			t.Errorf("expected default json content type, got %q", gotContentType)
		}
		if rec.Status != "201" || !rec.OK {
			t.Errorf("expected 201/ok, got %s/%v", rec.Status, rec.OK)
		}
	})

	t.Run("explicit content type is not overridden", func(t *testing.T) {
		var gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		p := model.Preset{
			ID:      "rest-xml",
			Type:    model.TypeREST,
			Method:  "POST",
			URL:     server.URL,
			Headers: `{"Content-Type": "application/xml"}`,
			Body:    "<doc/>",
		}
		New().Execute(context.Background(), p, model.AuthConfig{})

		if gotContentType != "application/xml" {
			t.Errorf("expected explicit content type kept, got %q", gotContentType)
		}
	})

	t.Run("json responses are parsed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write([]byte(`{"count": 3}`))
		}))
		defer server.Close()

		p := model.Preset{ID: "rest", Type: model.TypeREST, Method: "GET", URL: server.URL}
		rec := New().Execute(context.Background(), p, model.AuthConfig{})

		body, ok := rec.Body.(map[string]any)
		if !ok || body["count"] != float64(3) {
			t.Errorf("expected parsed body, got %#v", rec.Body)
		}
		if rec.Raw != `{"count": 3}` {
			t.Errorf("expected raw text retained, got %q", rec.Raw)
		}
	})

	t.Run("invalid json with json content type falls back to raw", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("{broken"))
		}))
		defer server.Close()

		p := model.Preset{ID: "rest", Type: model.TypeREST, Method: "GET", URL: server.URL}
		rec := New().Execute(context.Background(), p, model.AuthConfig{})

		if rec.Body != "{broken" {
			t.Errorf("expected raw fallback, got %#v", rec.Body)
		}
	})

	t.Run("non-2xx keeps the status and clears ok", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("nope"))
		}))
		defer server.Close()

		p := model.Preset{ID: "rest", Type: model.TypeREST, Method: "GET", URL: server.URL}
		rec := New().Execute(context.Background(), p, model.AuthConfig{})

		if rec.Status != "404" || rec.OK {
			t.Errorf("expected 404/!ok, got %s/%v", rec.Status, rec.OK)
		}
	})

	t.Run("transport failure produces an ERR record", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // connection refused from here on

		p := model.Preset{ID: "rest", Type: model.TypeREST, Method: "GET", URL: server.URL}
		rec := New().Execute(context.Background(), p, model.AuthConfig{})

		if rec == nil {
			t.Fatal("expected a record, not nil")
		}
		if rec.Status != model.StatusError || rec.OK {
			t.Errorf("expected ERR/!ok, got %s/%v", rec.Status, rec.OK)
		}
		if rec.Raw == "" || rec.Body == "" {
			t.Error("expected the error text in body and raw")
		}
		if len(rec.Headers) != 0 {
			t.Errorf("expected empty headers, got %v", rec.Headers)
		}
	})
}
