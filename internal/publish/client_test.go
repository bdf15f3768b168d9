package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) EnsureValidToken(context.Context) (string, error) {
	return s.token, s.err
}

// fakeProvider stands in for the publishing API and its upload target.
type fakeProvider struct {
	t *testing.T

	registerCalls int
	uploadedBytes []byte
	lastPost      map[string]interface{}

	idInHeader bool
}

func (p *fakeProvider) server() *httptest.Server {
	var server *httptest.Server
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"sub":"abc123"}`)
	})

	mux.HandleFunc("POST /v2/assets", func(w http.ResponseWriter, r *http.Request) {
		p.registerCalls++
		var req struct {
			RegisterUploadRequest struct {
				Owner string `json:"owner"`
			} `json:"registerUploadRequest"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			p.t.Errorf("decode register request: %v", err)
		}
		if req.RegisterUploadRequest.Owner != "urn:li:person:abc123" {
			p.t.Errorf("unexpected upload owner %q", req.RegisterUploadRequest.Owner)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"value":{"asset":"urn:li:digitalmediaAsset:img-1","uploadMechanism":{"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest":{"uploadUrl":"%s/upload/img-1"}}}}`, server.URL)
	})

	mux.HandleFunc("PUT /upload/img-1", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		p.uploadedBytes = data
		w.WriteHeader(http.StatusCreated)
	})

	mux.HandleFunc("POST /v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&p.lastPost); err != nil {
			p.t.Errorf("decode post payload: %v", err)
		}
		if p.idInHeader {
			w.Header().Set("X-RestLi-Id", "urn:li:share:42")
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"urn:li:share:77"}`)
	})

	server = httptest.NewServer(mux)
	p.t.Cleanup(server.Close)
	return server
}

func TestPublishTextOnly(t *testing.T) {
	provider := &fakeProvider{t: t, idInHeader: true}
	server := provider.server()
	client := NewClient(staticTokens{token: "test-token"}, server.URL)

	id, err := client.Publish(context.Background(), "Hello network", "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != "urn:li:share:42" {
		t.Fatalf("expected external id from header, got %q", id)
	}
	if provider.registerCalls != 0 {
		t.Fatal("text-only publish must not register an upload")
	}

	content := provider.lastPost["specificContent"].(map[string]interface{})["com.linkedin.ugc.ShareContent"].(map[string]interface{})
	if content["shareMediaCategory"] != "NONE" {
		t.Fatalf("expected NONE media category, got %v", content["shareMediaCategory"])
	}
}

func TestPublishWithImage(t *testing.T) {
	provider := &fakeProvider{t: t, idInHeader: true}
	server := provider.server()
	client := NewClient(staticTokens{token: "test-token"}, server.URL)

	imagePath := filepath.Join(t.TempDir(), "draft.jpg")
	if err := os.WriteFile(imagePath, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	id, err := client.Publish(context.Background(), "Post with picture", imagePath)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != "urn:li:share:42" {
		t.Fatalf("unexpected external id %q", id)
	}
	if provider.registerCalls != 1 {
		t.Fatalf("expected one upload registration, got %d", provider.registerCalls)
	}
	if string(provider.uploadedBytes) != "jpeg bytes" {
		t.Fatalf("uploaded bytes do not match the image file: %q", provider.uploadedBytes)
	}

	content := provider.lastPost["specificContent"].(map[string]interface{})["com.linkedin.ugc.ShareContent"].(map[string]interface{})
	if content["shareMediaCategory"] != "IMAGE" {
		t.Fatalf("expected IMAGE media category, got %v", content["shareMediaCategory"])
	}
}

func TestPublishIDFromBody(t *testing.T) {
	provider := &fakeProvider{t: t, idInHeader: false}
	server := provider.server()
	client := NewClient(staticTokens{token: "test-token"}, server.URL)

	id, err := client.Publish(context.Background(), "Hello", "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != "urn:li:share:77" {
		t.Fatalf("expected external id from body, got %q", id)
	}
}

func TestPublishUserinfoFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"token revoked"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)
	client := NewClient(staticTokens{token: "test-token"}, server.URL)

	_, err := client.Publish(context.Background(), "Hello", "")
	var extErr *ExternalCallError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExternalCallError, got %v", err)
	}
	if extErr.Step != "userinfo" {
		t.Fatalf("expected userinfo step, got %s", extErr.Step)
	}
	if extErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", extErr.Status)
	}
}

func TestPublishMissingImageAborts(t *testing.T) {
	provider := &fakeProvider{t: t, idInHeader: true}
	server := provider.server()
	client := NewClient(staticTokens{token: "test-token"}, server.URL)

	_, err := client.Publish(context.Background(), "Hello", filepath.Join(t.TempDir(), "missing.jpg"))
	var extErr *ExternalCallError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExternalCallError, got %v", err)
	}
	if extErr.Step != "upload" {
		t.Fatalf("expected upload step, got %s", extErr.Step)
	}
	if len(provider.lastPost) != 0 {
		t.Fatal("no post may be created when the upload step fails")
	}
}

func TestPublishTokenErrorPropagates(t *testing.T) {
	tokenErr := errors.New("no refresh token on record")
	client := NewClient(staticTokens{err: tokenErr}, "http://unused.example")

	_, err := client.Publish(context.Background(), "Hello", "")
	if !errors.Is(err, tokenErr) {
		t.Fatalf("expected token error to propagate unchanged, got %v", err)
	}
}
