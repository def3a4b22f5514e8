package generation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"herobook_back/hero"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		baseURL:    server.URL,
		apiVersion: defaultAPIVersion,
		apiKey:     "test-key",
		textModel:  defaultTextModel,
		imageModel: defaultImageModel,
	}
	return client, server
}

func captionResponse(t *testing.T, captions []string) []byte {
	t.Helper()
	inner, err := json.Marshal(captions)
	if err != nil {
		t.Fatal(err)
	}
	payload := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": string(inner)}},
			},
		}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestCaptionsParsesProviderPayload(t *testing.T) {
	want := []string{"one", "two", "three"}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, defaultTextModel) {
			t.Errorf("caption request hit wrong model path %q", r.URL.Path)
		}
		w.Write(captionResponse(t, want))
	})

	got := client.Captions(context.Background(), hero.DefaultCustomization())
	if len(got) != 3 {
		t.Fatalf("got %d captions, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("caption %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCaptionsFallsBackOnServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	opts := hero.DefaultCustomization()
	opts.SuitColor = hero.SuitPurple
	got := client.Captions(context.Background(), opts)
	if len(got) != 3 {
		t.Fatalf("fallback must still return 3 captions, got %d", len(got))
	}
	if !strings.Contains(got[0], "Purple") {
		t.Errorf("fallback caption %q should mention the suit color", got[0])
	}
}

func TestCaptionsFallsBackOnShortPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(captionResponse(t, []string{"only one"}))
	})

	got := client.Captions(context.Background(), hero.DefaultCustomization())
	if len(got) != 3 {
		t.Fatalf("got %d captions, want 3", len(got))
	}
	if got[0] == "only one" {
		t.Error("short payload should have been replaced by the fallback set")
	}
}

func TestHeroImageReturnsInlineData(t *testing.T) {
	imageBytes := []byte{0x89, 'P', 'N', 'G'}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("unexpected request shape: %+v", req)
		}
		if req.Contents[0].Parts[0].InlineData == nil {
			t.Fatal("reference image missing from request")
		}

		payload := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(imageBytes),
						},
					}},
				},
			}},
		}
		json.NewEncoder(w).Encode(payload)
	})

	got, mime, err := client.HeroImage(context.Background(), []byte("ref"), "image/jpeg", "a prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q", mime)
	}
	if string(got) != string(imageBytes) {
		t.Error("returned bytes do not match inline data")
	}
}

func TestHeroImagePropagatesFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})

	if _, _, err := client.HeroImage(context.Background(), []byte("ref"), "image/png", "a prompt"); err == nil {
		t.Fatal("expected an error from a failing provider")
	}
}

func TestHeroImageRejectsEmptyInput(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	})

	if _, _, err := client.HeroImage(context.Background(), nil, "image/png", "p"); err == nil {
		t.Error("empty reference image must error")
	}
	if _, _, err := client.HeroImage(context.Background(), []byte("x"), "image/png", "  "); err == nil {
		t.Error("blank prompt must error")
	}
}
