package storage

import (
	"context"
	"testing"
	"time"
)

// Every entry point must be a safe no-op on a nil store so callers can
// wire storage unconditionally and skip the configuration check.
func TestNilStoreIsNoOp(t *testing.T) {
	var s *PhotoStorage
	ctx := context.Background()

	key, err := s.Upload(ctx, []byte("data"), "image/png", "sessions", "s1")
	if key != "" || err != nil {
		t.Errorf("Upload = %q, %v", key, err)
	}
	if err := s.RemovePrefix(ctx, "sessions", "s1"); err != nil {
		t.Errorf("RemovePrefix: %v", err)
	}
	keys, err := s.ListPrefix(ctx, "sessions", "s1", "photos")
	if len(keys) != 0 || err != nil {
		t.Errorf("ListPrefix = %v, %v", keys, err)
	}
	url, err := s.PresignedURL(ctx, "herobook/sessions/s1/photos/a.png", time.Minute)
	if url != "" || err != nil {
		t.Errorf("PresignedURL = %q, %v", url, err)
	}
}

func TestImageExtension(t *testing.T) {
	cases := map[string]string{
		"image/png":                ".png",
		"IMAGE/PNG":                ".png",
		"image/jpeg":               ".jpg",
		"image/webp":               ".webp",
		"image/gif":                ".gif",
		"application/octet-stream": ".bin",
		"":                         ".bin",
	}
	for contentType, want := range cases {
		if got := imageExtension(contentType); got != want {
			t.Errorf("imageExtension(%q) = %q, want %q", contentType, got, want)
		}
	}
}
