package session

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"herobook_back/hero"
)

// fakeKV is an in-memory KV with a per-value capacity limit, standing in
// for a quota-constrained store.
type fakeKV struct {
	data     map[string]string
	capacity int
	setCalls int
}

func newFakeKV(capacity int) *fakeKV {
	return &fakeKV{data: map[string]string{}, capacity: capacity}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.setCalls++
	if f.capacity > 0 && len(value) > f.capacity {
		return errors.New("quota exceeded")
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func sampleState() *State {
	st := NewState()
	st.Stage = StageCustomize
	st.Images = []Image{
		{ID: "a.png-1", DataURL: DataURL("image/png", []byte("payload-a"))},
		{ID: "b.png-2", DataURL: DataURL("image/png", []byte("payload-b"))},
	}
	st.JobID = "job_1"
	st.Customization.HeroName = "Max"
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	kv := newFakeKV(0)
	store := NewStore(kv, 0)
	ctx := context.Background()

	want := sampleState()
	store.Save(ctx, "s1", want)

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Stage != StageCustomize {
		t.Errorf("stage = %q", got.Stage)
	}
	if len(got.Images) != 2 || got.Images[0].ID != "a.png-1" {
		t.Errorf("images not round-tripped: %+v", got.Images)
	}
	if got.JobID != "job_1" || got.Customization.HeroName != "Max" {
		t.Errorf("scalar fields not round-tripped: %+v", got)
	}
}

func TestSaveDegradesToSlimPayloadOnQuota(t *testing.T) {
	// Capacity fits the slim payload but not the two fat images.
	kv := newFakeKV(400)
	store := NewStore(kv, 0)
	ctx := context.Background()

	fat := sampleState()
	fat.Images = []Image{{ID: "big", DataURL: DataURL("image/png", make([]byte, 2048))}}
	store.Save(ctx, "s1", fat)

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("slim payload should have been saved: %v", err)
	}
	if len(got.Images) != 0 {
		t.Error("slim payload must omit images")
	}
	if got.JobID != "job_1" || got.Customization.HeroName != "Max" {
		t.Errorf("slim payload must keep job id and customization: %+v", got)
	}
}

func TestSaveDropsSilentlyWhenEvenSlimFails(t *testing.T) {
	kv := newFakeKV(10)
	store := NewStore(kv, 0)
	ctx := context.Background()

	store.Save(ctx, "s1", sampleState()) // must not panic or error

	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no session after a dropped save, got %v", err)
	}
}

func TestOversizedPayloadSkipsFullWrite(t *testing.T) {
	kv := newFakeKV(0)
	store := NewStore(kv, 100) // byte ceiling below the full payload size

	store.Save(context.Background(), "s1", sampleState())

	if kv.setCalls != 1 {
		t.Errorf("expected exactly one (slim) write, got %d", kv.setCalls)
	}

	// The byte ceiling gates the full payload only; the slim retry must
	// still reach the backend.
	got, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("slim payload should have been saved: %v", err)
	}
	if len(got.Images) != 0 || got.JobID != "job_1" {
		t.Errorf("slim payload mismatch: %+v", got)
	}
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(newFakeKV(0), 0)
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadCorruptedPayloadDiscards(t *testing.T) {
	kv := newFakeKV(0)
	kv.data[sessionKeyPrefix+"s1"] = "{not json"
	store := NewStore(kv, 0)

	if _, err := store.Load(context.Background(), "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("corrupted payload should read as not-found, got %v", err)
	}
	if _, ok := kv.data[sessionKeyPrefix+"s1"]; ok {
		t.Error("corrupted payload should have been deleted")
	}
}

func TestNormalizeStageFallbacks(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*State)
		want    Stage
	}{
		{"review without images", func(st *State) { st.Stage = StageReview; st.Images = nil }, StageUpload},
		{"processing without images", func(st *State) { st.Stage = StageProcessing; st.Images = nil }, StageUpload},
		{"results without results", func(st *State) { st.Stage = StageResults; st.Results = nil }, StageDashboard},
		{"profile card without results", func(st *State) { st.Stage = StageProfileCard; st.Results = nil }, StageDashboard},
		{"landing maps to dashboard", func(st *State) { st.Stage = StageLanding }, StageDashboard},
		{"unknown stage", func(st *State) { st.Stage = "BOGUS" }, StageDashboard},
		{"comic without images", func(st *State) { st.Stage = StageComic; st.Images = nil; st.Results = &Results{} }, StageUpload},
	}

	for _, tc := range cases {
		st := NewState()
		tc.mutate(st)
		st.normalize()
		if st.Stage != tc.want {
			t.Errorf("%s: stage = %q, want %q", tc.name, st.Stage, tc.want)
		}
	}
}

func TestSaveNeverPersistsLandingStage(t *testing.T) {
	kv := newFakeKV(0)
	store := NewStore(kv, 0)
	ctx := context.Background()

	st := NewState() // StageLanding
	store.Save(ctx, "s1", st)

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Stage != StageDashboard {
		t.Errorf("stage = %q, want DASHBOARD", got.Stage)
	}
	if st.Stage != StageLanding {
		t.Error("Save must not mutate the caller's state")
	}
}

func TestImageDecode(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	img := Image{DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)}

	mime, data, err := img.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q", mime)
	}
	if string(data) != string(raw) {
		t.Error("payload mismatch")
	}

	for _, bad := range []string{"", "plainstring", "data:;base64,", "data:image/png;base64,!!!"} {
		if _, _, err := (Image{DataURL: bad}).Decode(); err == nil {
			t.Errorf("Decode(%q) should fail", bad)
		}
	}
}

func TestDefaultCustomizationSurvivesRoundTrip(t *testing.T) {
	kv := newFakeKV(0)
	store := NewStore(kv, 0)
	ctx := context.Background()

	st := NewState()
	st.Stage = StageUpload
	store.Save(ctx, "s1", st)

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Customization != hero.DefaultCustomization() {
		t.Errorf("customization = %+v", got.Customization)
	}
}
