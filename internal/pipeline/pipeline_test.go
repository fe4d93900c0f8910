package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-bot/internal/compress"
	"github.com/ytget/yt-bot/internal/download"
	"github.com/ytget/yt-bot/internal/model"
)

const videoURL = "https://www.youtube.com/watch?v=v1"

func TestSingleItemFitsBudget(t *testing.T) {
	h := newHarness(t, 1000)
	h.ext.meta = singleMeta("Clip")
	h.ext.sizes = map[string]int{videoURL: 500}

	res := h.handle(videoURL)

	require.NoError(t, res.Err)
	assert.Equal(t, model.MediaKindSingle, res.Kind)
	assert.Equal(t, model.OutcomeDelivered, res.Outcome.Kind)
	assert.False(t, res.Failed())

	calls := h.sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "media", calls[0].Kind)
	assert.Equal(t, int64(500), calls[0].Size)
	assert.Equal(t, "🎬 Clip — 500.0B", calls[0].Caption)
	assert.Empty(t, h.tr.calls)

	assert.Equal(t, 1, h.rep.clears)
	assert.Equal(t, []string{MsgPreparing}, h.rep.posts)
	requireEmptyDir(t, h.dir)
}

func TestSingleItemDownscaledToFirstFittingRung(t *testing.T) {
	h := newHarness(t, 2000)
	h.ext.meta = singleMeta("Big")
	h.ext.sizes = map[string]int{videoURL: 3000}
	h.tr.sizes = map[int]int{1080: 2500, 720: 1800, 480: 900}

	res := h.handle(videoURL)

	require.Equal(t, model.OutcomeDelivered, res.Outcome.Kind)
	assert.Equal(t, []int{1080, 720}, h.tr.calls)

	calls := h.sink.Calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasSuffix(calls[0].Path, "-720p.mp4"), calls[0].Path)
	assert.Equal(t, int64(1800), calls[0].Size)
	requireEmptyDir(t, h.dir)
}

func TestProbeAuthFailure(t *testing.T) {
	h := newHarness(t, 1000)
	h.ext.probeErr = &download.ExtractionError{
		Op:      "probe",
		URL:     videoURL,
		Message: "ERROR: [youtube] v1: Sign in to confirm you're not a bot",
	}

	res := h.handle(videoURL)

	require.Error(t, res.Err)
	assert.True(t, res.Failed())
	assert.Equal(t, KindAuthRequired, Kind(res.Err))
	assert.Equal(t, MsgAuthProbe, h.rep.last())
	assert.Empty(t, h.ext.fetched)
	assert.Empty(t, h.sink.Calls())
	require.Len(t, h.notifier.texts, 1)
	assert.Contains(t, h.notifier.texts[0], videoURL)
	requireEmptyDir(t, h.dir)
}

func TestProbeFailure(t *testing.T) {
	h := newHarness(t, 1000)
	h.ext.probeErr = &download.ExtractionError{Op: "probe", Message: "ERROR: Unsupported URL"}

	res := h.handle(videoURL)

	require.Error(t, res.Err)
	assert.Equal(t, "❌ Failed to read link: ERROR: Unsupported URL", h.rep.last())
	assert.Empty(t, h.notifier.texts)
}

func TestCollectionPartialFailure(t *testing.T) {
	h := newHarness(t, 1000)
	entries := make([]model.ItemDescriptor, 5)
	for i := range entries {
		entries[i] = model.ItemDescriptor{ID: fmt.Sprintf("id%d", i+1), Title: fmt.Sprintf("Part %d", i+1)}
	}
	h.ext.meta = model.MediaMetadata{Title: "Series", Kind: model.MediaKindCollection, Entries: entries}
	third := fmt.Sprintf(model.WatchURLTemplate, "id3")
	h.ext.fetchErr = map[string]error{
		third: &download.ExtractionError{Op: "fetch", Message: "ERROR: Video unavailable"},
	}

	res := h.handle("https://www.youtube.com/playlist?list=PL1")

	require.NoError(t, res.Err)
	require.NotNil(t, res.Summary)
	s := res.Summary
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 4, s.Processed)
	require.Len(t, s.Outcomes, 5)
	assert.Equal(t, model.OutcomeFailed, s.Outcomes[2].Kind)
	assert.Equal(t, "ERROR: Video unavailable", s.Outcomes[2].Message())
	assert.Equal(t, third, s.Outcomes[2].URL)
	for _, i := range []int{0, 1, 3, 4} {
		assert.Equal(t, model.OutcomeDelivered, s.Outcomes[i].Kind, "entry %d", i+1)
	}

	// listed order is preserved
	var want []string
	for i := 1; i <= 5; i++ {
		want = append(want, fmt.Sprintf(model.WatchURLTemplate, fmt.Sprintf("id%d", i)))
	}
	assert.Equal(t, want, h.ext.fetched)

	assert.Len(t, h.sink.Calls(), 4)
	assert.Contains(t, h.rep.posts, "⚠️ Failed to download entry: ERROR: Video unavailable")
	assert.Equal(t, "✅ Playlist finished. 4/5 processed. 1 failed.", h.rep.last())
	requireEmptyDir(t, h.dir)
}

func TestCollectionUnresolvedEntries(t *testing.T) {
	h := newHarness(t, 1000)
	h.ext.meta = model.MediaMetadata{
		Title: "Mix",
		Kind:  model.MediaKindCollection,
		Entries: []model.ItemDescriptor{
			{ID: "a"},
			{},
			{WebpageURL: "https://www.youtube.com/watch?v=c"},
		},
	}

	res := h.handle("https://www.youtube.com/playlist?list=PL2")

	s := res.Summary
	require.NotNil(t, s)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 1, s.Unresolved)
	assert.Len(t, s.Outcomes, 2)
	assert.LessOrEqual(t, s.Processed, s.Total)
	assert.Equal(t, s.Total, s.Attempted()+s.Unresolved)
	assert.Equal(t, "✅ Playlist finished. 2/3 processed. 1 without a link.", h.rep.last())
}

func TestCollectionWithInterval(t *testing.T) {
	h := newHarness(t, 1000)
	h.runner.controller = NewController(h.items, 1)
	h.ext.meta = model.MediaMetadata{
		Kind:    model.MediaKindCollection,
		Entries: []model.ItemDescriptor{{ID: "a"}, {ID: "b"}},
	}

	res := h.handle("https://www.youtube.com/playlist?list=PL3")
	require.NotNil(t, res.Summary)
	assert.Equal(t, 2, res.Summary.Processed)
}

func TestNoTranscoderOversizedArtifact(t *testing.T) {
	h := newHarness(t, 1000)
	h.tr.available = false
	h.ext.meta = singleMeta("Huge")
	h.ext.sizes = map[string]int{videoURL: 5000}

	res := h.handle(videoURL)

	assert.Equal(t, model.OutcomeSkipped, res.Outcome.Kind)
	assert.Contains(t, res.Outcome.Reason, "no transcoder")
	assert.Empty(t, h.tr.calls)
	assert.Empty(t, h.sink.Calls())
	assert.Equal(t, res.Outcome.Reason, h.rep.last())
	requireEmptyDir(t, h.dir)
}

func TestLadderExhaustedIsSkipped(t *testing.T) {
	h := newHarness(t, 100)
	h.ext.meta = singleMeta("Huge")
	h.ext.sizes = map[string]int{videoURL: 5000}
	h.tr.sizes = map[int]int{1080: 4000, 720: 3000, 480: 2000, 360: 1000, 240: 500}

	res := h.handle(videoURL)

	assert.Equal(t, model.OutcomeSkipped, res.Outcome.Kind)
	assert.Equal(t, compress.DefaultHeights, h.tr.calls)
	assert.Empty(t, h.sink.Calls())
	requireEmptyDir(t, h.dir)
}

func TestDeliveryFallback(t *testing.T) {
	t.Run("rejected media is sent once as document", func(t *testing.T) {
		h := newHarness(t, 1000)
		h.ext.meta = singleMeta("Clip")
		h.sink.rejectMedia = true

		res := h.handle(videoURL)

		assert.Equal(t, model.OutcomeDelivered, res.Outcome.Kind)
		calls := h.sink.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, "media", calls[0].Kind)
		assert.Equal(t, "document", calls[1].Kind)
		requireEmptyDir(t, h.dir)
	})

	t.Run("failed document send fails the item", func(t *testing.T) {
		h := newHarness(t, 1000)
		h.ext.meta = singleMeta("Clip")
		h.sink.rejectMedia = true
		h.sink.failDoc = true

		res := h.handle(videoURL)

		require.Equal(t, model.OutcomeFailed, res.Outcome.Kind)
		assert.ErrorIs(t, res.Outcome.Err, ErrDeliveryFailed)
		assert.Equal(t, KindDeliveryRejected, Kind(res.Outcome.Err))
		assert.Len(t, h.sink.Calls(), 2)
		assert.True(t, strings.HasPrefix(h.rep.last(), "❌ Error while downloading:"))
		requireEmptyDir(t, h.dir)
	})
}

func TestFetchFailures(t *testing.T) {
	t.Run("sign-in wall during fetch", func(t *testing.T) {
		h := newHarness(t, 1000)
		h.ext.meta = singleMeta("Clip")
		h.ext.fetchErr = map[string]error{
			videoURL: &download.ExtractionError{Op: "fetch", Message: "ERROR: Use --cookies-from-browser or --cookies"},
		}

		res := h.handle(videoURL)

		assert.Equal(t, model.OutcomeFailed, res.Outcome.Kind)
		assert.Equal(t, MsgAuthFetch, h.rep.last())
		require.Len(t, h.notifier.texts, 1)
		requireEmptyDir(t, h.dir)
	})

	t.Run("missing artifact", func(t *testing.T) {
		h := newHarness(t, 1000)
		h.ext.meta = singleMeta("Clip")
		h.ext.fetchErr = map[string]error{
			videoURL: fmt.Errorf("%w: nothing written", model.ErrMissingArtifact),
		}

		res := h.handle(videoURL)

		assert.Equal(t, KindMissingArtifact, Kind(res.Outcome.Err))
		assert.Equal(t, MsgMissingArtifact, h.rep.last())
		requireEmptyDir(t, h.dir)
	})
}

func TestPanicIsContained(t *testing.T) {
	h := newHarness(t, 1000)
	h.ext.meta = singleMeta("Clip")
	h.sink.panicOnSend = true

	res := h.handle(videoURL)

	require.Equal(t, model.OutcomeFailed, res.Outcome.Kind)
	assert.Contains(t, res.Outcome.Err.Error(), "sink exploded")
	requireEmptyDir(t, h.dir)
}

func TestLowDiskPreflight(t *testing.T) {
	h := newHarness(t, 1000)
	h.items.minFreeDisk = 1 << 30
	h.items.freeBytes = func(ctx context.Context, dir string) (uint64, error) {
		return 1 << 20, nil
	}
	h.ext.meta = singleMeta("Clip")

	res := h.handle(videoURL)

	require.Equal(t, model.OutcomeFailed, res.Outcome.Kind)
	assert.ErrorIs(t, res.Outcome.Err, ErrLowDisk)
	assert.Empty(t, h.ext.fetched)
}

func TestConcurrentItemsNeverShareArtifactPaths(t *testing.T) {
	h := newHarness(t, 1000)
	h.ext.meta = singleMeta("Same Title")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.runner.Handle(context.Background(),
				model.NewMediaRequest(videoURL, model.QualityAuto),
				Session{Sink: &fakeSink{}, Reporter: &fakeReporter{}})
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range h.ext.paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}
	assert.Len(t, seen, 8)
	requireEmptyDir(t, h.dir)
}

func TestItemStatusTransitions(t *testing.T) {
	h := newHarness(t, 2000)
	h.ext.sizes = map[string]int{videoURL: 3000}
	h.tr.sizes = map[int]int{1080: 1000}
	status := NewStatusLine(h.rep)

	out := h.items.Run(context.Background(), ItemRequest{
		URL:     videoURL,
		Title:   "Clip",
		Options: download.NewOptions(model.QualityAuto, h.dir, ""),
		Index:   2,
		Total:   3,
	}, h.sink, status)

	require.Equal(t, model.OutcomeDelivered, out.Kind)
	texts := append(append([]string{}, h.rep.posts...), h.rep.updates...)
	assert.Equal(t, []string{
		"📥 (2/3) downloading...",
		"📥 (2/3) downloading... 50%",
		"📥 (2/3) downloading... 100%",
		"(2/3) " + MsgCheckingSize,
		"(2/3) 🗜 Re-encoding to 1080p...",
		"(2/3) 🗜 Re-encoding to 1080p... 40%",
		"(2/3) 🗜 Re-encoding to 1080p... 100%",
		"(2/3) " + MsgUploading,
	}, texts)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"auth", &download.ExtractionError{Message: "Sign in to confirm your age"}, KindAuthRequired},
		{"extraction", &download.ExtractionError{Message: "HTTP Error 404"}, KindExtraction},
		{"no transcoder", fmt.Errorf("%w: %w", compress.ErrSizeExceeded, compress.ErrTranscoderUnavailable), KindTranscodeUnavailable},
		{"too large", fmt.Errorf("%w: %w", compress.ErrSizeExceeded, compress.ErrLadderExhausted), KindSizeExceeded},
		{"rejected", fmt.Errorf("%w: codec", ErrDeliveryRejected), KindDeliveryRejected},
		{"missing", model.ErrMissingArtifact, KindMissingArtifact},
		{"disk", ErrLowDisk, KindLowDisk},
		{"canceled", context.Canceled, KindCanceled},
		{"other", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestStatusLine(t *testing.T) {
	rep := &fakeReporter{}
	s := NewStatusLine(rep)
	ctx := context.Background()

	s.Set(ctx, "one")
	s.Set(ctx, "one")
	s.Set(ctx, "two")
	s.Set(ctx, "two")
	assert.Equal(t, []string{"one"}, rep.posts)
	assert.Equal(t, []string{"two"}, rep.updates)
	assert.Equal(t, "two", s.Text())

	s.Clear(ctx)
	s.Clear(ctx)
	s.Set(ctx, "three")
	assert.Equal(t, 1, rep.clears)
	assert.Equal(t, []string{"two"}, rep.updates)

	var nilLine *StatusLine
	nilLine.Set(ctx, "ignored")
	NewStatusLine(nil).Set(ctx, "ignored")
}

func TestThrottle(t *testing.T) {
	var got []int
	fn := throttle(func(p int) { got = append(got, p) })
	for _, p := range []int{0, 3, 9, 10, 15, 21, 99, 100, 100} {
		fn(p)
	}
	assert.Equal(t, []int{0, 10, 21, 99, 100, 100}, got)
}

func TestDirSink(t *testing.T) {
	src := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video"), 0o644))
	out := filepath.Join(t.TempDir(), "out")

	sink := NewDirSink(out)
	require.NoError(t, sink.SendMedia(context.Background(), src, "caption"))

	data, err := os.ReadFile(filepath.Join(out, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))
	assert.FileExists(t, src)
}

func TestLogReporter(t *testing.T) {
	r := NewLogReporter()
	h1, err := r.PostStatus(context.Background(), "a")
	require.NoError(t, err)
	h2, err := r.PostStatus(context.Background(), "b")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.NoError(t, r.UpdateStatus(context.Background(), h1, "c"))
	assert.NoError(t, r.ClearStatus(context.Background(), h1))
}
