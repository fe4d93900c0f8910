package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-bot/internal/compress"
	"github.com/ytget/yt-bot/internal/download"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/worker"
)

type fakeExtractor struct {
	mu       sync.Mutex
	meta     model.MediaMetadata
	probeErr error
	sizes    map[string]int   // url -> artifact size
	fetchErr map[string]error // url -> error
	fetched  []string
	paths    []string
}

func (f *fakeExtractor) Probe(ctx context.Context, url string, opts download.Options) (model.MediaMetadata, error) {
	return f.meta, f.probeErr
}

func (f *fakeExtractor) Fetch(ctx context.Context, url string, opts download.Options, key string, progress download.ProgressFunc) (model.LocalArtifact, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if err := f.fetchErr[url]; err != nil {
		// leave a partial behind; the item pipeline must remove it
		_ = os.WriteFile(filepath.Join(opts.WorkDir, key+".mp4.part"), []byte("x"), 0o644)
		return model.LocalArtifact{}, err
	}

	size, ok := f.sizes[url]
	if !ok {
		size = 10
	}
	path := filepath.Join(opts.WorkDir, key+".mp4")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		return model.LocalArtifact{}, err
	}
	if progress != nil {
		progress(50)
		progress(100)
	}

	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return model.NewLocalArtifact(path, int64(size)), nil
}

type fakeTranscoder struct {
	mu        sync.Mutex
	available bool
	sizes     map[int]int
	calls     []int
}

func (f *fakeTranscoder) Available() bool { return f.available }

func (f *fakeTranscoder) Transcode(ctx context.Context, input, output string, height int, progress compress.ProgressFunc) error {
	f.mu.Lock()
	f.calls = append(f.calls, height)
	f.mu.Unlock()
	if progress != nil {
		progress(40)
		progress(100)
	}
	return os.WriteFile(output, make([]byte, f.sizes[height]), 0o644)
}

type sendCall struct {
	Kind    string
	Path    string
	Caption string
	Size    int64
}

type fakeSink struct {
	mu          sync.Mutex
	rejectMedia bool
	failDoc     bool
	panicOnSend bool
	calls       []sendCall
}

func (f *fakeSink) send(kind, path, caption string) {
	var size int64
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sendCall{Kind: kind, Path: path, Caption: caption, Size: size})
}

func (f *fakeSink) SendMedia(ctx context.Context, path, caption string) error {
	if f.panicOnSend {
		panic("sink exploded")
	}
	f.send("media", path, caption)
	if f.rejectMedia {
		return fmt.Errorf("%w: wrong container", ErrDeliveryRejected)
	}
	return nil
}

func (f *fakeSink) SendDocument(ctx context.Context, path, caption string) error {
	f.send("document", path, caption)
	if f.failDoc {
		return errors.New("upload failed")
	}
	return nil
}

func (f *fakeSink) Calls() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.calls...)
}

type fakeReporter struct {
	mu      sync.Mutex
	next    StatusHandle
	posts   []string
	updates []string
	clears  int
}

func (f *fakeReporter) PostStatus(ctx context.Context, text string) (StatusHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.posts = append(f.posts, text)
	return f.next, nil
}

func (f *fakeReporter) UpdateStatus(ctx context.Context, h StatusHandle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, text)
	return nil
}

func (f *fakeReporter) ClearStatus(ctx context.Context, h StatusHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

// last returns the most recent text written to the status message
func (f *fakeReporter) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) > 0 {
		return f.updates[len(f.updates)-1]
	}
	if len(f.posts) > 0 {
		return f.posts[0]
	}
	return ""
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeNotifier) NotifyOperator(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

type harness struct {
	dir      string
	ext      *fakeExtractor
	tr       *fakeTranscoder
	sink     *fakeSink
	rep      *fakeReporter
	notifier *fakeNotifier
	items    *ItemPipeline
	runner   *Runner
}

func newHarness(t *testing.T, budget int64) *harness {
	t.Helper()
	h := &harness{
		dir:      t.TempDir(),
		ext:      &fakeExtractor{},
		tr:       &fakeTranscoder{available: true},
		sink:     &fakeSink{},
		rep:      &fakeReporter{},
		notifier: &fakeNotifier{},
	}
	pool := worker.NewPool(2)
	h.items = NewItemPipeline(ItemConfig{
		Extractor: h.ext,
		Enforcer:  compress.NewEnforcer(compress.NewLadder(h.tr), budget),
		Pool:      pool,
	})
	h.runner = NewRunner(RunnerConfig{
		Extractor:  h.ext,
		Items:      h.items,
		Controller: NewController(h.items, 0),
		Pool:       pool,
		Notifier:   h.notifier,
		WorkDir:    h.dir,
	})
	return h
}

func (h *harness) session() Session {
	return Session{Sink: h.sink, Reporter: h.rep}
}

func (h *harness) handle(url string) Result {
	return h.runner.Handle(context.Background(), model.NewMediaRequest(url, model.QualityAuto), h.session())
}

// requireEmptyDir asserts no artifact survived the run
func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Empty(t, names)
}

func singleMeta(title string) model.MediaMetadata {
	return model.MediaMetadata{
		Title:   title,
		Kind:    model.MediaKindSingle,
		Entries: []model.ItemDescriptor{{ID: "v1", Title: title}},
	}
}
