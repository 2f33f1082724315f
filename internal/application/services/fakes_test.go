package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand"
	"mime/multipart"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/domain/alias"
	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/domain/format"
	"file-upload-api/internal/infrastructure/imaging"
	"file-upload-api/internal/infrastructure/metrics"
	"file-upload-api/internal/infrastructure/mq"
)

var errBroken = errors.New("formatter always fails")

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *memStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrBlobNotFound, key)
	}
	return append([]byte(nil), b...), nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	b, err := s.Read(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), nil
}

func (s *memStore) Write(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type memRepo struct {
	mu    sync.Mutex
	next  int64
	files map[int64]*file.File
}

func newMemRepo() *memRepo { return &memRepo{files: map[int64]*file.File{}} }

func (r *memRepo) NextID(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return r.next, nil
}

func (r *memRepo) Create(ctx context.Context, f *file.File) (*file.File, error) {
	if f.ID == 0 {
		id, _ := r.NextID(ctx)
		f.ID = id
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	r.files[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) add(f *file.File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.files[f.ID] = &cp
	if f.ID > r.next {
		r.next = f.ID
	}
}

func (r *memRepo) FindByID(_ context.Context, id int64) (*file.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (r *memRepo) Find(_ context.Context, q file.Query) (file.Files, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out file.Files
	for _, f := range r.files {
		if matchQuery(q, f, now) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if q.OrderByPriority {
			return lessByPriority(out[i], out[j])
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memRepo) MarkDeleted(_ context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return false, nil
	}
	return f.MarkDeleted(at), nil
}

func (r *memRepo) Confirm(_ context.Context, aliasName string, ownerID int64, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		f, ok := r.files[id]
		if !ok || f.Alias != aliasName || f.Deleted || (f.OwnerID != nil && *f.OwnerID != ownerID) {
			continue
		}
		o := ownerID
		f.OwnerID = &o
		f.Confirmed = true
		n++
	}
	return n, nil
}

// matchQuery applies q to a stored record the way the SQL builder does, now
// anchors MaxAge.
func matchQuery(q file.Query, f *file.File, now time.Time) bool {
	if len(q.IDs) > 0 {
		found := false
		for _, id := range q.IDs {
			if id == f.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Alias != "" && f.Alias != q.Alias {
		return false
	}
	if q.OwnerID != nil {
		switch {
		case f.OwnerID != nil && *f.OwnerID == *q.OwnerID:
		case f.OwnerID == nil && q.IncludeNoOwn:
		default:
			return false
		}
	}
	if q.Confirmed != nil && f.Confirmed != *q.Confirmed {
		return false
	}
	if q.Deleted != nil && f.Deleted != *q.Deleted {
		return false
	}
	if q.MaxAge > 0 && !f.Confirmed && !f.UpdatedAt.After(now.Add(-q.MaxAge)) {
		return false
	}
	return true
}

// lessByPriority is ORDER BY priority ASC NULLS LAST, id ASC.
func lessByPriority(a, b *file.File) bool {
	switch {
	case a.Priority == nil && b.Priority == nil:
		return a.ID < b.ID
	case a.Priority == nil:
		return false
	case b.Priority == nil:
		return true
	case *a.Priority == *b.Priority:
		return a.ID < b.ID
	default:
		return *a.Priority < *b.Priority
	}
}

// blockingStore parks content reads until release is closed or the read
// context ends. entered is closed by the first read.
type blockingStore struct {
	*memStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingStore(inner *memStore) *blockingStore {
	return &blockingStore{memStore: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.memStore.Read(ctx, key)
}

// countingStore counts cache lookups so tests know a request reached the miss path.
type countingStore struct {
	*memStore
	reads atomic.Int64
}

func (s *countingStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.reads.Add(1)
	return s.memStore.Read(ctx, key)
}

type FakeOwners struct {
	OwnerExistsFunc func(ctx context.Context, owner string, id int64) (bool, error)
	calls           int
}

func (f *FakeOwners) OwnerExists(ctx context.Context, owner string, id int64) (bool, error) {
	f.calls++
	return f.OwnerExistsFunc(ctx, owner, id)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (p *fakePublisher) Publish(_ context.Context, e mq.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// probe counts transform calls and remembers the effective specs.
type probe struct {
	mu    sync.Mutex
	calls int
	specs []format.Spec
}

func (p *probe) factory(s format.Spec) (format.Formatter, error) {
	inner, err := imaging.NewResize(s)
	if err != nil {
		return nil, err
	}
	return format.FormatterFunc(func(content []byte) ([]byte, error) {
		p.mu.Lock()
		p.calls++
		p.specs = append(p.specs, s)
		p.mu.Unlock()
		return inner.Apply(content)
	}), nil
}

func (p *probe) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type env struct {
	deps    Deps
	content *memStore
	cache   *memStore
	repo    *memRepo
	probe   *probe
	owners  *FakeOwners
	events  *fakePublisher
	manager *FileManager
}

func newEnv(t *testing.T, silent bool) *env {
	t.Helper()

	p := &probe{}
	formats, err := format.NewRegistry(
		[]format.Spec{
			{Name: "broken", Kind: "broken", Target: file.TypeFile},
			{Name: "thumb", Kind: format.KindResize, Target: file.TypeImage, Width: 32, Height: 32, Version: "1"},
		},
		map[format.Kind]format.Factory{
			format.KindResize: p.factory,
			"broken": func(format.Spec) (format.Formatter, error) {
				return format.FormatterFunc(func([]byte) ([]byte, error) { return nil, errBroken }), nil
			},
		},
	)
	require.NoError(t, err)

	aliases, err := alias.NewRegistry([]alias.Policy{
		{Name: "avatar", Owner: "users", Formatters: []string{"broken", "thumb"}},
		{Name: "docs"},
	}, formats)
	require.NoError(t, err)

	e := &env{
		content: newMemStore(),
		cache:   newMemStore(),
		repo:    newMemRepo(),
		probe:   p,
		owners: &FakeOwners{OwnerExistsFunc: func(context.Context, string, int64) (bool, error) {
			return true, nil
		}},
		events: &fakePublisher{},
	}
	e.deps = Deps{
		Content: e.content,
		Cache:   e.cache,
		Aliases: aliases,
		Formats: formats,
		Config: ManagerConfig{
			UploadBaseURL:    "/upload",
			CacheBaseURL:     "/cache",
			DownloadURL:      "/get",
			FilesBaseURL:     "/files",
			PublicURL:        "https://files.example.com",
			NotFoundImageURL: "/img/404.png",
			NotFoundFileURL:  "/file/404",
			Silent:           silent,
			AppendTimestamp:  true,
		},
		Logger:  zap.NewNop(),
		Counter: metrics.NewTestCounter(),
	}
	e.manager = NewFileManager(e.deps)

	return e
}

// stored puts a saved record and its original content in place.
func (e *env) stored(t *testing.T, f *file.File, content []byte) *file.File {
	t.Helper()
	policy, err := e.deps.Aliases.Resolve(f.Alias)
	require.NoError(t, err)
	e.content.put(policy.ContentKey(f), content)
	e.repo.add(f)
	return f
}

func (e *env) upload() *Upload {
	return NewUpload(e.deps, e.repo, e.owners, e.events, nil, 1<<20)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	rnd := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(rnd.Intn(256)), G: uint8(rnd.Intn(256)), B: uint8(rnd.Intn(256)), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.Len(t, form.File["file"], 1)

	return form.File["file"][0]
}

func ptr[T any](v T) *T { return &v }
