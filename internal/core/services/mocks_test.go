package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// vectorFor counts a, b and c in text. The constant last component keeps
// every vector away from zero magnitude.
func vectorFor(text string) []float32 {
	v := []float32{0, 0, 0, 0.1}
	for _, r := range strings.ToLower(text) {
		switch r {
		case 'a':
			v[0]++
		case 'b':
			v[1]++
		case 'c':
			v[2]++
		}
	}
	return v
}

// fakeEmbedder implements driven.EmbeddingService with vectorFor.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string

	// failOn fails any batch containing a text with this substring.
	failOn string
	err    error

	delay  time.Duration
	onCall func()

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	onCall := f.onCall
	f.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if f.failOn != "" && strings.Contains(text, f.failOn) {
			return nil, f.err
		}
		out[i] = vectorFor(text)
	}
	return out, nil
}

func (f *fakeEmbedder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeEmbedder) Dimensions() int            { return 4 }
func (f *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (f *fakeEmbedder) Ping(context.Context) error { return nil }
func (f *fakeEmbedder) Close() error               { return nil }

// fakeLLM implements driven.LLMService and records prompts.
type fakeLLM struct {
	reply   string
	err     error
	prompts []string
	opts    []driven.GenerateOptions
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) ModelName() string          { return "fake-llm" }
func (f *fakeLLM) Ping(context.Context) error { return nil }
func (f *fakeLLM) Close() error               { return nil }

// fakePrompts implements driven.PromptStore.
type fakePrompts struct {
	prompts map[string]string
	err     error
}

func (f *fakePrompts) Load(name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.prompts[name], nil
}

func (f *fakePrompts) Reload() {}

// fakeRetriever implements driving.RetrievalService with a fixed result.
type fakeRetriever struct {
	result domain.RetrievalResult
	err    error
	gotK   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, k int) (domain.RetrievalResult, error) {
	f.gotK = k
	return f.result, f.err
}

// fakeIndexStore implements driven.IndexStore in memory.
type fakeIndexStore struct {
	saved map[string]driven.IndexSnapshot
	err   error
}

func (f *fakeIndexStore) Save(_ context.Context, path string, snap driven.IndexSnapshot) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]driven.IndexSnapshot{}
	}
	f.saved[path] = snap
	return nil
}

func (f *fakeIndexStore) Load(_ context.Context, path string) (driven.IndexSnapshot, error) {
	snap, ok := f.saved[path]
	if !ok {
		return driven.IndexSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

// doc builds a single-unit document loaded from path.
func doc(path, content string) domain.Document {
	return domain.Document{
		ID:       "doc-" + path,
		Content:  content,
		Metadata: map[string]string{domain.MetaSource: path},
	}
}
