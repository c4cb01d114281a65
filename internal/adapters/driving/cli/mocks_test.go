package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/loaders/builtin"
)

type fakeIngest struct {
	report *domain.IngestReport
	err    error
	paths  []string
	opts   driving.IngestOptions
	calls  int
}

func (f *fakeIngest) Ingest(_ context.Context, paths []string, opts driving.IngestOptions) (*domain.IngestReport, error) {
	f.calls++
	f.paths = append(f.paths, paths...)
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &domain.IngestReport{Files: len(paths), Documents: len(paths), Chunks: len(paths)}, nil
}

type fakeRetrieval struct {
	hits  domain.RetrievalResult
	err   error
	query string
	k     int
}

func (f *fakeRetrieval) Retrieve(_ context.Context, query string, k int) (domain.RetrievalResult, error) {
	f.query, f.k = query, k
	return f.hits, f.err
}

type fakeAnswer struct {
	answer   *domain.Answer
	err      error
	question string
	k        int
}

func (f *fakeAnswer) Answer(_ context.Context, question string, k int) (*domain.Answer, error) {
	f.question, f.k = question, k
	return f.answer, f.err
}

type fakeIndex struct {
	info  domain.IndexInfo
	saves int
	err   error
}

func (f *fakeIndex) Info() domain.IndexInfo { return f.info }

func (f *fakeIndex) Save(_ context.Context) error {
	f.saves++
	return f.err
}

// testApp is what a command sees when run under setupTestApp.
type testApp struct {
	ingest    *fakeIngest
	retrieval *fakeRetrieval
	answer    *fakeAnswer
	index     *fakeIndex
	opts      appOptions
	closed    bool
}

// setupTestApp replaces openApp with fakes and resets flags afterwards.
func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	ta := &testApp{
		ingest:    &fakeIngest{},
		retrieval: &fakeRetrieval{},
		answer:    &fakeAnswer{answer: &domain.Answer{Text: "An answer."}},
		index:     &fakeIndex{info: domain.IndexInfo{Path: "test.db", Metric: domain.MetricCosine}},
	}

	loaders := services.NewLoaderRegistry()
	builtin.RegisterDefaults(loaders)

	original := openApp
	openApp = func(_ context.Context, opts appOptions) (*app, error) {
		ta.opts = opts
		return &app{
			cfg:       domain.DefaultConfig(),
			loaders:   loaders,
			ingest:    ta.ingest,
			retrieval: ta.retrieval,
			answer:    ta.answer,
			index:     ta.index,
			closers:   []func() error{func() error { ta.closed = true; return nil }},
		}, nil
	}

	t.Cleanup(func() {
		openApp = original
		resetFlags()
	})
	return ta
}

func resetFlags() {
	verbose = false
	configPath = ""
	ingestIndex, ingestLenient, ingestWatch = "", false, false
	askK, askFiles, askIndex, askJSON = 0, nil, "", false
	searchK, searchIndex, searchJSON = 0, "", false
	indexPath, indexJSON = "", false
	configForce = false
	mcpIndex = ""
	rootCmd.SetArgs(nil)
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return buf.String(), err
}

func testChunk(id, source string, meta map[string]string) domain.Chunk {
	m := map[string]string{domain.MetaSource: source}
	for k, v := range meta {
		m[k] = v
	}
	return domain.Chunk{ID: id, DocumentID: "doc-" + id, Content: "content of " + id, Metadata: m}
}
