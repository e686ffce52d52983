package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/internal/embedding"
)

type fakeSearcher struct {
	results []embedding.SearchResult
	err     error
	lastN   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, n int) ([]embedding.SearchResult, error) {
	f.lastN = n
	return f.results, f.err
}

type fakeCompleter struct {
	system string
	prompt string
	reply  string
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.system = system
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeCompleter) Model() string { return "fake" }

func TestAskBuildsContextAndSources(t *testing.T) {
	searcher := &fakeSearcher{results: []embedding.SearchResult{
		{Document: "chunk one", Metadata: map[string]any{"title": "Doc A"}},
		{Document: "chunk two", Metadata: map[string]any{"title": "Doc B"}},
		{Document: "chunk three", Metadata: map[string]any{"title": "Doc A"}},
	}}
	gen := &fakeCompleter{reply: "The answer."}
	engine := New(gen, searcher)

	ans, err := engine.Ask(context.Background(), "what happened?", 0)
	require.NoError(t, err)

	assert.Equal(t, "The answer.", ans.Answer)
	// Distinct titles, first-seen order.
	assert.Equal(t, []string{"Doc A", "Doc B"}, ans.Sources)
	assert.Equal(t, DefaultChunks, searcher.lastN)

	assert.Contains(t, gen.prompt, "[1] Doc A:\nchunk one")
	assert.Contains(t, gen.prompt, "[2] Doc B:\nchunk two")
	assert.Contains(t, gen.prompt, "Question: what happened?")
	assert.Contains(t, gen.system, "personal knowledge base")
}

func TestAskNoResults(t *testing.T) {
	gen := &fakeCompleter{reply: "should not be called"}
	engine := New(gen, &fakeSearcher{})

	ans, err := engine.Ask(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Equal(t, NoResultsAnswer, ans.Answer)
	assert.Empty(t, ans.Sources)
	assert.Zero(t, gen.calls)
}

func TestAskUntitledChunks(t *testing.T) {
	searcher := &fakeSearcher{results: []embedding.SearchResult{
		{Document: "orphan chunk", Metadata: map[string]any{}},
	}}
	gen := &fakeCompleter{reply: "ok"}
	engine := New(gen, searcher)

	ans, err := engine.Ask(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Unknown"}, ans.Sources)
}

func TestAskSearchError(t *testing.T) {
	engine := New(&fakeCompleter{}, &fakeSearcher{err: errors.New("store closed")})
	_, err := engine.Ask(context.Background(), "q", 3)
	assert.ErrorContains(t, err, "store closed")
}

func TestAskCompleteError(t *testing.T) {
	searcher := &fakeSearcher{results: []embedding.SearchResult{
		{Document: "chunk", Metadata: map[string]any{"title": "T"}},
	}}
	engine := New(&fakeCompleter{err: errors.New("model offline")}, searcher)
	_, err := engine.Ask(context.Background(), "q", 3)
	assert.ErrorContains(t, err, "model offline")
}
