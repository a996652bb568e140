package embed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/ai"
)

type fakeEmbedder struct {
	mu         sync.Mutex
	calls      int
	inFlight   int
	maxInUse   int
	failOnText string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInUse {
		f.maxInUse = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if f.failOnText != "" && text == f.failOnText {
		return nil, fmt.Errorf("embed failed for %q", text)
	}
	// encode the input index in the vector so ordering is checkable
	n, _ := strconv.Atoi(strings.TrimPrefix(text, "text-"))
	return []float32{float32(n)}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

var _ ai.IEmbedder = (*fakeEmbedder)(nil)

func makeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}
	return texts
}

func TestEmbedDocumentsPreservesOrder(t *testing.T) {
	fake := &fakeEmbedder{}
	o := NewOrchestrator(fake, 4, 0)
	texts := makeTexts(11)
	results, err := o.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, results, 11)
	for i, vec := range results {
		require.Equal(t, []float32{float32(i)}, vec)
	}
	require.Equal(t, 11, fake.calls)
}

func TestEmbedDocumentsBoundsConcurrency(t *testing.T) {
	fake := &fakeEmbedder{}
	o := NewOrchestrator(fake, 3, 0)
	_, err := o.EmbedDocuments(context.Background(), makeTexts(30))
	require.NoError(t, err)
	require.LessOrEqual(t, fake.maxInUse, 3)
}

func TestEmbedDocumentsFailFast(t *testing.T) {
	fake := &fakeEmbedder{failOnText: "text-7"}
	o := NewOrchestrator(fake, 5, 0)
	results, err := o.EmbedDocuments(context.Background(), makeTexts(20))
	require.Error(t, err)
	require.Nil(t, results)
}

func TestEmbedDocumentsEmptyInput(t *testing.T) {
	o := NewOrchestrator(&fakeEmbedder{}, 5, 0)
	results, err := o.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestEmbedQueryUsesQueryTask(t *testing.T) {
	fake := &fakeEmbedder{}
	o := NewOrchestrator(fake, 5, 0)
	vec, err := o.EmbedQuery(context.Background(), "text-3")
	require.NoError(t, err)
	require.Equal(t, []float32{3}, vec)
}
