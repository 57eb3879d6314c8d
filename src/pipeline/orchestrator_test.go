package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompressor struct {
	oversized bool
	failWith  error
	calls     []compressCall
}

type compressCall struct {
	uri          string
	maxDimension int
	quality      float64
}

func (f *fakeCompressor) ShouldCompress(Asset, int64) bool { return f.oversized }

func (f *fakeCompressor) Compress(asset Asset, maxDimension int, quality float64) (Asset, error) {
	f.calls = append(f.calls, compressCall{uri: asset.URI, maxDimension: maxDimension, quality: quality})
	if f.failWith != nil {
		return Asset{}, f.failWith
	}
	return Asset{URI: fmt.Sprintf("%s.compressed-%d", asset.URI, maxDimension)}, nil
}

type fakeRecognizer struct {
	results []submitResult
	seen    []string
}

type submitResult struct {
	items []FoodItem
	err   error
}

func (f *fakeRecognizer) Submit(_ context.Context, asset Asset, _ SubmitOptions) ([]FoodItem, error) {
	f.seen = append(f.seen, asset.URI)
	result := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return result.items, result.err
}

func testPolicy() Policy {
	p := DefaultPolicy()
	p.Timeout = time.Second
	return p
}

var apple = FoodItem{Name: "Apple", Kcal: 52}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	original := Asset{URI: "file:///capture.jpg"}

	t.Run("SmallImageSkipsCompression", func(t *testing.T) {
		compressor := &fakeCompressor{oversized: false}
		recognizer := &fakeRecognizer{results: []submitResult{{items: []FoodItem{apple}}}}

		outcome, err := NewOrchestrator(compressor, recognizer, testPolicy()).Analyze(ctx, original, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusIdentified, outcome.Status)
		assert.Equal(t, 1, outcome.Attempts)
		assert.Empty(t, compressor.calls)
		assert.Equal(t, []string{original.URI}, recognizer.seen)
	})

	t.Run("LargeImageCompressedBeforeUpload", func(t *testing.T) {
		compressor := &fakeCompressor{oversized: true}
		recognizer := &fakeRecognizer{results: []submitResult{{items: []FoodItem{apple}}}}

		outcome, err := NewOrchestrator(compressor, recognizer, testPolicy()).Analyze(ctx, original, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusIdentified, outcome.Status)
		require.Len(t, compressor.calls, 1)
		assert.Equal(t, compressCall{uri: original.URI, maxDimension: 800, quality: 0.7}, compressor.calls[0])
		assert.Equal(t, []string{original.URI + ".compressed-800"}, recognizer.seen)
	})

	t.Run("PayloadTooLargeRetriesFromOriginal", func(t *testing.T) {
		compressor := &fakeCompressor{oversized: true}
		recognizer := &fakeRecognizer{results: []submitResult{
			{err: &UploadError{Kind: PayloadTooLarge, Status: 413}},
			{items: []FoodItem{apple}},
		}}

		outcome, err := NewOrchestrator(compressor, recognizer, testPolicy()).Analyze(ctx, original, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusIdentified, outcome.Status)
		assert.Equal(t, 2, outcome.Attempts)

		// second compression starts over from the capture, not the first output
		require.Len(t, compressor.calls, 2)
		assert.Equal(t, compressCall{uri: original.URI, maxDimension: 800, quality: 0.7}, compressor.calls[0])
		assert.Equal(t, compressCall{uri: original.URI, maxDimension: 600, quality: 0.4}, compressor.calls[1])
		assert.Equal(t, []string{
			original.URI + ".compressed-800",
			original.URI + ".compressed-600",
		}, recognizer.seen)
	})

	t.Run("ServerTimeoutRetries", func(t *testing.T) {
		compressor := &fakeCompressor{}
		recognizer := &fakeRecognizer{results: []submitResult{
			{err: &UploadError{Kind: ServerTimeout, Status: 504}},
			{items: []FoodItem{apple}},
		}}

		outcome, err := NewOrchestrator(compressor, recognizer, testPolicy()).Analyze(ctx, original, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, outcome.Attempts)
	})

	t.Run("NetworkFailureDoesNotRetry", func(t *testing.T) {
		compressor := &fakeCompressor{}
		recognizer := &fakeRecognizer{results: []submitResult{
			{err: &UploadError{Kind: NetworkUnavailable}},
		}}

		outcome, err := NewOrchestrator(compressor, recognizer, testPolicy()).Analyze(ctx, original, nil)
		require.Error(t, err)
		assert.Equal(t, 1, outcome.Attempts)
		assert.Len(t, recognizer.seen, 1)
		assert.Empty(t, compressor.calls)
	})

	t.Run("EmptyRecognitionIsTerminalNotRetried", func(t *testing.T) {
		compressor := &fakeCompressor{}
		recognizer := &fakeRecognizer{results: []submitResult{{items: []FoodItem{}}}}

		outcome, err := NewOrchestrator(compressor, recognizer, testPolicy()).Analyze(ctx, original, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusNothingIdentified, outcome.Status)
		assert.Empty(t, outcome.Items)
		assert.Len(t, recognizer.seen, 1)
	})

	t.Run("BothAttemptsExhausted", func(t *testing.T) {
		compressor := &fakeCompressor{oversized: true}
		recognizer := &fakeRecognizer{results: []submitResult{
			{err: &UploadError{Kind: PayloadTooLarge, Status: 413}},
		}}

		outcome, err := NewOrchestrator(compressor, recognizer, testPolicy()).Analyze(ctx, original, nil)
		require.Error(t, err)
		assert.Equal(t, 2, outcome.Attempts)
		assert.Contains(t, err.Error(), "even after compression")

		var uploadErr *UploadError
		require.ErrorAs(t, err, &uploadErr)
		assert.Equal(t, PayloadTooLarge, uploadErr.Kind)
	})

	t.Run("RetryCompressionFailureStopsPipeline", func(t *testing.T) {
		compressor := &fakeCompressor{failWith: &CompressionError{URI: original.URI}}
		recognizer := &fakeRecognizer{results: []submitResult{
			{err: &UploadError{Kind: ServerTimeout, Status: 504}},
		}}

		_, err := NewOrchestrator(compressor, recognizer, testPolicy()).Analyze(ctx, original, nil)
		var compErr *CompressionError
		require.ErrorAs(t, err, &compErr)
		assert.Len(t, recognizer.seen, 1)
	})
}

func TestAnalyzeProgress(t *testing.T) {
	ctx := context.Background()
	original := Asset{URI: "file:///capture.jpg"}

	collect := func() (ProgressFunc, func() []float64) {
		var mu sync.Mutex
		var values []float64
		report := func(v float64) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		}
		snapshot := func() []float64 {
			mu.Lock()
			defer mu.Unlock()
			return append([]float64(nil), values...)
		}
		return report, snapshot
	}

	t.Run("ReachesOneOnSuccess", func(t *testing.T) {
		report, snapshot := collect()
		recognizer := &fakeRecognizer{results: []submitResult{{items: []FoodItem{apple}}}}

		_, err := NewOrchestrator(&fakeCompressor{}, recognizer, testPolicy()).Analyze(ctx, original, report)
		require.NoError(t, err)

		values := snapshot()
		require.NotEmpty(t, values)
		assert.Equal(t, 1.0, values[len(values)-1])
		for i := 1; i < len(values); i++ {
			assert.GreaterOrEqual(t, values[i], values[i-1])
		}
	})

	t.Run("NeverCompletesOnFailure", func(t *testing.T) {
		report, snapshot := collect()
		recognizer := &fakeRecognizer{results: []submitResult{
			{err: &UploadError{Kind: NetworkUnavailable}},
		}}

		_, err := NewOrchestrator(&fakeCompressor{}, recognizer, testPolicy()).Analyze(ctx, original, report)
		require.Error(t, err)

		for _, v := range snapshot() {
			assert.Less(t, v, 1.0)
		}
	})

	t.Run("NeverCompletesOnEmptyResult", func(t *testing.T) {
		report, snapshot := collect()
		recognizer := &fakeRecognizer{results: []submitResult{{items: []FoodItem{}}}}

		outcome, err := NewOrchestrator(&fakeCompressor{}, recognizer, testPolicy()).Analyze(ctx, original, report)
		require.NoError(t, err)
		assert.Equal(t, StatusNothingIdentified, outcome.Status)
		for _, v := range snapshot() {
			assert.Less(t, v, 1.0)
		}
	})
}
