package vision

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ShivaTri14/nagar-seva-ai/internal/config"
	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

var testImage = models.Image{ID: "img-1", Name: "peel.jpg", MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   models.WasteAnalysisResult
		want models.Classification
	}{
		{
			name: "organic",
			in:   models.WasteAnalysisResult{Category: "organic", SubTypes: []string{"banana peel", " "}, Confidence: 0.91},
			want: models.Classification{BinType: models.BinGreen, WasteType: models.WasteDecomposable, DetectedIssue: "banana peel", SubTypes: []string{"banana peel"}, Confidence: 0.91},
		},
		{
			name: "recyclable",
			in:   models.WasteAnalysisResult{Category: "Recyclable", SubTypes: []string{"pet bottle", "cap"}, Confidence: 0.8},
			want: models.Classification{BinType: models.BinBlue, WasteType: models.WasteNonDecomposable, DetectedIssue: "pet bottle, cap", SubTypes: []string{"pet bottle", "cap"}, Confidence: 0.8},
		},
		{
			name: "solid without sub types",
			in:   models.WasteAnalysisResult{Category: "solid", Confidence: 1.4},
			want: models.Classification{BinType: models.BinBlue, WasteType: models.WasteNonDecomposable, DetectedIssue: "solid waste", Confidence: 1},
		},
		{
			name: "anything else is unknown",
			in:   models.WasteAnalysisResult{Category: "hazardous", Confidence: -0.3},
			want: models.Classification{BinType: models.BinUnknown, WasteType: models.WasteUnknown, Confidence: 0},
		},
		{
			name: "nan confidence",
			in:   models.WasteAnalysisResult{Category: "unknown", Confidence: math.NaN()},
			want: models.Classification{BinType: models.BinUnknown, WasteType: models.WasteUnknown, Confidence: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Normalize(tt.in)); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseResult(t *testing.T) {
	r, err := parseResult("Sure! Here you go:\n```json\n{\"category\": \"organic\", \"sub_types\": [\"peel\"], \"confidence\": 0.7}\n```")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOrganic, r.Category)
	assert.Equal(t, []string{"peel"}, r.SubTypes)
	assert.InDelta(t, 0.7, r.Confidence, 1e-9)

	for _, bad := range []string{"no json here", "{not json}", `{"confidence": 0.5}`, "} backwards {"} {
		_, err := parseResult(bad)
		assert.ErrorIs(t, err, ErrInvalidResult, bad)
	}
}

func TestAdapterAnalyze(t *testing.T) {
	a := NewAdapter(ClassifierFunc(func(ctx context.Context, image models.Image) (*models.WasteAnalysisResult, error) {
		assert.Equal(t, "img-1", image.ID)
		return &models.WasteAnalysisResult{Category: "organic", SubTypes: []string{"tea leaves"}, Confidence: 0.66}, nil
	}), time.Second, zaptest.NewLogger(t))

	c, err := a.Analyze(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, models.BinGreen, c.BinType)
	assert.Equal(t, "tea leaves", c.DetectedIssue)
}

func TestAdapterTimeout(t *testing.T) {
	a := NewAdapter(ClassifierFunc(func(ctx context.Context, image models.Image) (*models.WasteAnalysisResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 20*time.Millisecond, nil)

	_, err := a.Analyze(context.Background(), testImage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdapterErrors(t *testing.T) {
	a := NewAdapter(nil, time.Second, nil)
	_, err := a.Analyze(context.Background(), testImage)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = a.Analyze(context.Background(), models.Image{MIMEType: "image/png"})
	assert.ErrorIs(t, err, ErrInvalidResult)

	nilResult := NewAdapter(ClassifierFunc(func(ctx context.Context, image models.Image) (*models.WasteAnalysisResult, error) {
		return nil, nil
	}), time.Second, nil)
	_, err = nilResult.Analyze(context.Background(), testImage)
	assert.ErrorIs(t, err, ErrInvalidResult)
}

type fakeCompletions struct {
	params  openai.ChatCompletionNewParams
	content string
	err     error
}

func (f *fakeCompletions) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.params = body
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Content: f.content},
		}},
	}, nil
}

func TestOpenAIClassifier(t *testing.T) {
	fake := &fakeCompletions{content: `{"category":"recyclable","sub_types":["newspaper"],"confidence":0.83}`}
	o := &OpenAIClassifier{completions: fake, model: "gpt-4o-mini"}

	r, err := o.Classify(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryRecyclable, r.Category)
	assert.Equal(t, openai.ChatModel("gpt-4o-mini"), fake.params.Model)
	assert.Len(t, fake.params.Messages, 2)

	fake.err = errors.New("rate limited")
	_, err = o.Classify(context.Background(), testImage)
	assert.ErrorContains(t, err, "rate limited")
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,/9j/", dataURL(testImage))
}

func TestHTTPClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req httpClassifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testImage.Data, req.Data)
		assert.Equal(t, "image/jpeg", req.MIMEType)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"category":"solid","sub_types":["thermocol"],"confidence":0.5}`))
	}))
	defer srv.Close()

	h := NewHTTPClassifier(srv.URL, time.Second)
	r, err := h.Classify(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, models.CategorySolid, r.Category)
	assert.Equal(t, []string{"thermocol"}, r.SubTypes)
}

func TestHTTPClassifierStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 500), http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPClassifier(srv.URL, time.Second).Classify(context.Background(), testImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Less(t, len(err.Error()), 300)
}

func TestNewClassifierFromConfig(t *testing.T) {
	c, err := NewClassifierFromConfig(&config.Config{VisionProvider: config.VisionNone})
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), testImage)
	assert.ErrorIs(t, err, ErrUnavailable)

	c, err = NewClassifierFromConfig(&config.Config{VisionProvider: config.VisionOpenAI, OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClassifier{}, c)

	c, err = NewClassifierFromConfig(&config.Config{VisionProvider: config.VisionHTTP, VisionURL: "http://vision.local", VisionTimeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &HTTPClassifier{}, c)

	_, err = NewClassifierFromConfig(&config.Config{VisionProvider: "gemini"})
	assert.Error(t, err)
}
