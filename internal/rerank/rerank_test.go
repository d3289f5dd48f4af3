package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglabs/docsearch-mcp/pkg/types"
)

// judgeFunc adapts a function to the Judge interface for tests.
type judgeFunc func(ctx context.Context, system, user string) (string, error)

func (f judgeFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

func fixedReply(reply string) Judge {
	return judgeFunc(func(context.Context, string, string) (string, error) {
		return reply, nil
	})
}

func candidates(texts ...string) []types.ScoredChunk {
	out := make([]types.ScoredChunk, len(texts))
	for i, text := range texts {
		out[i] = types.ScoredChunk{
			Chunk: &types.ChunkRecord{Document: "d", ChunkID: i, Text: text, TotalChunks: len(texts)},
			Score: 1 - float64(i)*0.1,
		}
	}
	return out
}

func TestOverlay_Rerank(t *testing.T) {
	ctx := context.Background()
	input := candidates("alpha", "beta", "gamma")

	t.Run("reorders by judge selection", func(t *testing.T) {
		o := NewOverlay(fixedReply("3, 1"), nil)
		out := o.Rerank(ctx, "q", input, 0)
		require.Len(t, out, 2)
		assert.Equal(t, "gamma", out[0].Chunk.Text)
		assert.Equal(t, "alpha", out[1].Chunk.Text)
	})

	t.Run("zero sentinel empties the result", func(t *testing.T) {
		o := NewOverlay(fixedReply("0"), nil)
		assert.Empty(t, o.Rerank(ctx, "q", input, 0))
	})

	t.Run("zero anywhere wins over other numbers", func(t *testing.T) {
		o := NewOverlay(fixedReply("2, 0, 1"), nil)
		assert.Empty(t, o.Rerank(ctx, "q", input, 0))
	})

	t.Run("out of range numbers are ignored", func(t *testing.T) {
		o := NewOverlay(fixedReply("7, 2, 42"), nil)
		out := o.Rerank(ctx, "q", input, 0)
		require.Len(t, out, 1)
		assert.Equal(t, "beta", out[0].Chunk.Text)
	})

	t.Run("duplicates keep first occurrence", func(t *testing.T) {
		o := NewOverlay(fixedReply("2, 2, 1, 2"), nil)
		out := o.Rerank(ctx, "q", input, 0)
		require.Len(t, out, 2)
		assert.Equal(t, "beta", out[0].Chunk.Text)
		assert.Equal(t, "alpha", out[1].Chunk.Text)
	})

	t.Run("numbers inside prose still parse", func(t *testing.T) {
		o := NewOverlay(fixedReply("The relevant fragments are 2 and 3."), nil)
		out := o.Rerank(ctx, "q", input, 0)
		require.Len(t, out, 2)
		assert.Equal(t, "beta", out[0].Chunk.Text)
		assert.Equal(t, "gamma", out[1].Chunk.Text)
	})

	t.Run("unparseable reply falls back", func(t *testing.T) {
		o := NewOverlay(fixedReply("none of these look useful"), nil)
		assert.Equal(t, input, o.Rerank(ctx, "q", input, 0))
	})

	t.Run("judge error falls back", func(t *testing.T) {
		o := NewOverlay(judgeFunc(func(context.Context, string, string) (string, error) {
			return "", errors.New("boom")
		}), nil)
		assert.Equal(t, input, o.Rerank(ctx, "q", input, 0))
	})

	t.Run("max results truncates after mapping", func(t *testing.T) {
		o := NewOverlay(fixedReply("3, 2, 1"), nil)
		out := o.Rerank(ctx, "q", input, 2)
		require.Len(t, out, 2)
		assert.Equal(t, "gamma", out[0].Chunk.Text)
		assert.Equal(t, "beta", out[1].Chunk.Text)
	})

	t.Run("empty input passes through", func(t *testing.T) {
		o := NewOverlay(fixedReply("1"), nil)
		assert.Empty(t, o.Rerank(ctx, "q", nil, 0))
	})
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		count    int
		selected []int
		none     bool
	}{
		{"simple list", "1, 3, 5", 5, []int{1, 3, 5}, false},
		{"zero sentinel", "0", 5, nil, true},
		{"zero mid-list", "1, 0", 5, nil, true},
		{"out of range dropped", "9, 2", 3, []int{2}, false},
		{"duplicates dropped", "1, 1, 2", 3, []int{1, 2}, false},
		{"no numbers", "nothing here", 3, nil, false},
		{"multi-digit", "10, 11", 12, []int{10, 11}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, none := parseSelection(tt.reply, tt.count)
			assert.Equal(t, tt.none, none)
			assert.Equal(t, tt.selected, selected)
		})
	}
}

func TestChatJudge_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.InDelta(t, judgeTemperature, req.Temperature, 1e-9)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"1, 2"}}]}`))
	}))
	defer srv.Close()

	j := newChatJudge(srv.URL, "tok", "test-model", 0)
	reply, err := j.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "1, 2", reply)
}

func TestChatJudge_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	j := newChatJudge(srv.URL, "", "m", 0)
	_, err := j.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestNewJudge(t *testing.T) {
	t.Run("defaults to local", func(t *testing.T) {
		j, err := NewJudge(Config{})
		require.NoError(t, err)
		assert.NotNil(t, j)
	})

	t.Run("hosted requires api key", func(t *testing.T) {
		t.Setenv("HF_TOKEN", "")
		_, err := NewJudge(Config{Provider: JudgeHosted})
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("hosted with key", func(t *testing.T) {
		j, err := NewJudge(Config{Provider: JudgeHosted, APIKey: "k"})
		require.NoError(t, err)
		assert.NotNil(t, j)
	})

	t.Run("unknown provider rejected", func(t *testing.T) {
		_, err := NewJudge(Config{Provider: "oracle"})
		assert.ErrorIs(t, err, ErrUnsupportedJudge)
	})
}
