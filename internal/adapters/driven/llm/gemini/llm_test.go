package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrAPIKeyMissing)
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc, err := NewLLMService(context.Background(), Config{APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.NoError(t, svc.Close())
}

func TestNewLLMService_CustomModel(t *testing.T) {
	svc, err := NewLLMService(context.Background(), Config{APIKey: "key", Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", svc.ModelName())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		transient bool
	}{
		{"value api error", genai.APIError{Code: http.StatusBadRequest, Message: "bad"}, http.StatusBadRequest, false},
		{"pointer api error", &genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"}, http.StatusTooManyRequests, true},
		{"transport", errors.New("connection reset"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			var be *domain.BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.status, be.StatusCode)
			assert.Equal(t, tt.transient, domain.IsTransient(err))
		})
	}
}

func TestClassify_PassesThroughContextErrors(t *testing.T) {
	assert.Equal(t, context.Canceled, classify(context.Canceled))
	assert.Equal(t, context.DeadlineExceeded, classify(context.DeadlineExceeded))
}
