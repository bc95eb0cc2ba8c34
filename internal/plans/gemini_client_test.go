package plans

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestClassifyGeminiError(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		quota bool
	}{
		{"http 429", &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota"}, true},
		{"wrapped 429", fmt.Errorf("send: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), true},
		{"grpc status text", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyGeminiError(tc.err)
			assert.Equal(t, tc.quota, errors.Is(err, ErrQuotaExceeded))
		})
	}
}

func TestNewGeminiLLMClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiLLMClient(context.Background(), "  ", "")
	require.Error(t, err)
}
