package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"pantryplanner/planner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements the HTTPClient interface for testing
type mockHTTPClient struct {
	response *http.Response
	err      error
	request  *http.Request
	body     []byte
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.request = req
	if req.Body != nil {
		m.body, _ = io.ReadAll(req.Body)
	}
	return m.response, m.err
}

// createMockResponse creates a mock HTTP response
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func chatResponse(t *testing.T, content string) string {
	t.Helper()
	b, err := json.Marshal(wireResponse{Message: Message{Role: "assistant", Content: content}, Done: true})
	require.NoError(t, err)
	return string(b)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434/", HTTPClient: &mockHTTPClient{}})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/api/chat", client.endpoint)
	assert.Equal(t, defaultModelID, client.model)
	assert.Equal(t, options{Temperature: 0.2, TopP: 0.9, RepeatPenalty: 1.05, NumCtx: 16384}, client.options)

	_, err = NewClient(ClientOpts{})
	assert.Error(t, err)
}

func TestClient_Plan(t *testing.T) {
	valid := `{"mealPlan":[{"dayIndex":0,"mealType":"breakfast","recipeId":"R1"}],"explanations":{"pantryUsage":"eggs"}}`

	tests := []struct {
		name        string
		response    *http.Response
		err         error
		wantErr     bool
		wantRecipes []string
	}{
		{
			name:        "valid plan",
			response:    createMockResponse(http.StatusOK, chatResponse(t, valid)),
			wantRecipes: []string{"R1"},
		},
		{
			name:        "plan wrapped in prose",
			response:    createMockResponse(http.StatusOK, chatResponse(t, "Here you go:\n"+valid)),
			wantRecipes: []string{"R1"},
		},
		{
			name:     "non-2xx status",
			response: createMockResponse(http.StatusInternalServerError, `{"error":"model not found"}`),
			wantErr:  true,
		},
		{
			name:    "transport error",
			err:     assert.AnError,
			wantErr: true,
		},
		{
			name:     "envelope not json",
			response: createMockResponse(http.StatusOK, "<html>"),
			wantErr:  true,
		},
		{
			name:     "content not a plan",
			response: createMockResponse(http.StatusOK, chatResponse(t, `{"answer":"42"}`)),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockHTTPClient{response: tt.response, err: tt.err}
			client, err := NewClient(ClientOpts{BaseEndpoint: "http://ollama:11434", ModelID: "llama3.2", HTTPClient: mock})
			require.NoError(t, err)

			resp, err := client.Plan(context.Background(), planner.Request{MealsPerDay: 1, DaysInWeek: planner.DaysInWeek})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var ids []string
			for _, a := range resp.MealPlan {
				ids = append(ids, a.RecipeID)
			}
			assert.Equal(t, tt.wantRecipes, ids)
		})
	}
}

func TestClient_PlanRequestBody(t *testing.T) {
	mock := &mockHTTPClient{response: createMockResponse(http.StatusOK, chatResponse(t,
		`{"mealPlan":[{"dayIndex":0,"mealType":"breakfast","recipeId":"R1"}],"explanations":{}}`))}
	client, err := NewClient(ClientOpts{BaseEndpoint: "http://ollama:11434", ModelID: "qwen2.5", HTTPClient: mock})
	require.NoError(t, err)

	_, err = client.Plan(context.Background(), planner.Request{MealsPerDay: 2, DaysInWeek: planner.DaysInWeek})
	require.NoError(t, err)

	require.NotNil(t, mock.request)
	assert.Equal(t, http.MethodPost, mock.request.Method)
	assert.Equal(t, "application/json", mock.request.Header.Get("Content-Type"))

	var body wireRequest
	require.NoError(t, json.Unmarshal(mock.body, &body))
	assert.Equal(t, "qwen2.5", body.Model)
	assert.False(t, body.Stream)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "user", body.Messages[1].Role)
	assert.Contains(t, body.Messages[1].Content, `"mealsPerDay":2`)
	assert.Equal(t, "object", body.Format["type"])
}
