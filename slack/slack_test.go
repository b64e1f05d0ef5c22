package slack_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"pantryplanner/planner"
	"pantryplanner/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	resp   *http.Response
	err    error
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return m.resp, m.err
}

func TestNewClient(t *testing.T) {
	webhook := "http://slack.com/webhook"
	client := slack.NewClient(webhook, &mockDoer{})
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr error
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
			},
			wantErr: nil,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: fmt.Errorf("failed to post message: 400 Bad Request"),
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: fmt.Errorf("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#general", "Hello, world!")
			should.Equal(t, tt.wantErr, err)
		})
	}
}

func TestPostPlan(t *testing.T) {
	var body []byte
	doer := &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		body, _ = io.ReadAll(req.Body)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
	}}

	res := planner.Result{
		Meals: []planner.MealPlanItem{
			{Day: 0, MealType: planner.Dinner, Title: "Spinach Omelette"},
		},
		Fill:   planner.FillRate{SlotsFilled: 1, SlotsNeeded: 7},
		Source: planner.SourceGreedy,
	}
	err := slack.NewClient("http://example.com/webhook", doer).PostPlan(context.Background(), "#meals", res)
	must.NoError(t, err)
	should.Contains(t, string(body), `"channel":"#meals"`)
	should.Contains(t, string(body), "Spinach Omelette")
}

func TestFormatPlan(t *testing.T) {
	res := planner.Result{
		Meals: []planner.MealPlanItem{
			{Day: 0, MealType: planner.Lunch, Title: "Salad"},
			{Day: 0, MealType: planner.Dinner, Title: "Curry"},
			{Day: 2, MealType: planner.Lunch, Title: "Soup"},
		},
		Fill:         planner.FillRate{SlotsFilled: 3, SlotsNeeded: 14},
		Source:       planner.SourceAssisted,
		Explanation:  "Spinach is used first.",
		ShoppingList: []string{"chickpea", "coconut milk"},
	}

	got := slack.FormatPlan(res)
	lines := strings.Split(got, "\n")

	should.Equal(t, "*Meal plan* (3/14 meals, assisted)", lines[0])
	should.Equal(t, "• *Mon* lunch: Salad | dinner: Curry", lines[1])
	should.Equal(t, "• *Wed* lunch: Soup", lines[2])
	should.Contains(t, got, "Spinach is used first.")
	should.True(t, strings.HasSuffix(got, "*Shopping list:* chickpea, coconut milk"))
	should.NotContains(t, got, "Tue")
}

func TestFormatPlan_Empty(t *testing.T) {
	got := slack.FormatPlan(planner.Result{Fill: planner.FillRate{SlotsNeeded: 21}, Source: planner.SourceGreedy})
	should.Equal(t, "*Meal plan* (0/21 meals, greedy)", got)
}
