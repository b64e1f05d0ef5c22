package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pantryplanner/planner"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

// PostPlan posts a readable summary of a weekly plan.
func (c *Client) PostPlan(ctx context.Context, channel string, res planner.Result) error {
	return c.PostMessage(ctx, channel, FormatPlan(res))
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

var dayNames = [planner.DaysInWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// FormatPlan renders a plan as Slack mrkdwn: one line per planned day, then the fill
// rate, the explanation and the shopping list.
func FormatPlan(res planner.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Meal plan* (%d/%d meals, %s)\n", res.Fill.SlotsFilled, res.Fill.SlotsNeeded, res.Source)

	byDay := make([][]planner.MealPlanItem, planner.DaysInWeek)
	for _, m := range res.Meals {
		if m.Day >= 0 && m.Day < planner.DaysInWeek {
			byDay[m.Day] = append(byDay[m.Day], m)
		}
	}
	for day, meals := range byDay {
		if len(meals) == 0 {
			continue
		}
		parts := make([]string, 0, len(meals))
		for _, m := range meals {
			parts = append(parts, fmt.Sprintf("%s: %s", m.MealType, m.Title))
		}
		fmt.Fprintf(&b, "• *%s* %s\n", dayNames[day], strings.Join(parts, " | "))
	}

	if res.Explanation != "" {
		fmt.Fprintf(&b, "\n%s\n", res.Explanation)
	}
	if len(res.ShoppingList) > 0 {
		fmt.Fprintf(&b, "\n*Shopping list:* %s\n", strings.Join(res.ShoppingList, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
