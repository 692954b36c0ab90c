package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"calbot/pkg/utils"
)

type FoodInfo struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
}

// NutritionClient fetches calories for a free-text food query.
type NutritionClient interface {
	FetchCalories(ctx context.Context, query string) (FoodInfo, error)
}

// CalorieNinjasClient talks to a CalorieNinjas-compatible endpoint:
// GET <base>?query=<text> with an X-Api-Key header.
type CalorieNinjasClient struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
}

func NewCalorieNinjasClient(baseURL, apiKey string, timeout time.Duration) *CalorieNinjasClient {
	return &CalorieNinjasClient{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}

type nutritionResponse struct {
	Items []struct {
		Name     string  `json:"name"`
		Calories float64 `json:"calories"`
	} `json:"items"`
}

func (c *CalorieNinjasClient) FetchCalories(ctx context.Context, query string) (FoodInfo, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return FoodInfo{}, fmt.Errorf("invalid nutrition base url: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return FoodInfo{}, fmt.Errorf("failed to create nutrition request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if isTimeout(err) {
			return FoodInfo{}, utils.ErrLookupTimeout
		}
		return FoodInfo{}, fmt.Errorf("failed to call nutrition api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return FoodInfo{}, &utils.APIError{Status: resp.StatusCode}
	}

	var payload nutritionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if isTimeout(err) {
			return FoodInfo{}, utils.ErrLookupTimeout
		}
		return FoodInfo{}, fmt.Errorf("failed to parse nutrition response: %w", err)
	}

	if len(payload.Items) == 0 {
		return FoodInfo{}, utils.ErrFoodNotFound
	}

	item := payload.Items[0]
	return FoodInfo{Name: item.Name, Calories: item.Calories}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
