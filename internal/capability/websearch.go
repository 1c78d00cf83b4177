package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "adcrew/internal/errors"
)

const (
	defaultSearchURL     = "https://google.serper.dev"
	defaultSearchTimeout = 30 * time.Second
	defaultSearchResults = 5
)

type WebSearchConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	NumResults int
}

// WebSearch queries the Serper search API.
type WebSearch struct {
	apiKey     string
	baseURL    string
	numResults int
	httpClient *http.Client
}

func NewWebSearch(cfg WebSearchConfig) (*WebSearch, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("web search: missing API key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultSearchURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	n := cfg.NumResults
	if n <= 0 {
		n = defaultSearchResults
	}
	return &WebSearch{
		apiKey:     apiKey,
		baseURL:    baseURL,
		numResults: n,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (w *WebSearch) Name() string { return WebSearchName }

func (w *WebSearch) Description() string {
	return "Searches the internet for the given query and returns the top results"
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	AnswerBox *struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox,omitempty"`
}

func (w *WebSearch) Invoke(ctx context.Context, query string) (string, error) {
	payload, err := json.Marshal(map[string]any{"q": query, "num": w.numResults})
	if err != nil {
		return "", invocationError(w.Name(), query, err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return "", invocationError(w.Name(), query, err, "build request")
	}
	req.Header.Set("X-API-KEY", w.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", invocationError(w.Name(), query, err, "search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var opts []apperrors.Option
		// Client errors other than rate limiting are permanent.
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			opts = append(opts, apperrors.WithRetryable(false))
		}
		return "", invocationError(w.Name(), query,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"search backend returned an error", opts...)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", invocationError(w.Name(), query, err, "decode search response")
	}
	return formatResults(query, decoded, w.numResults), nil
}

func formatResults(query string, r searchResponse, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for: %s\n", query)
	if r.AnswerBox != nil {
		answer := r.AnswerBox.Answer
		if answer == "" {
			answer = r.AnswerBox.Snippet
		}
		if answer != "" {
			fmt.Fprintf(&b, "Answer: %s\n", answer)
		}
	}
	if len(r.Organic) == 0 {
		b.WriteString("No results found.\n")
		return strings.TrimRight(b.String(), "\n")
	}
	for i, item := range r.Organic {
		if i >= limit {
			break
		}
		fmt.Fprintf(&b, "---\nTitle: %s\nLink: %s\nSnippet: %s\n", item.Title, item.Link, item.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (w *WebSearch) sealed() {}
