package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// httpClient wraps http.Client with a per-request timeout.
type httpClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *httpClient {
	return &httpClient{
		client: &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

func (c *httpClient) send(ctx context.Context, method, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// createUsers registers every generated user via PUT /users/{id} so board
// reads can resolve display names.
func createUsers(ctx context.Context, cfg *Config, client *httpClient, users []string, stats *Stats) error {
	for i, id := range users {
		body := map[string]string{"name": fmt.Sprintf("player-%d", i+1)}
		resp, err := client.send(ctx, http.MethodPut, cfg.BaseURL+"/users/"+id, body)
		if err != nil {
			return fmt.Errorf("create user %s: %w", id, err)
		}
		if _, err := readResponseBody(resp); err != nil {
			return fmt.Errorf("create user %s: %w", id, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("create user %s: status %d", id, resp.StatusCode)
		}
		stats.UsersCreated++
	}
	return nil
}

// submission pairs a request path with its JSON body.
type submission struct {
	path string
	body any
}

// submitEvents pushes all generated events through a worker pool and tallies
// the outcomes.
func submitEvents(ctx context.Context, cfg *Config, client *httpClient, w *workload, stats *Stats) error {
	subs := make([]submission, 0, len(w.scores)+len(w.games))
	for _, sc := range w.scores {
		subs = append(subs, submission{path: "/scores", body: sc})
	}
	for _, g := range w.games {
		subs = append(subs, submission{path: "/games", body: g})
	}

	var (
		submitted int64
		ok        int64
		duplicate int64
		failed    int64
	)

	subChan := make(chan submission, cfg.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				atomic.AddInt64(&submitted, 1)
				switch submitOne(ctx, client, cfg.BaseURL+sub.path, sub.body) {
				case "ok":
					atomic.AddInt64(&ok, 1)
				case "duplicate":
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsOK = int(atomic.LoadInt64(&ok))
	stats.EventsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	if stats.EventsFailed > 0 {
		return fmt.Errorf("%d of %d submissions failed", stats.EventsFailed, stats.EventsSubmitted)
	}
	return nil
}

// submitOne posts one event and classifies the outcome.
func submitOne(ctx context.Context, client *httpClient, url string, body any) string {
	resp, err := client.send(ctx, http.MethodPost, url, body)
	if err != nil {
		return "failed"
	}
	raw, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		return "ok"
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(raw, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}

// fetchBoard reads a top-N window from one board endpoint.
func fetchBoard(ctx context.Context, cfg *Config, client *httpClient, path string, stats *Stats) ([]Entry, error) {
	resp, err := client.get(ctx, cfg.BaseURL+path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	raw, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	stats.BoardsFetched++
	return entries, nil
}
