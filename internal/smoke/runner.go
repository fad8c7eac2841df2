package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/scholardash/pkg/logger"
)

// Analyses served under /api/analysis/.
var Analyses = []string{"insights", "exams", "featured", "question-bank", "attendance", "performers", "heatmap"}

// Run executes the smoke test. Routes whose data is missing count as
// unavailable, not failed.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("smoke")
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Rounds < 1 {
		cfg.Rounds = 1
	}

	log.Info(ctx, "starting dashboard smoke test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("workers", cfg.Workers),
		logger.Int("rounds", cfg.Rounds),
		logger.Bool("login", cfg.Password != ""))

	c, err := newClient(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	if err := checkHealth(ctx, c); err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		if err := login(ctx, c, cfg.Password); err != nil {
			return nil, err
		}
		log.Info(ctx, "signed in")
	}

	paths, err := discover(ctx, c, cfg.Students)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "routes discovered", logger.Strings("paths", paths))

	stats.Results = check(ctx, c, paths, cfg, log)
	for _, r := range stats.Results {
		stats.Requests += r.Requests
		stats.Failed += r.Failed
	}
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "smoke test finished",
		logger.Int("requests", stats.Requests),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d requests", ErrCheckFails, stats.Failed, stats.Requests)
	}
	return stats, nil
}

func checkHealth(ctx context.Context, c *client) error {
	status, _, err := c.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

func login(ctx context.Context, c *client, password string) error {
	status, body, err := c.postJSON(ctx, "/login", map[string]string{"password": password})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrLogin, status, body)
	}
	return nil
}

// discover lists the routes to check, including up to students student
// dashboards and every school.
func discover(ctx context.Context, c *client, students int) ([]string, error) {
	paths := []string{"/api/tiers", "/api/students", "/api/schools", "/api/schools/categories?school=all"}
	for _, name := range Analyses {
		paths = append(paths, "/api/analysis/"+name)
	}

	var list struct {
		Students []int64 `json:"students"`
		Schools  []int64 `json:"schools"`
	}
	for _, p := range []string{"/api/students", "/api/schools"} {
		status, body, err := c.get(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("%w: %s answered %d", ErrDiscovery, p, status)
		}
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDiscovery, p, err)
		}
	}

	if students > len(list.Students) {
		students = len(list.Students)
	}
	for _, id := range list.Students[:students] {
		paths = append(paths, "/api/students/"+strconv.FormatInt(id, 10))
	}
	for _, s := range list.Schools {
		paths = append(paths, "/api/schools/categories?school="+url.QueryEscape(strconv.FormatInt(s, 10)))
	}
	return paths, nil
}

// check requests every path cfg.Rounds times through a worker pool.
func check(ctx context.Context, c *client, paths []string, cfg *Config, log logger.Logger) []Result {
	var (
		mu      sync.Mutex
		results = make(map[string]*Result, len(paths))
	)
	for _, p := range paths {
		results[p] = &Result{Path: p}
	}

	jobs := make(chan string, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				start := time.Now()
				outcome, reason := probe(ctx, c, p)
				elapsed := time.Since(start)

				mu.Lock()
				r := results[p]
				r.Requests++
				r.Total += elapsed
				switch outcome {
				case OutcomeOK:
					r.OK++
				case OutcomeUnavailable:
					r.Unavailable++
					r.Reason = reason
				case OutcomeFailed:
					r.Failed++
					r.Reason = reason
				}
				mu.Unlock()

				if cfg.Verbose {
					log.Info(ctx, "checked", logger.String("path", p), logger.String("outcome", string(outcome)), logger.Duration("latency", elapsed))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for round := 0; round < cfg.Rounds; round++ {
			for _, p := range paths {
				select {
				case <-ctx.Done():
					return
				case jobs <- p:
				}
			}
		}
	}()
	wg.Wait()

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// probe requests one path and classifies the answer.
func probe(ctx context.Context, c *client, path string) (Outcome, string) {
	status, body, err := c.get(ctx, path)
	if err != nil {
		return OutcomeFailed, err.Error()
	}
	if status != http.StatusOK {
		return OutcomeFailed, "status " + strconv.Itoa(status)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return OutcomeFailed, "invalid JSON: " + err.Error()
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return OutcomeOK, ""
	}
	available, ok := obj["available"].(bool)
	if !ok {
		return OutcomeFailed, "missing available flag"
	}
	if !available {
		reason, _ := obj["reason"].(string)
		return OutcomeUnavailable, reason
	}
	return OutcomeOK, ""
}
