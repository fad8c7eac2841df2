// Package smoke exercises a running dashboard over HTTP: it signs in, walks
// every route with a pool of workers and checks each answer.
package smoke

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrUnhealthy  = errors.New("service unhealthy")
	ErrLogin      = errors.New("login failed")
	ErrDiscovery  = errors.New("route discovery failed")
	ErrCheckFails = errors.New("checks failed")
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Password string        // Shared dashboard password, empty when the gate is off
	Workers  int           // Number of concurrent workers
	Rounds   int           // How many times every route is requested
	Students int           // How many student dashboards to open
	Timeout  time.Duration // HTTP request timeout
	Verbose  bool          // Log every request
}

// Outcome classifies one response.
type Outcome string

// Outcomes.
const (
	OutcomeOK          Outcome = "ok"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeFailed      Outcome = "failed"
)

// Result is the tally of one route.
type Result struct {
	Path        string
	Requests    int
	OK          int
	Unavailable int
	Failed      int
	Reason      string
	Total       time.Duration
}

// Mean returns the mean request latency.
func (r Result) Mean() time.Duration {
	if r.Requests == 0 {
		return 0
	}
	return r.Total / time.Duration(r.Requests)
}

// Stats holds run statistics.
type Stats struct {
	Results   []Result
	Requests  int
	Failed    int
	StartTime time.Time
	Duration  time.Duration
}
