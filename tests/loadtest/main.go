package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:18093"
	numWorkers   = 50
	testDuration = 10 * time.Second
	historyDays  = 365
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== fastd Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | History window: %d days\n\n", numWorkers, testDuration, historyDays)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Seed history with backfills. Random intervals collide
	// after a while; a 400 on overlap is expected, only 5xx counts as
	// an error.
	fmt.Println("\n--- Phase 1: Seeding history (POST /sessions) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doBackfill(rng)
	})

	// Phase 2: Mixed read/write load
	fmt.Println("\n--- Phase 2: Mixed load (30% POST, 70% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.30:
			return doBackfill(rng)
		case r < 0.55:
			return doGetStatus()
		case r < 0.80:
			return doGetSessions(rng)
		case r < 0.92:
			return doGetStreaks()
		default:
			return doGetGoal()
		}
	})

	// Phase 3: Read-heavy load, exercises the response cache
	fmt.Println("\n--- Phase 3: Read-heavy load (5% POST, 95% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.05:
			return doBackfill(rng)
		case r < 0.35:
			return doGetStatus()
		case r < 0.70:
			return doGetSessions(rng)
		case r < 0.90:
			return doGetStreaks()
		default:
			return doGetGoal()
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

// doBackfill inserts a closed session at a random spot in the history
// window. Short fasts inside a random hour so most intervals stay
// disjoint.
func doBackfill(rng *rand.Rand) result {
	day := rng.Intn(historyDays) + 1
	end := time.Now().UTC().AddDate(0, 0, -day).Truncate(time.Hour)
	start := end.Add(-time.Duration(10+rng.Intn(12)) * time.Hour)

	body := map[string]interface{}{
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
	}
	if rng.Float64() < 0.3 {
		body["goal_hours"] = float64(12 + rng.Intn(8))
	}

	data, _ := json.Marshal(body)
	t0 := time.Now()
	resp, err := httpClient.Post(baseURL+"/sessions", "application/json", bytes.NewReader(data))
	lat := time.Since(t0)
	if err != nil {
		return result{"POST /sessions", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /sessions", resp.StatusCode, lat, resp.StatusCode >= 500}
}

func doGetStatus() result {
	return doGet("GET /fast/status", baseURL+"/fast/status")
}

func doGetSessions(rng *rand.Rand) result {
	url := baseURL + "/sessions"
	switch rng.Intn(3) {
	case 0:
		url += "?goalMet=true"
	case 1:
		from := time.Now().UTC().AddDate(0, 0, -(rng.Intn(historyDays) + 1))
		url += "?from=" + from.Format(time.RFC3339)
	}
	return doGet("GET /sessions", url)
}

func doGetStreaks() result {
	return doGet("GET /streaks", baseURL+"/streaks")
}

func doGetGoal() result {
	return doGet("GET /goal", baseURL+"/goal")
}

func doGet(endpoint, url string) result {
	t0 := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(t0)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != 200}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
