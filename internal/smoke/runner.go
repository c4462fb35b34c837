package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crewtools/crewclock/pkg/logger"
	"github.com/google/uuid"
)

// punch is one submission in the script.
type punch struct {
	Person    string `json:"person"`
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
}

type punchAck struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type hoursReply struct {
	Totals map[string]map[string]float64 `json:"totals"`
}

// Run executes the full smoke sequence: submit, re-submit one duplicate,
// then verify /hours. It returns stats plus a non-nil error when the server
// misbehaved.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("smoke")
	start := time.Now()

	script, persons := buildScript(cfg)
	stats := &Stats{}

	client := &http.Client{Timeout: cfg.Timeout}
	if err := submit(ctx, cfg, client, script, stats); err != nil {
		return stats, err
	}
	if err := checkDuplicate(ctx, cfg, client, script[0][0], stats); err != nil {
		return stats, err
	}
	if err := verifyHours(ctx, cfg, client, persons, stats); err != nil {
		return stats, err
	}

	stats.Elapsed = time.Since(start)
	log.Info(ctx, "smoke run complete",
		logger.Int("submitted", stats.Submitted),
		logger.Int("recorded", stats.Recorded),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
	)
	if stats.Failed > 0 || stats.Mismatched > 0 {
		return stats, fmt.Errorf("smoke run failed: %d submissions failed, %d totals mismatched", stats.Failed, stats.Mismatched)
	}
	return stats, nil
}

// buildScript produces per-person shift scripts and the set of persons to
// verify afterwards. Each person's script is strictly IN-then-OUT so pairing
// is deterministic regardless of submission concurrency across persons.
func buildScript(cfg *Config) (scripts [][]punch, persons []string) {
	for i := 0; i < cfg.Crew; i++ {
		person := fmt.Sprintf("crew-%02d", i)
		var ps []punch
		for s := 0; s < cfg.Shifts; s++ {
			ps = append(ps,
				punch{Person: person, Action: "IN", RequestID: uuid.NewString()},
				punch{Person: person, Action: "OUT", RequestID: uuid.NewString()},
			)
		}
		scripts = append(scripts, ps)
		persons = append(persons, person)
	}
	return scripts, persons
}

// submit runs each person's script in order; different persons run
// concurrently across the worker pool.
func submit(ctx context.Context, cfg *Config, client *http.Client, scripts [][]punch, stats *Stats) error {
	log := logger.Get().Named("smoke")

	var submitted, recorded, failed int64
	personChan := make(chan []punch, len(scripts))
	for _, s := range scripts {
		personChan <- s
	}
	close(personChan)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for script := range personChan {
				for _, p := range script {
					select {
					case <-ctx.Done():
						return
					default:
					}
					atomic.AddInt64(&submitted, 1)
					status, err := postPunch(ctx, client, cfg.BaseURL, p)
					if err != nil || status != http.StatusCreated {
						atomic.AddInt64(&failed, 1)
						if cfg.Verbose {
							log.Warn(ctx, "punch failed",
								logger.String("person", p.Person),
								logger.String("action", p.Action),
								logger.Int("status", status),
							)
						}
						continue
					}
					atomic.AddInt64(&recorded, 1)
				}
			}
		}()
	}
	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Recorded = int(atomic.LoadInt64(&recorded))
	stats.Failed = int(atomic.LoadInt64(&failed))
	return nil
}

// checkDuplicate re-submits an already-used request id and expects the
// duplicate acknowledgement, not a second recording.
func checkDuplicate(ctx context.Context, cfg *Config, client *http.Client, p punch, stats *Stats) error {
	status, body, err := postPunchBody(ctx, client, cfg.BaseURL, p)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("duplicate check: want 200, got %d", status)
	}
	var ack punchAck
	if err := json.Unmarshal(body, &ack); err != nil || !ack.Duplicate {
		return fmt.Errorf("duplicate check: response not a duplicate ack: %s", body)
	}
	stats.Duplicates++
	return nil
}

// verifyHours fetches day-granularity totals and checks every scripted
// person shows up with a finite, non-negative total.
func verifyHours(ctx context.Context, cfg *Config, client *http.Client, persons []string, stats *Stats) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/hours?granularity=day", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch hours: %w", err)
	}
	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch hours: status %d", resp.StatusCode)
	}

	var reply hoursReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("decode hours: %w", err)
	}

	for _, person := range persons {
		buckets, ok := reply.Totals[person]
		if !ok {
			stats.Mismatched++
			continue
		}
		total := 0.0
		for _, h := range buckets {
			total += h
		}
		if math.IsNaN(total) || total < 0 {
			stats.Mismatched++
			continue
		}
		stats.Verified++
	}
	return nil
}

func postPunch(ctx context.Context, client *http.Client, baseURL string, p punch) (int, error) {
	status, _, err := postPunchBody(ctx, client, baseURL, p)
	return status, err
}

func postPunchBody(ctx context.Context, client *http.Client, baseURL string, p punch) (int, []byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/punch", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
