package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/domain"
	httpserver "github.com/progreswwa/ekipa-strategow-back/internal/http"
	"github.com/progreswwa/ekipa-strategow-back/internal/http/handlers"
	"github.com/progreswwa/ekipa-strategow-back/internal/http/middleware"
	"github.com/progreswwa/ekipa-strategow-back/internal/queue"
	"github.com/progreswwa/ekipa-strategow-back/internal/repository"
	"github.com/progreswwa/ekipa-strategow-back/internal/service"
	"github.com/progreswwa/ekipa-strategow-back/internal/worker"
)

type scenarioResult struct {
	Name          string   `json:"name"`
	Total         int      `json:"total"`
	Success       int      `json:"success"`
	Errors        int      `json:"errors"`
	P50MS         float64  `json:"p50_ms"`
	P95MS         float64  `json:"p95_ms"`
	P99MS         float64  `json:"p99_ms"`
	MaxMS         float64  `json:"max_ms"`
	ThroughputRPS float64  `json:"throughput_rps"`
	ErrorSamples  []string `json:"error_samples,omitempty"`
}

type drainResult struct {
	Jobs      int     `json:"jobs"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	DrainMS   float64 `json:"drain_ms"`
}

type runResult struct {
	GeneratedAtUTC string           `json:"generated_at_utc"`
	Environment    string           `json:"environment"`
	Results        []scenarioResult `json:"results"`
	Drain          drainResult      `json:"drain"`
	SLOEvaluation  map[string]bool  `json:"slo_evaluation"`
}

type benchmarkEnv struct {
	server    *httptest.Server
	repo      *repository.MemoryRepository
	processor *worker.Processor
	cancel    context.CancelFunc
}

// slowGenerator and slowPublisher stand in for the remote APIs with a fixed
// latency so the accept path can be measured against a busy worker pool.
type slowGenerator struct{ delay time.Duration }

func (g slowGenerator) Generate(ctx context.Context, brief domain.Brief) (domain.Website, error) {
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return domain.Website{}, ctx.Err()
	}
	return domain.Website{HTML: "<h1>" + brief.Name + "</h1>", Metadata: map[string]any{"title": brief.Name}}, nil
}

type slowPublisher struct{ delay time.Duration }

func (p slowPublisher) AllocateTarget(_ context.Context, name string) (domain.Site, error) {
	return domain.Site{ID: name, Name: name, URL: "https://" + name + ".example"}, nil
}

func (p slowPublisher) Push(ctx context.Context, site domain.Site, _ domain.Website) (domain.Deploy, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return domain.Deploy{}, ctx.Err()
	}
	return domain.Deploy{ID: "deploy-" + site.ID, SiteID: site.ID, State: "ready"}, nil
}

func (p slowPublisher) PollStatus(_ context.Context, site domain.Site, deployID string) (domain.Deploy, error) {
	return domain.Deploy{ID: deployID, SiteID: site.ID, State: "ready"}, nil
}

func main() {
	briefsTotal := flag.Int("briefs-total", 200, "total brief submissions")
	briefsConcurrency := flag.Int("briefs-concurrency", 20, "concurrency for brief submissions")
	deploysTotal := flag.Int("deploys-total", 200, "total deployment requests")
	deploysConcurrency := flag.Int("deploys-concurrency", 20, "concurrency for deployment requests")
	statusTotal := flag.Int("status-total", 400, "total status reads")
	statusConcurrency := flag.Int("status-concurrency", 40, "concurrency for status reads")
	workers := flag.Int("workers", 8, "pipeline concurrency")
	pipelineDelay := flag.Duration("pipeline-delay", 50*time.Millisecond, "simulated latency per remote call")
	outputPath := flag.String("output", "", "optional path to persist benchmark results JSON")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	env := startBenchmarkEnvironment(*workers, *pipelineDelay, *deploysTotal)
	defer env.cancel()
	defer env.server.Close()

	client := &http.Client{Timeout: 10 * time.Second}

	var (
		mu       sync.Mutex
		briefIDs []string
		jobIDs   []string
	)

	briefsScenario := runScenario("brief_submit", *briefsTotal, *briefsConcurrency, func(index int) error {
		var response struct {
			BriefID string `json:"briefId"`
		}
		payload := map[string]any{
			"name":        fmt.Sprintf("Client %d", index),
			"email":       fmt.Sprintf("owner%d@client.example", index),
			"industry":    "retail",
			"pageType":    "landing",
			"description": "Landing page for a load test client.",
		}
		if err := postJSON(client, env.server.URL+"/api/brief", payload, http.StatusCreated, &response); err != nil {
			return err
		}
		mu.Lock()
		briefIDs = append(briefIDs, response.BriefID)
		mu.Unlock()
		return nil
	})
	if len(briefIDs) == 0 {
		logger.Fatal().Msg("no briefs were accepted, aborting")
	}

	deployStarted := time.Now()
	deploysScenario := runScenario("deploy_accept", *deploysTotal, *deploysConcurrency, func(index int) error {
		var response struct {
			JobID string `json:"jobId"`
		}
		payload := map[string]any{"briefId": briefIDs[index%len(briefIDs)]}
		if err := postJSON(client, env.server.URL+"/api/deploy", payload, http.StatusAccepted, &response); err != nil {
			return err
		}
		mu.Lock()
		jobIDs = append(jobIDs, response.JobID)
		mu.Unlock()
		return nil
	})

	if len(jobIDs) == 0 {
		logger.Fatal().Msg("no deployments were accepted, aborting")
	}

	statusScenario := runScenario("status_read", *statusTotal, *statusConcurrency, func(index int) error {
		mu.Lock()
		jobID := jobIDs[index%len(jobIDs)]
		mu.Unlock()
		return getJSON(client, env.server.URL+"/api/status/"+jobID, http.StatusOK)
	})

	drain := waitForDrain(env, jobIDs, deployStarted, 2*time.Minute)

	results := []scenarioResult{briefsScenario, deploysScenario, statusScenario}
	slo := map[string]bool{
		"deploy_accept_p95_le_250ms": deploysScenario.P95MS <= 250,
		"status_read_p95_le_100ms":   statusScenario.P95MS <= 100,
		"all_jobs_reached_terminal":  drain.Completed+drain.Failed == drain.Jobs,
		"no_failed_jobs_under_stubs": drain.Failed == 0,
	}

	report := runResult{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Environment:    "local-httptest",
		Results:        results,
		Drain:          drain,
		SLOEvaluation:  slo,
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to marshal benchmark report")
	}
	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, encoded, 0o644); err != nil {
			logger.Fatal().Err(err).Msg("failed to write output file")
		}
	}
	_, _ = fmt.Fprintln(os.Stdout, string(encoded))
}

func startBenchmarkEnvironment(workers int, delay time.Duration, queueSize int) *benchmarkEnv {
	ctx, cancel := context.WithCancel(context.Background())
	logger := zerolog.Nop()

	repo := repository.NewMemoryRepository()
	localQueue := queue.NewLocalQueue(queueSize+16, logger)

	deployments := service.NewDeploymentService(service.DeploymentDependencies{
		Repo:      repo,
		Producer:  localQueue,
		Generator: slowGenerator{delay: delay},
		Publisher: slowPublisher{delay: delay},
		Logger:    logger,
	})
	api := handlers.NewAPI(handlers.APIDependencies{
		Briefs:      service.NewBriefsService(repo, nil, logger),
		Deployments: deployments,
		Jobs:        service.NewJobsService(repo),
		Logger:      logger,
	})
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:          api,
		Logger:       logger,
		GeneralLimit: middleware.PerSecond(20000, 20000),
		DeployLimit:  middleware.PerMinute(1_000_000),
	})

	processor := worker.NewProcessor(localQueue, deployments, workers, logger)
	go processor.Start(ctx)

	return &benchmarkEnv{
		server:    httptest.NewServer(router),
		repo:      repo,
		processor: processor,
		cancel:    cancel,
	}
}

func waitForDrain(env *benchmarkEnv, jobIDs []string, startedAt time.Time, timeout time.Duration) drainResult {
	result := drainResult{Jobs: len(jobIDs)}
	deadline := time.Now().Add(timeout)
	for {
		result.Completed, result.Failed = 0, 0
		for _, jobID := range jobIDs {
			job, err := env.repo.GetJob(context.Background(), jobID)
			if err != nil {
				continue
			}
			switch job.Status {
			case domain.JobStatusCompleted:
				result.Completed++
			case domain.JobStatusFailed:
				result.Failed++
			}
		}
		if result.Completed+result.Failed >= result.Jobs || time.Now().After(deadline) {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	env.processor.Wait(timeout)
	result.DrainMS = round2(float64(time.Since(startedAt).Microseconds()) / 1000.0)
	return result
}

func runScenario(
	name string,
	total int,
	concurrency int,
	requestFn func(index int) error,
) scenarioResult {
	if total <= 0 {
		return scenarioResult{Name: name}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	startedAt := time.Now()
	type sample struct {
		durationMS float64
		err        string
	}

	jobs := make(chan int, total)
	results := make(chan sample, total)
	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				requestStart := time.Now()
				err := requestFn(index)
				s := sample{durationMS: float64(time.Since(requestStart).Microseconds()) / 1000.0}
				if err != nil {
					s.err = err.Error()
				}
				results <- s
			}
		}()
	}
	wg.Wait()
	close(results)

	durations := make([]float64, 0, total)
	errorSamples := make([]string, 0, 5)
	success := 0
	errorsCount := 0
	for item := range results {
		durations = append(durations, item.durationMS)
		if item.err == "" {
			success++
			continue
		}
		errorsCount++
		if len(errorSamples) < 5 {
			errorSamples = append(errorSamples, item.err)
		}
	}

	sort.Float64s(durations)
	elapsedSeconds := time.Since(startedAt).Seconds()
	throughput := 0.0
	if elapsedSeconds > 0 {
		throughput = float64(total) / elapsedSeconds
	}

	return scenarioResult{
		Name:          name,
		Total:         total,
		Success:       success,
		Errors:        errorsCount,
		P50MS:         percentile(durations, 0.50),
		P95MS:         percentile(durations, 0.95),
		P99MS:         percentile(durations, 0.99),
		MaxMS:         percentile(durations, 1.00),
		ThroughputRPS: round2(throughput),
		ErrorSamples:  errorSamples,
	}
}

func postJSON(client *http.Client, url string, payload any, expectedStatus int, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	request, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}

func getJSON(client *http.Client, url string, expectedStatus int) error {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("unexpected status %d (expected %d): %s", response.StatusCode, expectedStatus, string(body))
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return round2(values[0])
	}
	if p >= 1 {
		return round2(values[len(values)-1])
	}
	rank := int(math.Ceil(float64(len(values))*p)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return round2(values[rank])
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
