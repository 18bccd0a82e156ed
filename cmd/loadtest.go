package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// LoadTestConfig holds configuration for load testing
type LoadTestConfig struct {
	BaseURL         string
	Token           string
	OfferingID      uuid.UUID
	ClassDate       string
	Periods         int
	ConcurrentUsers int
	RequestsPerUser int
}

type sessionRequest struct {
	OfferingID   uuid.UUID `json:"offeringId"`
	ClassDate    string    `json:"classDate"`
	PeriodNumber int       `json:"periodNumber"`
}

type sessionEnvelope struct {
	Data struct {
		SessionID uuid.UUID `json:"sessionId"`
		Created   bool      `json:"created"`
	} `json:"data"`
}

// LoadTestResult holds the results of load testing
type LoadTestResult struct {
	TotalRequests     int
	SuccessfulReqs    int
	CreatedReqs       int
	FailedReqs        int
	AvgResponseTimeMs float64
	MaxResponseTimeMs int64
	MinResponseTimeMs int64
	ThroughputRPS     float64
	ErrorsByType      map[string]int
	// SessionsByPeriod collects every session id returned for a period;
	// find-or-create must converge on exactly one.
	SessionsByPeriod map[int]map[uuid.UUID]int
}

// LoadTester hammers session find-or-create for a handful of class slots
type LoadTester struct {
	config    LoadTestConfig
	client    *http.Client
	results   LoadTestResult
	mutex     sync.Mutex
	startTime time.Time
}

// NewLoadTester creates a new load tester
func NewLoadTester(config LoadTestConfig) *LoadTester {
	return &LoadTester{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		results: newLoadTestResult(),
	}
}

func newLoadTestResult() LoadTestResult {
	return LoadTestResult{
		ErrorsByType:     make(map[string]int),
		SessionsByPeriod: make(map[int]map[uuid.UUID]int),
	}
}

// RunLoadTest executes the load test
func (lt *LoadTester) RunLoadTest() {
	fmt.Printf("Starting load test with %d concurrent users over %d periods...\n", lt.config.ConcurrentUsers, lt.config.Periods)

	lt.startTime = time.Now()
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, lt.config.ConcurrentUsers)
	totalRequests := lt.config.ConcurrentUsers * lt.config.RequestsPerUser

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)

		go func(requestID int) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			lt.findOrCreate(1 + requestID%lt.config.Periods)
		}(i)
	}

	wg.Wait()

	lt.calculateMetrics()
	lt.printResults()
}

func (lt *LoadTester) findOrCreate(period int) {
	startTime := time.Now()

	body, err := json.Marshal(sessionRequest{
		OfferingID:   lt.config.OfferingID,
		ClassDate:    lt.config.ClassDate,
		PeriodNumber: period,
	})
	if err != nil {
		lt.recordError("json_marshal")
		return
	}

	req, err := http.NewRequest(http.MethodPost, lt.config.BaseURL+"/api/v1/attendance/session", bytes.NewReader(body))
	if err != nil {
		lt.recordError("build_request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+lt.config.Token)

	resp, err := lt.client.Do(req)
	responseTime := time.Since(startTime)
	if err != nil {
		lt.recordError("http_request")
		return
	}
	defer resp.Body.Close()

	var env sessionEnvelope
	if resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			lt.recordError("decode_response")
			return
		}
	}
	lt.recordResponse(period, resp.StatusCode, responseTime, env)
}

// recordResponse records the response metrics
func (lt *LoadTester) recordResponse(period, statusCode int, responseTime time.Duration, env sessionEnvelope) {
	lt.mutex.Lock()
	defer lt.mutex.Unlock()

	lt.results.TotalRequests++
	responseTimeMs := responseTime.Milliseconds()

	if lt.results.MaxResponseTimeMs < responseTimeMs {
		lt.results.MaxResponseTimeMs = responseTimeMs
	}
	if lt.results.MinResponseTimeMs == 0 || lt.results.MinResponseTimeMs > responseTimeMs {
		lt.results.MinResponseTimeMs = responseTimeMs
	}

	currentAvg := lt.results.AvgResponseTimeMs
	currentCount := float64(lt.results.TotalRequests)
	lt.results.AvgResponseTimeMs = (currentAvg*(currentCount-1) + float64(responseTimeMs)) / currentCount

	if statusCode < 200 || statusCode >= 300 {
		lt.results.FailedReqs++
		lt.results.ErrorsByType[fmt.Sprintf("http_%d", statusCode)]++
		return
	}

	lt.results.SuccessfulReqs++
	if env.Data.Created {
		lt.results.CreatedReqs++
	}
	seen := lt.results.SessionsByPeriod[period]
	if seen == nil {
		seen = make(map[uuid.UUID]int)
		lt.results.SessionsByPeriod[period] = seen
	}
	seen[env.Data.SessionID]++
}

// recordError records an error that occurred during testing
func (lt *LoadTester) recordError(errorType string) {
	lt.mutex.Lock()
	defer lt.mutex.Unlock()

	lt.results.TotalRequests++
	lt.results.FailedReqs++
	lt.results.ErrorsByType[errorType]++
}

func (lt *LoadTester) calculateMetrics() {
	totalDuration := time.Since(lt.startTime)
	lt.results.ThroughputRPS = float64(lt.results.TotalRequests) / totalDuration.Seconds()
}

// duplicatePeriods lists the periods for which more than one session id came back
func (lt *LoadTester) duplicatePeriods() []int {
	var periods []int
	for period, ids := range lt.results.SessionsByPeriod {
		if len(ids) > 1 {
			periods = append(periods, period)
		}
	}
	sort.Ints(periods)
	return periods
}

// printResults displays the load test results
func (lt *LoadTester) printResults() {
	fmt.Println("\n" + strings.Repeat("=", 80))

	fmt.Printf("Test Configuration:\n")
	fmt.Printf("  - Offering: %s on %s\n", lt.config.OfferingID, lt.config.ClassDate)
	fmt.Printf("  - Periods: %d\n", lt.config.Periods)
	fmt.Printf("  - Concurrent Users: %d\n", lt.config.ConcurrentUsers)
	fmt.Printf("  - Requests per User: %d\n", lt.config.RequestsPerUser)

	total := float64(lt.results.TotalRequests)
	fmt.Printf("\nOverall Performance:\n")
	fmt.Printf("  - Total Requests: %d\n", lt.results.TotalRequests)
	fmt.Printf("  - Successful: %d (%.2f%%)\n", lt.results.SuccessfulReqs, float64(lt.results.SuccessfulReqs)/total*100)
	fmt.Printf("  - Created a session: %d\n", lt.results.CreatedReqs)
	fmt.Printf("  - Failed: %d (%.2f%%)\n", lt.results.FailedReqs, float64(lt.results.FailedReqs)/total*100)

	fmt.Printf("\nResponse Time Metrics:\n")
	fmt.Printf("  - Average: %.2f ms\n", lt.results.AvgResponseTimeMs)
	fmt.Printf("  - Minimum: %d ms\n", lt.results.MinResponseTimeMs)
	fmt.Printf("  - Maximum: %d ms\n", lt.results.MaxResponseTimeMs)
	fmt.Printf("\nThroughput:\n")
	fmt.Printf("  - Requests per Second: %.2f\n", lt.results.ThroughputRPS)

	if len(lt.results.ErrorsByType) > 0 {
		fmt.Printf("\nError Breakdown:\n")
		for errorType, count := range lt.results.ErrorsByType {
			fmt.Printf("  - %s: %d\n", errorType, count)
		}
	}

	fmt.Printf("\nSession Uniqueness:\n")
	if dups := lt.duplicatePeriods(); len(dups) > 0 {
		for _, period := range dups {
			fmt.Printf("  - period %d returned %d distinct sessions\n", period, len(lt.results.SessionsByPeriod[period]))
		}
	} else {
		fmt.Printf("  - every period converged on one session\n")
	}
}

// RunConcurrencyStressTest repeats the run with increasing concurrency
func (lt *LoadTester) RunConcurrencyStressTest() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("CONCURRENCY STRESS TEST")
	fmt.Println(strings.Repeat("=", 80))

	for _, concurrency := range []int{10, 50, 100, 200} {
		fmt.Printf("\nTesting with %d concurrent users...\n", concurrency)

		originalConfig := lt.config
		lt.config.ConcurrentUsers = concurrency
		lt.config.RequestsPerUser = 5
		lt.results = newLoadTestResult()

		lt.RunLoadTest()

		lt.config = originalConfig
	}
}

// loadtestCmd represents the loadtest command
var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Race concurrent session find-or-create requests against a running API",
	Long: `Fire concurrent POST /attendance/session requests for a few class slots of one
offering and report latency, throughput and whether every slot converged on a
single attendance session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoadTest()
	},
}

var (
	baseURL         string
	bearerToken     string
	offeringID      string
	classDate       string
	periods         int
	concurrentUsers int
	requestsPerUser int
	stressTest      bool
)

func init() {
	rootCmd.AddCommand(loadtestCmd)

	loadtestCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the API")
	loadtestCmd.Flags().StringVar(&bearerToken, "token", "", "Bearer token of an admin or the offering's teacher")
	loadtestCmd.Flags().StringVar(&offeringID, "offering", "", "Offering to create sessions for")
	loadtestCmd.Flags().StringVar(&classDate, "date", time.Now().Format("2006-01-02"), "Class date")
	loadtestCmd.Flags().IntVar(&periods, "periods", 4, "Number of distinct periods to contend on")
	loadtestCmd.Flags().IntVar(&concurrentUsers, "concurrent", 50, "Number of concurrent users")
	loadtestCmd.Flags().IntVar(&requestsPerUser, "requests", 10, "Number of requests per user")
	loadtestCmd.Flags().BoolVar(&stressTest, "stress", false, "Run concurrency stress test")
	loadtestCmd.MarkFlagRequired("token")
	loadtestCmd.MarkFlagRequired("offering")
}

func runLoadTest() error {
	id, err := uuid.Parse(offeringID)
	if err != nil {
		return fmt.Errorf("invalid --offering: %w", err)
	}
	if periods < 1 || periods > 12 {
		return fmt.Errorf("--periods must be between 1 and 12")
	}

	loadTester := NewLoadTester(LoadTestConfig{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		Token:           bearerToken,
		OfferingID:      id,
		ClassDate:       classDate,
		Periods:         periods,
		ConcurrentUsers: concurrentUsers,
		RequestsPerUser: requestsPerUser,
	})

	fmt.Println("Attendance Session Load Test")
	fmt.Println("============================")

	loadTester.RunLoadTest()
	if stressTest {
		loadTester.RunConcurrencyStressTest()
	}

	if dups := loadTester.duplicatePeriods(); len(dups) > 0 {
		return fmt.Errorf("duplicate sessions created for periods %v", dups)
	}
	return nil
}
