// Package main - strider
// Load generator for stress testing: simulates a crowd of walking players
// streaming GPS fixes and gameplay actions over WebSocket.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config for the strider run
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	CenterLat      float64
	CenterLng      float64
	SideDeg        float64
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func main() {
	// Parse flags
	serverURL := flag.String("url", "http://localhost:8080", "Server base URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 250*time.Millisecond, "Location interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	centerLat := flag.Float64("lat", 40.4168, "Play area center latitude")
	centerLng := flag.Float64("lng", -3.7038, "Play area center longitude")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		CenterLat:      *centerLat,
		CenterLng:      *centerLng,
		SideDeg:        0.02,
	}

	fmt.Println("=========================================")
	fmt.Println("STRIDER - Pursuit Stress Test Tool")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	joinCode, err := createSession(config)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	fmt.Printf("Session created with join code %s\n", joinCode)

	// Setup graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	// Run the stress test
	stats := runStressTest(ctx, config, joinCode)

	// Print results
	printResults(stats, config)
}

// createSession provisions one big lobby for the whole crowd.
func createSession(config Config) (string, error) {
	h := config.SideDeg / 2
	body := map[string]interface{}{
		"duration_minutes": int(config.TestDuration/time.Minute) + 5,
		"max_hunters":      config.NumClients/2 + 1,
		"max_hunted":       config.NumClients/2 + 1,
		"boundary": []map[string]float64{
			{"lat": config.CenterLat - h, "lng": config.CenterLng - h},
			{"lat": config.CenterLat + h, "lng": config.CenterLng - h},
			{"lat": config.CenterLat + h, "lng": config.CenterLng + h},
			{"lat": config.CenterLat - h, "lng": config.CenterLng + h},
		},
	}
	payload, _ := json.Marshal(body)

	resp, err := http.Post(config.ServerURL+"/api/sessions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var created struct {
		JoinCode string `json:"join_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.JoinCode, nil
}

func runStressTest(ctx context.Context, config Config, joinCode string) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, joinCode, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	// Progress updates
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.MessagesSent)
				recv := atomic.LoadInt64(&stats.MessagesReceived)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("Progress: Sent=%d Recv=%d Errors=%d\n", sent, recv, errs)
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, joinCode string, stats *Stats) {
	playerID := fmt.Sprintf("STRIDER_%03d", clientID)

	wsBase := "ws" + config.ServerURL[len("http"):]
	u, err := url.Parse(wsBase + "/ws")
	if err != nil {
		log.Printf("Client %d: URL parse error: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}

	q := u.Query()
	q.Set("code", joinCode)
	q.Set("player_id", playerID)
	q.Set("name", playerID)
	u.RawQuery = q.Encode()

	// Connect
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Start receiver goroutine
	go func() {
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
		}
	}()

	// Client zero is the host: give the lobby a moment to fill, then start.
	if clientID == 0 {
		time.Sleep(time.Duration(config.NumClients)*10*time.Millisecond + time.Second)
		if err := conn.WriteJSON(map[string]interface{}{"type": "START_SESSION"}); err != nil {
			atomic.AddInt64(&stats.Errors, 1)
			return
		}
	}

	// Random walk inside the play area.
	rng := rand.New(rand.NewSource(int64(clientID) + time.Now().UnixNano()))
	h := config.SideDeg / 2
	lat := config.CenterLat + (rng.Float64()-0.5)*config.SideDeg
	lng := config.CenterLng + (rng.Float64()-0.5)*config.SideDeg
	step := 0.00005 // roughly five meters per tick

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lat += (rng.Float64() - 0.5) * 2 * step
			lng += (rng.Float64() - 0.5) * 2 * step
			lat = clamp(lat, config.CenterLat-h, config.CenterLat+h)
			lng = clamp(lng, config.CenterLng-h, config.CenterLng+h)

			action := map[string]interface{}{
				"type": "LOCATION",
				"payload": map[string]interface{}{
					"lat":      lat,
					"lng":      lng,
					"accuracy": 5.0,
				},
			}

			// Occasionally try to tag a neighbor or start a pickup; the
			// server treats invalid attempts as silent no-ops.
			if rng.Float64() < 0.02 {
				action = map[string]interface{}{
					"type": "ATTEMPT_CATCH",
					"payload": map[string]interface{}{
						"target_id": fmt.Sprintf("STRIDER_%03d", rng.Intn(config.NumClients)),
					},
				}
			}

			start := time.Now()
			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	// Calculate throughput
	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	// Latency stats
	if len(stats.Latencies) > 0 {
		var total time.Duration
		var min, max time.Duration = stats.Latencies[0], stats.Latencies[0]

		for _, l := range stats.Latencies {
			total += l
			if l < min {
				min = l
			}
			if l > max {
				max = l
			}
		}

		avg := total / time.Duration(len(stats.Latencies))

		fmt.Printf("\nLatency:\n")
		fmt.Printf("  Min: %v\n", min)
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  Max: %v\n", max)
	}

	// Verdict
	fmt.Println("\n-----------------------------------------")
	if errs == 0 {
		fmt.Println("TEST PASSED: System handled the load")
	} else if float64(errs)/float64(sent+1) < 0.05 {
		fmt.Println("TEST WARNING: Some errors detected")
	} else {
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	// Export results as JSON
	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	os.WriteFile("stress_test_results.json", jsonData, 0644)
	fmt.Println("\nResults saved to stress_test_results.json")
}
