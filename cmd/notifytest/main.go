// Package main provides a stress testing tool for the notifications
// WebSocket. It onboards a ring of founders, opens one badge stream per
// founder, then has every founder follow the next one and counts the badge
// updates that come back.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the test results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	FollowsSent          int64
	UpdatesReceived      int64
	Errors               int64
}

var metrics Metrics

var httpClient = &http.Client{Timeout: 10 * time.Second}

type badges struct {
	FriendRequestCount int      `json:"friendRequestCount"`
	UnreadPeers        []string `json:"unreadPeers"`
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	clients := flag.Int("clients", 20, "Number of founders to onboard and connect")
	prefix := flag.String("prefix", fmt.Sprintf("Load %d", time.Now().Unix()), "Company name prefix")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	log.Printf("Starting notifications stress test")
	log.Printf("Target: %s", *host)
	log.Printf("Clients: %d", *clients)
	log.Printf("Duration: %v", *duration)

	names := make([]string, *clients)
	tokens := make([]string, *clients)
	for i := range names {
		names[i] = fmt.Sprintf("%s %03d", *prefix, i)
		token, err := onboard(*host, names[i])
		if err != nil {
			log.Fatalf("Onboarding %s failed: %v", names[i], err)
		}
		tokens[i] = token
	}
	log.Printf("Onboarded %d founders", len(names))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := range tokens {
		wg.Add(1)
		go runClient(*host, tokens[i], names[i], stopChan, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	// Each founder follows the next, so everyone ends up with one pending
	// request on their badge.
	go func() {
		for i := range tokens {
			next := names[(i+1)%len(names)]
			if err := follow(*host, tokens[i], next); err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				log.Printf("follow %s failed: %v", next, err)
				continue
			}
			atomic.AddInt64(&metrics.FollowsSent, 1)
		}
	}()

	select {
	case <-time.After(*duration):
		log.Println("Test duration reached")
	case <-interrupt:
		log.Println("Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for clients to disconnect...")
	wg.Wait()

	printMetrics()
}

func postJSON(endpoint, token string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return httpClient.Do(req)
}

func onboard(host, name string) (string, error) {
	resp, err := postJSON(fmt.Sprintf("http://%s/api/auth/onboard", host), "", map[string]string{
		"companyName": name,
		"password":    "password123",
		"description": "Load test founder",
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("onboarding failed with status %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Data.Token, nil
}

func follow(host, token, name string) error {
	endpoint := fmt.Sprintf("http://%s/api/connections/%s/toggle", host, url.PathEscape(name))
	resp, err := postJSON(endpoint, token, nil)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("toggle failed with status %d", resp.StatusCode)
	}
	return nil
}

func runClient(host, token, name string, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws/notifications", RawQuery: "token=" + url.QueryEscape(token)}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	go func() {
		first := true
		for {
			var vm badges
			if err := c.ReadJSON(&vm); err != nil {
				return
			}
			if first {
				first = false
				continue
			}
			atomic.AddInt64(&metrics.UpdatesReceived, 1)
			if vm.FriendRequestCount > 1 {
				log.Printf("%s: unexpected %d pending requests", name, vm.FriendRequestCount)
			}
		}
	}()

	<-stopChan
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func printMetrics() {
	log.Println("Test Results")
	log.Println("============")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Follows Sent: %d", atomic.LoadInt64(&metrics.FollowsSent))
	log.Printf("Badge Updates Received: %d", atomic.LoadInt64(&metrics.UpdatesReceived))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
