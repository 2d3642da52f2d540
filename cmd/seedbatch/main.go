// seedbatch populates a naturescout deployment from a YAML seed file: one
// pipeline run per (city, category) entry, executed sequentially so the
// upstream APIs are not hammered.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Jobs []seedJob `yaml:"jobs"`
}

type seedJob struct {
	City       string   `yaml:"city"`
	Category   string   `yaml:"category"`
	ThreadRefs []string `yaml:"thread_refs"`
	Force      bool     `yaml:"force"`
}

type runRequest struct {
	City       string   `json:"city"`
	Category   string   `json:"category"`
	ThreadRefs []string `json:"thread_refs"`
	Force      bool     `json:"force"`
}

func main() {
	var (
		file    = flag.String("file", "seed.yaml", "path to the seed YAML file")
		baseURL = flag.String("url", "http://localhost:8080", "naturescout API base URL")
		apiKey  = flag.String("key", os.Getenv("NATURESCOUT_API_KEY"), "API key for mutating endpoints")
		timeout = flag.Duration("timeout", 3*time.Minute, "per-run HTTP timeout")
	)
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read seed file: %v\n", err)
		os.Exit(1)
	}

	var seeds seedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		fmt.Fprintf(os.Stderr, "parse seed file: %v\n", err)
		os.Exit(1)
	}
	if len(seeds.Jobs) == 0 {
		fmt.Fprintln(os.Stderr, "seed file has no jobs")
		os.Exit(1)
	}

	client := &http.Client{Timeout: *timeout}
	var failed int
	for i, job := range seeds.Jobs {
		label := fmt.Sprintf("[%d/%d] %s / %s", i+1, len(seeds.Jobs), job.City, job.Category)
		if err := runJob(client, *baseURL, *apiKey, job); err != nil {
			failed++
			fmt.Printf("%s: FAILED: %v\n", label, err)
			continue
		}
		fmt.Printf("%s: ok\n", label)
	}

	fmt.Printf("done: %d succeeded, %d failed\n", len(seeds.Jobs)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func runJob(client *http.Client, baseURL, apiKey string, job seedJob) error {
	body, err := json.Marshal(runRequest{
		City:       job.City,
		Category:   job.Category,
		ThreadRefs: job.ThreadRefs,
		Force:      job.Force,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/pipeline/runs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
