// Package main provides a performance benchmarking tool for the idbhealth CLI.
// It measures assessment times against one warehouse environment across worker
// counts and command scopes, treating the first successful run as cold and
// averaging the rest as warm, and writes the results to CSV.
//
// Prerequisites:
// - idbhealth binary installed and available in PATH
// - Warehouse credentials available through IDBHEALTH_<ENV>_* variables or .idbhealth.yaml
//
// Usage: go run benchmark/main.go [dev|prod]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the timings of one command at one worker count.
type BenchmarkResult struct {
	Command  string
	Workers  int
	Runs     int
	Failures int
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Env      string
	Timeout  time.Duration
	Runs     int
	Workers  []int
	Commands []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [dev|prod]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		Env:      os.Args[1],
		Timeout:  5 * time.Minute,
		Runs:     4,
		Workers:  []int{1, 4, 8, 16},
		Commands: []string{"tables", "triggers", "assess"},
	}

	if _, err := exec.LookPath("idbhealth"); err != nil {
		fmt.Printf("Prerequisites check failed: idbhealth binary not found in PATH\n")
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// runBenchmarks executes every command at every worker count.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: env %s, %v timeout, %d runs per case\n", config.Env, config.Timeout, config.Runs)

	for _, command := range config.Commands {
		for _, workers := range config.Workers {
			fmt.Printf("Running %s with %d workers\n", command, workers)
			result := runBenchmark(config, command, workers)
			fmt.Printf("  Cold: %s, Warm average: %s, Failures: %d\n", result.ColdTime, result.WarmTime, result.Failures)
			results = append(results, result)
		}
	}

	return results
}

// runBenchmark runs one command several times and returns its cold and warm timings.
// History is disabled so that only warehouse round trips are measured.
func runBenchmark(config BenchmarkConfig, command string, workers int) BenchmarkResult {
	args := []string{command, config.Env, "--workers", strconv.Itoa(workers), "--history-backend", "none", "--color", "no"}

	var times []float64
	failures := 0
	for run := 1; run <= config.Runs; run++ {
		elapsed, err := timeCommand(config.Timeout, args)
		if err != nil {
			failures++
			continue
		}
		times = append(times, elapsed.Seconds())
	}

	result := BenchmarkResult{
		Command:  command,
		Workers:  workers,
		Runs:     config.Runs,
		Failures: failures,
		ColdTime: "FAILED",
		WarmTime: "FAILED",
	}
	if len(times) > 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", times[0])
	}
	if len(times) > 1 {
		var sum float64
		for _, t := range times[1:] {
			sum += t
		}
		result.WarmTime = fmt.Sprintf("%.3fs", sum/float64(len(times)-1))
	}
	return result
}

// timeCommand runs idbhealth once and reports the wall time of a successful run.
func timeCommand(timeout time.Duration, args []string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	output, err := exec.CommandContext(ctx, "idbhealth", args...).CombinedOutput()
	elapsed := time.Since(start)
	if err != nil {
		return 0, err
	}
	if !isSuccess(output) {
		return 0, errors.New("assessment did not complete")
	}
	return elapsed, nil
}

// isSuccess checks that the text footer was printed.
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "completed in") && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/idbhealth_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"cmd", "workers", "runs", "failures", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{
			result.Command,
			strconv.Itoa(result.Workers),
			strconv.Itoa(result.Runs),
			strconv.Itoa(result.Failures),
			result.ColdTime,
			result.WarmTime,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results grouped by command.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"tables", "triggers", "assess"} {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %2d workers: Cold: %s, Warm: %s\n", result.Workers, result.ColdTime, result.WarmTime)
			}
		}
	}
}
