package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/ahrav/go-essay-judge/internal/testutils"
)

func main() {
	var (
		size       = flag.Int("size", 50, "Number of essays to generate")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		name       = flag.String("competition", "Sample Competition", "Competition title written into the batch")
		minWords   = flag.Int("min-words", 250, "Minimum word count of the batch")
		maxWords   = flag.Int("max-words", 500, "Maximum word count of the batch")
		outputPath = flag.String("output", "testdata/sample_batch.yaml", "Output file path")
	)
	flag.Parse()

	essays := testutils.GenerateSampleEssays(*size, *seed)
	batch := testutils.ToBatch(*name, essays, *minWords, *maxWords)

	if err := testutils.SaveBatch(batch, *outputPath); err != nil {
		log.Fatalf("Failed to save batch: %v", err)
	}

	stats := testutils.ComputeStatistics(essays)
	profiles := make([]string, 0, len(stats.ProfileCount))
	for p, n := range stats.ProfileCount {
		profiles = append(profiles, fmt.Sprintf("%s=%d", p, n))
	}
	sort.Strings(profiles)

	fmt.Printf("Generated sample batch:\n")
	fmt.Printf("- Path: %s\n", *outputPath)
	fmt.Printf("- Seed: %d\n", *seed)
	fmt.Printf("- Essays: %d\n", stats.Total)
	fmt.Printf("- Profiles: %v\n", profiles)
	fmt.Printf("- Average words per essay: %.1f\n", stats.AvgWords)
}
