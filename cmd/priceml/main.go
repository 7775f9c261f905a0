// Command priceml runs the vehicle price study: it loads an automobile
// table, searches ridge and gradient boosting hyperparameters with 5-fold
// cross-validation on a training partition, prints the comparison, and
// reports the winner's held-out MAE.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/priceml/experiment"
	"github.com/YuminosukeSato/priceml/pkg/log"
)

func main() {
	var (
		dataPath     = flag.String("data", "automobile.csv", "path to the CSV table")
		naToken      = flag.String("na", "?", "missing value sentinel in the CSV")
		target       = flag.String("target", "price", "target column name")
		seed         = flag.Int("seed", 42, "random seed for split, folds and search")
		testFraction = flag.Float64("test-fraction", 0.33, "held-out partition fraction")
		folds        = flag.Int("folds", 5, "cross-validation folds")
		trials       = flag.Int("trials", 20, "randomized search trial budget")
		alphas       = flag.String("alphas", "10,1,0.1,0.01,0.001,0.0001,0", "comma-separated ridge alpha grid")
		plotPath     = flag.String("plot", "", "write a comparison bar chart to this path (optional)")
		logLevel     = flag.String("log-level", "warn", "debug, info, warn or error")
	)
	flag.Parse()

	setupLogging(*logLevel)

	cfg := experiment.DefaultConfig(*dataPath)
	cfg.MissingToken = *naToken
	cfg.Target = *target
	cfg.Seed = *seed
	cfg.TestFraction = *testFraction
	cfg.Folds = *folds
	cfg.Trials = *trials

	parsed, err := parseAlphas(*alphas)
	if err != nil {
		fatal(err)
	}
	cfg.Alphas = parsed

	result, err := experiment.Run(cfg)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("rows loaded: %d, modeled: %d (dropped %d without %s)\n",
		result.RowsLoaded, result.RowsModeled, result.RowsLoaded-result.RowsModeled, cfg.Target)
	fmt.Println("missing values per column:")
	printMissingCounts(result.MissingCounts)

	fmt.Println()
	fmt.Print(result.Comparison.Table())
	fmt.Println()
	fmt.Printf("chosen model: %s %v\n", result.ChosenLabel, result.ChosenParams)
	fmt.Printf("held-out MAE: %.2f\n", result.HeldOutMAE)

	if *plotPath != "" {
		if err := result.Comparison.SaveChart(*plotPath); err != nil {
			fatal(err)
		}
		fmt.Printf("comparison chart written to %s\n", *plotPath)
	}
}

func setupLogging(level string) {
	log.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr})
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.LevelDebug)
	case "info":
		log.SetLevel(log.LevelInfo)
	case "warn":
		log.SetLevel(log.LevelWarn)
	default:
		log.SetLevel(log.LevelError)
	}
}

func parseAlphas(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	alphas := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid alpha %q: %w", p, err)
		}
		alphas = append(alphas, v)
	}
	if len(alphas) == 0 {
		return nil, fmt.Errorf("alpha grid is empty")
	}
	return alphas, nil
}

func printMissingCounts(counts map[string]int) {
	cols := make([]string, 0, len(counts))
	for col := range counts {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		fmt.Printf("  %-20s %d\n", col, counts[col])
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "priceml: %v\n", err)
	os.Exit(1)
}
