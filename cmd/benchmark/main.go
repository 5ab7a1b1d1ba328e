package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/pkg/model"
)

type RuleVariant int

const (
	defaults RuleVariant = iota
	noBalance
	strictDaily
	compact
)

type ResultType int

const (
	solved ResultType = iota
	empty
	invalid
)

var (
	ruleVariants = map[RuleVariant]string{
		defaults:    "defaults",
		noBalance:   "no-balance",
		strictDaily: "strict-daily",
		compact:     "compact",
	}
	resultTypes = map[ResultType]string{
		solved:  "solved",
		empty:   "empty",
		invalid: "invalid",
	}
)

type TestMetadata struct {
	Name     string
	Subjects []model.Subject
}

type BenchmarkResult struct {
	Variant  RuleVariant
	Test     TestMetadata
	Duration int64 // Mean microseconds per build
	Classes  int
	Spread   int // Difference between the most and least scheduled subject
	Result   ResultType
}

func main() {
	directoryPtr := flag.String("dir", "", "Directory with subject JSON files; if empty, synthetic subject sets are used")
	repeatPtr := flag.Int("repeat", 50, "Builds per test and rule variant")
	outFilePathPtr := flag.String("out", "benchmark_results.csv", "Path to the CSV file with the results")
	flag.Parse()

	if *repeatPtr <= 0 {
		log.Fatalf("repeat must be positive: %v", *repeatPtr)
	}

	tests, err := getTests(*directoryPtr)
	if err != nil {
		log.Fatalf("cannot load tests: %v", err)
	}

	results := make([]BenchmarkResult, 0, len(tests)*len(ruleVariants))
	for _, test := range tests {
		for _, variant := range getVariants() {
			fmt.Printf("Benchmarking test \"%v\" with rules \"%v\"\n", test.Name, ruleVariants[variant])
			results = append(results, measure(test, variant, *repeatPtr))
		}
	}

	file, err := os.Create(*outFilePathPtr)
	if err != nil {
		log.Fatalf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	if err := toCsv(file, results); err != nil {
		log.Fatalf("cannot write CSV file: %v", err)
	}
}

func getTests(directory string) ([]TestMetadata, error) {
	if directory == "" {
		return lo.Map([]int{1, 3, 5, 8, 13, 21, 34}, func(count int, _ int) TestMetadata {
			return TestMetadata{Name: fmt.Sprintf("synthetic-%d", count), Subjects: syntheticSubjects(count)}
		}), nil
	}

	files, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	tests := make([]TestMetadata, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		filename := filepath.Join(directory, file.Name())
		subjects, err := model.SubjectsFromJson(filename)
		if err != nil {
			return nil, fmt.Errorf("cannot parse input file %v: %w", filename, err)
		}
		tests = append(tests, TestMetadata{Name: filename, Subjects: subjects})
	}
	return tests, nil
}

// syntheticSubjects spreads count subjects over eight semesters
func syntheticSubjects(count int) []model.Subject {
	return lo.Times(count, func(i int) model.Subject {
		return model.Subject{
			Name:     fmt.Sprintf("Subject %d", i+1),
			Code:     fmt.Sprintf("SB%d", 100+i),
			Semester: i%8 + 1,
		}
	})
}

func getVariants() []RuleVariant {
	return []RuleVariant{defaults, noBalance, strictDaily, compact}
}

func overrides(variant RuleVariant) model.RuleOverrides {
	switch variant {
	case noBalance:
		return model.RuleOverrides{BalanceSubjects: lo.ToPtr(false)}
	case strictDaily:
		return model.RuleOverrides{EnforceMaxClassesPerDay: lo.ToPtr(true), MaxClassesPerDay: lo.ToPtr(4)}
	case compact:
		return model.RuleOverrides{
			TimeSlots:  []string{"09:00", "10:00", "11:00", "12:00"},
			LunchBreak: lo.ToPtr("12:00"),
		}
	}
	return model.RuleOverrides{}
}

func measure(test TestMetadata, variant RuleVariant, repeat int) BenchmarkResult {
	timetabler := model.NewHeuristicTimetabler(zap.NewNop())
	rules := overrides(variant)

	var timetable []model.TimetableRow
	var err error
	start := time.Now()
	for range repeat {
		timetable, err = timetabler.Build(test.Subjects, rules)
	}
	duration := time.Since(start).Microseconds() / int64(repeat)

	result := BenchmarkResult{Variant: variant, Test: test, Duration: duration}
	if errors.Is(err, model.ErrNoSubjects) {
		result.Result = empty
		return result
	} else if err != nil {
		log.Fatalf("an error occurred during timetable construction at test \"%v\" using rules \"%v\": %v", test.Name, ruleVariants[variant], err)
	}

	applied := rules.Apply(model.DefaultRules())
	occurrences := model.Occurrences(timetable, test.Subjects, applied.Days)
	counts := lo.Values(occurrences)
	result.Classes = lo.Sum(counts)
	result.Spread = lo.Max(counts) - lo.Min(counts)
	result.Result = lo.Ternary(timetabler.Verify(timetable, test.Subjects, rules), solved, invalid)
	return result
}

func toCsv(output io.Writer, results []BenchmarkResult) error {
	writer := csv.NewWriter(output)

	header := []string{"Rules", "Test", "Subjects", "Duration(us)", "Classes", "Spread", "Result"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{
			ruleVariants[result.Variant],
			result.Test.Name,
			strconv.Itoa(len(result.Test.Subjects)),
			strconv.FormatInt(result.Duration, 10),
			strconv.Itoa(result.Classes),
			strconv.Itoa(result.Spread),
			resultTypes[result.Result],
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("cannot write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
