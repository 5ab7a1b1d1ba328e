package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/pkg/logger"
	"github.com/limaJavier/smartclassroom/pkg/model"
)

var validFormats = []string{"json", "table"}

func main() {
	// Define arguments
	filePathPtr := flag.String("file", "", "Path to the JSON file holding the subjects")
	rulesPathPtr := flag.String("rules", "", "Path to a JSON file with rule overrides (maxClassesPerDay, lunchBreak, noRepeatSubjectSameDay, ...)")
	lunchPtr := flag.String("lunch", "", "Time slot reserved for lunch; overrides the rules file")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	formatPtr := flag.String("format", "json", "Output format. Allowed values are: \"json\" and \"table\", where \"json\" is the default")
	logLevelPtr := flag.String("log-level", "warn", "Log level: debug, info, warn or error")
	flag.Parse()
	filePath := *filePathPtr
	outFile := *outFilePathPtr
	format := strings.ToLower(*formatPtr)

	log, err := logger.NewLogger(*logLevelPtr, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	// Validate arguments
	if !slices.Contains(validFormats, format) {
		log.Fatal("invalid output format", zap.String("format", format))
	} else if filePath == "" {
		log.Fatal("an input file must be specified")
	}

	// Extract input
	subjects, err := model.SubjectsFromJson(filePath)
	if err != nil {
		log.Fatal("cannot parse input file", zap.Error(err))
	}
	overrides, err := readOverrides(*rulesPathPtr)
	if err != nil {
		log.Fatal("cannot parse rules file", zap.Error(err))
	}
	if *lunchPtr != "" {
		overrides.LunchBreak = lo.ToPtr(*lunchPtr)
	}

	// Build timetable
	timetabler := model.NewHeuristicTimetabler(log.Named("timetabler"))
	timetable, err := timetabler.Build(subjects, overrides)
	if errors.Is(err, model.ErrNoSubjects) {
		fmt.Fprintln(os.Stderr, "Please add subjects first")
		os.Exit(20)
	} else if err != nil {
		log.Fatal("an error occurred during timetable construction", zap.Error(err))
	}

	// Verify timetable correctness
	if !timetabler.Verify(timetable, subjects, overrides) {
		fmt.Fprintln(os.Stderr, "The generated timetable violates the rules")
		os.Exit(15)
	}

	var output io.Writer = os.Stdout
	if outFile != "" {
		file, err := os.Create(outFile)
		if err != nil {
			log.Fatal("cannot create the output file", zap.Error(err))
		}
		defer file.Close()
		output = file
	}

	if err := write(output, timetable, format); err != nil {
		log.Fatal("an error occurred while writing the output", zap.Error(err))
	}
}

func readOverrides(path string) (model.RuleOverrides, error) {
	if path == "" {
		return model.RuleOverrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RuleOverrides{}, err
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return model.RuleOverrides{}, err
	}
	return model.RuleOverridesFromMap(values)
}

func write(output io.Writer, timetable []model.TimetableRow, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(timetable)
	}

	writer := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	if len(timetable) > 0 {
		days := lo.Map(timetable[0].Slots, func(slot model.Slot, _ int) string { return slot.Day })
		fmt.Fprintf(writer, "Time\t%v\n", strings.Join(days, "\t"))
	}
	for _, row := range timetable {
		labels := lo.Map(row.Slots, func(slot model.Slot, _ int) string { return slot.Label })
		fmt.Fprintf(writer, "%v\t%v\n", row.Time, strings.Join(labels, "\t"))
	}
	return writer.Flush()
}
