package main

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticSubjects(t *testing.T) {
	subjects := syntheticSubjects(10)

	require.Len(t, subjects, 10)
	assert.Equal(t, "SB100", subjects[0].Code)
	assert.Equal(t, 1, subjects[0].Semester)
	assert.Equal(t, 8, subjects[7].Semester)
	assert.Equal(t, 1, subjects[8].Semester)
}

func TestMeasure(t *testing.T) {
	result := measure(TestMetadata{Name: "two", Subjects: syntheticSubjects(2)}, defaults, 2)

	assert.Equal(t, solved, result.Result)
	assert.Positive(t, result.Classes)

	result = measure(TestMetadata{Name: "none"}, defaults, 1)
	assert.Equal(t, empty, result.Result)
}

func TestToCsv(t *testing.T) {
	var output bytes.Buffer
	err := toCsv(&output, []BenchmarkResult{
		{Variant: compact, Test: TestMetadata{Name: "synthetic-3", Subjects: syntheticSubjects(3)}, Duration: 42, Classes: 12, Spread: 1},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(&output).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"compact", "synthetic-3", "3", "42", "12", "1", "solved"}, records[1])
}
