package extsort

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forwardSorter(t *testing.T, chunk int) *Sorter {
	t.Helper()
	cfg := config.SortConfig{ChunkRecords: chunk, Parallelism: 3, TempDir: t.TempDir()}
	return New(cfg, "\n", index.CompareForward, index.ValidateForward)
}

func sortLines(t *testing.T, s *Sorter, lines []string) ([]string, Stats) {
	t.Helper()
	var out bytes.Buffer
	stats, err := s.Sort(context.Background(), strings.NewReader(strings.Join(lines, "\r\n")+"\r\n"), &out)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n"), stats
}

func TestSortComparesIntegersNotStrings(t *testing.T) {
	lines := []string{
		"1\t10\t4",
		"2\t9\t1",
		"1\t2\t7",
		"10\t2\t1",
		"9\t2\t3",
	}

	got, stats := sortLines(t, forwardSorter(t, 2), lines)

	assert.Equal(t, []string{
		"1\t2\t7",
		"9\t2\t3",
		"10\t2\t1",
		"2\t9\t1",
		"1\t10\t4",
	}, got)
	assert.Equal(t, Stats{Records: 5, Runs: 3}, stats)
}

func TestSortIsStableAcrossRuns(t *testing.T) {
	lines := []string{"1\t1\t5", "1\t1\t3", "1\t1\t9", "1\t1\t1"}

	got, _ := sortLines(t, forwardSorter(t, 1), lines)

	assert.Equal(t, lines, got)
}

func TestSortMatchesInMemorySort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var lines []string
	for doc := 1; doc <= 200; doc++ {
		for _, term := range rng.Perm(30)[:5] {
			lines = append(lines, fmt.Sprintf("%d\t%d\t%d", doc, term+1, rng.Intn(100)+1))
		}
	}
	rng.Shuffle(len(lines), func(i, j int) { lines[i], lines[j] = lines[j], lines[i] })

	want := append([]string(nil), lines...)
	sort.SliceStable(want, func(i, j int) bool { return index.CompareForward(want[i], want[j]) < 0 })

	got, stats := sortLines(t, forwardSorter(t, 37), lines)
	assert.Equal(t, want, got)
	assert.Equal(t, int64(len(lines)), stats.Records)
}

func TestSortRejectsMalformedInput(t *testing.T) {
	var out bytes.Buffer
	_, err := forwardSorter(t, 10).Sort(context.Background(), strings.NewReader("1\t2\t3\nbad\n"), &out)
	assert.True(t, apperrors.Is(err, apperrors.ErrMalformedRecord))
}

func TestSortFileWithCRLF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(in, []byte("2\t3\t1\r\n1\t3\t2\r\n"), 0o644))

	s := New(config.SortConfig{ChunkRecords: 1, TempDir: dir}, "\r\n", index.CompareForward, nil)
	stats, err := s.SortFile(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Runs)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "1\t3\t2\r\n2\t3\t1\r\n", string(data))
}

func TestSortEmptyInput(t *testing.T) {
	var out bytes.Buffer
	stats, err := forwardSorter(t, 4).Sort(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Empty(t, out.String())
}

func BenchmarkSort(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	var sb strings.Builder
	for i := 0; i < 20000; i++ {
		fmt.Fprintf(&sb, "%d\t%d\t%d\n", rng.Intn(1000)+1, rng.Intn(5000)+1, rng.Intn(500)+1)
	}
	input := sb.String()
	s := New(config.SortConfig{ChunkRecords: 2000, Parallelism: 4, TempDir: b.TempDir()}, "\n", index.CompareForward, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out bytes.Buffer
		if _, err := s.Sort(context.Background(), strings.NewReader(input), &out); err != nil {
			b.Fatal(err)
		}
	}
}
