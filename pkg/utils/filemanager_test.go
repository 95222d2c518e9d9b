package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestGenerateOutputFileName(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)

	tests := []struct {
		name   string
		format string
		params map[string]string
		want   *regexp.Regexp
	}{
		{
			name:   "default format",
			format: "trips_{timestamp}_{uuid}.xlsx",
			want:   regexp.MustCompile(`^trips_20240115_143022_[0-9a-f-]{36}\.xlsx$`),
		},
		{
			name:   "adds extension",
			format: "{date}-{time}",
			want:   regexp.MustCompile(`^20240115-143022\.xlsx$`),
		},
		{
			name:   "sanitizes params",
			format: "{source}.xlsx",
			params: map[string]string{"source": "my trips/jan"},
			want:   regexp.MustCompile(`^my_trips_jan\.xlsx$`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := generateOutputFileName(tt.format, tt.params, now)
			if !tt.want.MatchString(got) {
				t.Errorf("unexpected file name %q", got)
			}
		})
	}
}

func TestDiscoverInputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.XLSX", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := DiscoverInputFiles(dir)
	if err != nil {
		t.Fatalf("DiscoverInputFiles failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.XLSX"), filepath.Join(dir, "b.csv")}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("got %v, want %v", files, want)
	}

	single, err := DiscoverInputFiles(filepath.Join(dir, "notes.txt"))
	if err != nil || len(single) != 1 {
		t.Errorf("a single file should be returned as is, got %v, %v", single, err)
	}

	if _, err := DiscoverInputFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestOutputPathWithDateSubdirs(t *testing.T) {
	fm := NewFileManager(t.TempDir())
	fm.UseDateSubdirs = true

	path, err := fm.OutputPath("trips_{date}.xlsx", nil)
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	rel, _ := filepath.Rel(fm.OutputDir, path)
	if strings.Count(rel, string(filepath.Separator)) != 3 {
		t.Errorf("expected year/month/day subdirectories, got %s", rel)
	}
	if !FileExists(filepath.Dir(path)) {
		t.Error("output directory should have been created")
	}
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	summary := ExportSummary{
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
		Exported: []ExportedFileInfo{{
			InputFile: "trips.csv", OutputFile: "trips.xlsx", Days: 2, Trips: 3, TotalEUR: "€42.00",
		}},
		FailedFiles: []FailedFileInfo{{InputFile: "bad.csv", ErrorMessage: "No trip rows were found in this CSV."}},
	}

	path, err := WriteSummaryLog(summary, dir)
	if err != nil {
		t.Fatalf("WriteSummaryLog failed: %v", err)
	}
	if filepath.Base(path) != "export_summary_20240115_143000.txt" {
		t.Errorf("unexpected summary name %s", path)
	}
	data, _ := os.ReadFile(path)
	for _, want := range []string{"Exported:       1", "Failed:         1", "€42.00", "bad.csv"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestSourceName(t *testing.T) {
	if got := SourceName("/tmp/exports/jan.trips.csv"); got != "jan.trips" {
		t.Errorf("unexpected source name %q", got)
	}
}
