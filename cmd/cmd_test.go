package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const csvHeader = "Request Date (UTC),Request Time (UTC),First Name,Last Name,Employee ID,Service,City,Pickup Address,Drop-off Address,Transaction Type,Transaction Amount (Local Currency),Transaction Amount EUR\n"

const sampleCSV = "Business trips report\n" + csvHeader +
	"01/15/2024,2:30PM,Ann,Lee,E1,UberX,Madrid,Gran Via 1,Sol 2,Fare,10.00,10.00\n" +
	"01/15/2024,2:30PM,Ann,Lee,E1,UberX,Madrid,Gran Via 1,Sol 2,Tip,2.00,2.00\n" +
	"01/16/2024,9:00AM,Ann,Lee,E1,Comfort,Madrid,Sol 2,Atocha,Fare,20.50,20.50\n"

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSummaryCommand(t *testing.T) {
	file := writeFile(t, t.TempDir(), "trips.csv", sampleCSV)

	out, err := runCommand(t, "summary", "--file", file)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	for _, want := range []string{
		"Loaded 2 trips across 2 day(s).",
		"Total:   €32.50",
		"Tue, Jan 16, 2024",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryCommandWithoutHeader(t *testing.T) {
	file := writeFile(t, t.TempDir(), "other.csv", "a,b,c\n1,2,3\n")

	_, err := runCommand(t, "summary", "--file", file)
	if err == nil || err.Error() != "Could not find the trip transactions header in this file." {
		t.Errorf("got %v, want the header message", err)
	}
}

func TestExportCommand(t *testing.T) {
	file := writeFile(t, t.TempDir(), "trips.csv", sampleCSV)
	outDir := t.TempDir()

	out, err := runCommand(t, "export", "--file", file, "--out", outDir)
	if err != nil {
		t.Fatalf("export failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "✓ trips.csv") {
		t.Errorf("expected a success line:\n%s", out)
	}

	workbooks, _ := filepath.Glob(filepath.Join(outDir, "*.xlsx"))
	if len(workbooks) != 1 {
		t.Errorf("expected one workbook in %s, got %v", outDir, workbooks)
	}
	summaries, _ := filepath.Glob(filepath.Join(outDir, "export_summary_*.txt"))
	if len(summaries) != 1 {
		t.Errorf("expected one export summary, got %v", summaries)
	}
}

func TestValidateCommand(t *testing.T) {
	file := writeFile(t, t.TempDir(), "trips.csv", sampleCSV+
		"02/30/2024,2:30PM,Ann,Lee,E1,UberX,Madrid,A,B,Fare,1,1\n")

	out, err := runCommand(t, "validate", "--file", file)
	if err == nil {
		t.Fatal("expected an error for a skipped row")
	}
	if !strings.Contains(out, "Skipped rows:") || !strings.Contains(out, "row 6") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDayCommand(t *testing.T) {
	geocoder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"40.4200","lon":"-3.7050"}]`))
	}))
	defer geocoder.Close()

	t.Setenv("TRIPDASH_GEOCODER_ENDPOINT", geocoder.URL)
	t.Setenv("TRIPDASH_GEOCODER_MIN_REQUEST_INTERVAL", "-1ms")
	t.Setenv("TRIPDASH_CACHE_BACKEND", "memory")

	dir := t.TempDir()
	file := writeFile(t, dir, "trips.csv", sampleCSV)
	geojsonPath := filepath.Join(dir, "routes.geojson")
	kmlPath := filepath.Join(dir, "routes.kml")

	out, err := runCommand(t, "day", "--file", file, "--date", "2024-01-15",
		"--geojson", geojsonPath, "--kml", kmlPath)
	if err != nil {
		t.Fatalf("day failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Showing 1 of 1 trip route(s) for Mon, Jan 15, 2024.") {
		t.Errorf("unexpected output:\n%s", out)
	}

	data, err := os.ReadFile(geojsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil || fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Errorf("unexpected geojson (%v): %s", err, data)
	}
	if _, err := os.Stat(kmlPath); err != nil {
		t.Errorf("expected a KML file: %v", err)
	}

	if _, err := runCommand(t, "day", "--file", file, "--date", "2023-01-01", "--geojson", "", "--kml", ""); err == nil {
		t.Error("expected an error for an unknown day")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Trip Dashboard\n") {
		t.Errorf("unexpected output %q", out)
	}
}
