// =============================================================================
// Trip Dashboard - File Manager Utility
// =============================================================================
//
// This module provides file utilities shared by the commands, including:
//   - Input discovery (a single export or a directory of exports)
//   - Output directory management
//   - Output file naming
//   - Export summary logs
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InputExtensions are the file extensions treated as trip exports.
var InputExtensions = []string{".csv", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the commands.
type FileManager struct {
	// OutputDir is the directory where exported workbooks are placed.
	OutputDir string

	// UseDateSubdirs places outputs in date-based subdirectories.
	// Example: output/2024/01/15/trips.xlsx
	UseDateSubdirs bool
}

// NewFileManager creates a new FileManager writing to outputDir.
func NewFileManager(outputDir string) *FileManager {
	return &FileManager{OutputDir: outputDir}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureOutputDir creates the output directory for now if it doesn't exist.
//
// RETURNS:
//   - The directory outputs should be written to.
//   - An error if the directory cannot be created.
func (fm *FileManager) EnsureOutputDir(now time.Time) (string, error) {
	dir := fm.OutputDir
	if fm.UseDateSubdirs {
		dir = filepath.Join(dir, now.Format("2006"), now.Format("01"), now.Format("02"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

// OutputPath returns the full path for a generated output file.
func (fm *FileManager) OutputPath(format string, params map[string]string) (string, error) {
	now := time.Now()
	dir, err := fm.EnsureOutputDir(now)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, generateOutputFileName(format, params, now)), nil
}

// =============================================================================
// INPUT DISCOVERY
// =============================================================================

// DiscoverInputFiles expands an input path into the exports it names.
//
// PARAMETERS:
//   - path: A single file, or a directory scanned (non-recursively) for
//           files with one of InputExtensions.
//
// RETURNS:
//   - The file paths in lexical order.
//   - An error if the path cannot be read.
func DiscoverInputFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.Contains(InputExtensions, ext) {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a file name from a format string.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {source}    - Input file name without extension, when given
//   - params: Additional placeholder values, keyed without braces.
//
// RETURNS:
//   - The generated file name, always ending in ".xlsx".
//
// EXAMPLE:
//   format: "trips_{timestamp}_{uuid}.xlsx"
//   output: "trips_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xlsx"
func GenerateOutputFileName(format string, params map[string]string) string {
	return generateOutputFileName(format, params, time.Now())
}

func generateOutputFileName(format string, params map[string]string, now time.Time) string {
	replacements := []string{
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
	}
	for key, value := range params {
		replacements = append(replacements, "{"+key+"}", sanitizeFileName(value))
	}

	result := strings.NewReplacer(replacements...).Replace(format)
	if !strings.HasSuffix(strings.ToLower(result), ".xlsx") {
		result += ".xlsx"
	}
	return result
}

// sanitizeFileName replaces path separators and other characters that are
// awkward in file names.
func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

// SourceName returns a file name without directory and extension.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// EXPORT SUMMARY
// =============================================================================

// ExportSummary contains summary information about an export run.
type ExportSummary struct {
	StartTime   time.Time
	EndTime     time.Time
	Exported    []ExportedFileInfo
	FailedFiles []FailedFileInfo
}

// ExportedFileInfo describes one successfully exported input.
type ExportedFileInfo struct {
	InputFile   string
	OutputFile  string
	Days        int
	Trips       int
	TotalEUR    string
	DroppedRows int
}

// FailedFileInfo describes an input that could not be exported.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes an export summary next to the workbooks.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ExportSummary, outputDir string) (string, error) {
	summaryFileName := fmt.Sprintf("export_summary_%s.txt", summary.StartTime.Format("20060102_150405"))
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Trip Dashboard - Export Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Exported:       %d\n"+
		"  Failed:         %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		len(summary.Exported),
		len(summary.FailedFiles))

	if len(summary.Exported) > 0 {
		writer.WriteString("Exported Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ef := range summary.Exported {
			fmt.Fprintf(writer, "  Input:        %s\n", ef.InputFile)
			fmt.Fprintf(writer, "  Output:       %s\n", ef.OutputFile)
			fmt.Fprintf(writer, "  Days:         %d\n", ef.Days)
			fmt.Fprintf(writer, "  Trips:        %d\n", ef.Trips)
			fmt.Fprintf(writer, "  Total:        %s\n", ef.TotalEUR)
			fmt.Fprintf(writer, "  Dropped Rows: %d\n\n", ef.DroppedRows)
		}
	}

	if len(summary.FailedFiles) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFiles {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
