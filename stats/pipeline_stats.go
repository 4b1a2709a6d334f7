package stats

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"regexp"
	"sync"

	"github.com/pkp/pln/models"
	"github.com/pkp/pln/util/fileutil"
)

// PipelineStats records what one run of a processing stage did.
// It is safe for concurrent use by the pipeline's workers.
type PipelineStats struct {
	Stage       string
	DryRun      bool
	Selected    int
	Succeeded   int
	Failed      int
	NotReady    int
	Held        int
	Skipped     int
	Transitions []models.Transition
	Errors      []string
	Warnings    []string
	mutex       sync.Mutex
}

// NewPipelineStats creates a new, empty PipelineStats object.
func NewPipelineStats(stage string, dryRun bool) *PipelineStats {
	return &PipelineStats{
		Stage:       stage,
		DryRun:      dryRun,
		Transitions: make([]models.Transition, 0),
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
	}
}

// PipelineStatsLoadFromFile loads PipelineStats from a JSON file.
func PipelineStatsLoadFromFile(pathToFile string) (*PipelineStats, error) {
	file, err := ioutil.ReadFile(pathToFile)
	if err != nil {
		return nil, fmt.Errorf("Error reading file '%s': %v", pathToFile, err)
	}
	_stats := &PipelineStats{}
	err = json.Unmarshal(file, _stats)
	if err != nil {
		return nil, fmt.Errorf("Error parsing JSON from file '%s': %v", pathToFile, err)
	}
	return _stats, nil
}

// DumpToFile dumps a JSON representation of this object to a file at
// the specified path. This will overwrite an existing file only if it
// has a .json extension.
func (stats *PipelineStats) DumpToFile(pathToFile string) error {
	// Matches .json, or tempfile with random ending, like .json43272
	fileNameLooksSafe, err := regexp.MatchString("\\.json\\d*$", pathToFile)
	if err != nil {
		return fmt.Errorf("DumpToFile(): path '%s'?? : %v", pathToFile, err)
	}
	if fileutil.FileExists(pathToFile) && !fileNameLooksSafe {
		return fmt.Errorf("DumpToFile() will not overwrite existing file "+
			"'%s' because that might be dangerous. Give your output file a .json "+
			"extension to be safe.", pathToFile)
	}
	stats.mutex.Lock()
	jsonData, err := json.MarshalIndent(stats, "", "  ")
	stats.mutex.Unlock()
	if err != nil {
		return err
	}
	outputFile, err := os.Create(pathToFile)
	if err != nil {
		return err
	}
	defer outputFile.Close()
	_, err = outputFile.Write(jsonData)
	return err
}

// SetSelected records how many deposits the run picked up.
func (stats *PipelineStats) SetSelected(count int) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	stats.Selected = count
}

// AddTransition records a computed transition and counts its outcome.
func (stats *PipelineStats) AddTransition(transition models.Transition) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	stats.Transitions = append(stats.Transitions, transition)
	switch transition.Outcome {
	case models.Success().String():
		stats.Succeeded++
	case models.Failure().String():
		stats.Failed++
	case models.NotReady().String():
		stats.NotReady++
	default:
		stats.Held++
	}
}

// AddSkipped counts a deposit that was selected but not processed,
// usually because someone else changed it first.
func (stats *PipelineStats) AddSkipped(message string) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	stats.Skipped++
	stats.Warnings = append(stats.Warnings, message)
}

// FindTransition returns the transition recorded for the deposit,
// or nil.
func (stats *PipelineStats) FindTransition(depositUuid string) *models.Transition {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	for i := range stats.Transitions {
		if stats.Transitions[i].DepositUuid == depositUuid {
			return &stats.Transitions[i]
		}
	}
	return nil
}

// Adds an error message to the stats.
func (stats *PipelineStats) AddError(message string) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	stats.Errors = append(stats.Errors, message)
}

// Returns true if this object contains any errors
func (stats *PipelineStats) HasErrors() bool {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	return len(stats.Errors) > 0
}

// Adds a warning to the stats.
func (stats *PipelineStats) AddWarning(message string) {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	stats.Warnings = append(stats.Warnings, message)
}

// Returns true if this object contains any warnings
func (stats *PipelineStats) HasWarnings() bool {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	return len(stats.Warnings) > 0
}

// Summary returns a one-line description of the run.
func (stats *PipelineStats) Summary() string {
	stats.mutex.Lock()
	defer stats.mutex.Unlock()
	return fmt.Sprintf("%s: selected %d, succeeded %d, failed %d, not ready %d, held %d, skipped %d, dry run %t",
		stats.Stage, stats.Selected, stats.Succeeded, stats.Failed, stats.NotReady,
		stats.Held, stats.Skipped, stats.DryRun)
}
