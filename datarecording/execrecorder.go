package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecTable is the table that holds run metadata.
const ExecTable = "exec_info"

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how and when a run was executed.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates the metadata table in the recorder.
func NewExecRecorder(recorder DataRecorder) (*ExecRecorder, error) {
	e := &ExecRecorder{
		recorder: recorder,
	}

	if err := recorder.CreateTable(ExecTable, ExecInfo{}); err != nil {
		return nil, err
	}

	return e, nil
}

// Start records the start time, the command line, and the working
// directory.
func (e *ExecRecorder) Start() {
	e.Set("Start Time", time.Now().Format(execTimeFormat))
	e.Set("Command", strings.Join(os.Args, " "))

	if ex, err := os.Executable(); err == nil {
		e.Set("Working Directory", filepath.Dir(ex))
	}
}

// Set records an arbitrary property of the run.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{Property: property, Value: value})
}

// End writes all properties along with the end time and flushes.
func (e *ExecRecorder) End() error {
	e.Set("End Time", time.Now().Format(execTimeFormat))

	for _, entry := range e.entries {
		if err := e.recorder.InsertData(ExecTable, entry); err != nil {
			return err
		}
	}

	e.entries = nil

	return e.recorder.Flush()
}
