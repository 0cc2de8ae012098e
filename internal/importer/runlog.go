package importer

import (
	"fmt"

	"platesync/internal/logger"
)

// RunLog accumulates the user-visible notices and errors of one import run.
// Entries are echoed to the service logger but never change control flow;
// the caller decides what to make of them.
type RunLog struct {
	Notices []string `json:"notices"`
	Errors  []string `json:"errors"`

	log *logger.Logger
}

func NewRunLog(log *logger.Logger) *RunLog {
	return &RunLog{log: log}
}

func (r *RunLog) Noticef(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.Notices = append(r.Notices, msg)
	if r.log != nil {
		r.log.Info("import: %s", msg)
	}
}

func (r *RunLog) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.Errors = append(r.Errors, msg)
	if r.log != nil {
		r.log.Error("import: %s", msg)
	}
}
