package cmd

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger returns the logger used by the command line tools.
func NewLogger(w io.Writer, prefix string, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
}
