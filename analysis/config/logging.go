// Copyright The condep Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"io"
	"log"
	"os"
)

// LogLevel is the level of a logging message.
type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - the level for logging warnings and errors
	WarnLevel

	// InfoLevel=3 - the level for logging high-level information and results
	InfoLevel

	// DebugLevel=4 - the level for debugging information. The tool will run properly on large
	// programs with that level of debug information.
	DebugLevel

	// TraceLevel=5 - the level for tracing, including per-block store dumps. Only usable on small
	// testing programs.
	TraceLevel
)

// LogGroup holds a group of loggers, one per level.
type LogGroup struct {
	Level LogLevel
	trace *log.Logger
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// NewLogGroup returns a log group configured to the logging settings stored inside the config,
// writing to stderr.
func NewLogGroup(cfg *Config) *LogGroup {
	l := &LogGroup{
		Level: LogLevel(cfg.LogLevel),
		trace: log.New(os.Stderr, "[TRACE] ", log.Ltime),
		debug: log.New(os.Stderr, "[DEBUG] ", log.Ltime),
		info:  log.New(os.Stderr, "[INFO] ", log.Ltime),
		warn:  log.New(os.Stderr, "[WARN] ", log.Ltime),
		err:   log.New(os.Stderr, "[ERROR] ", log.Ltime),
	}
	return l
}

// SetAllOutput sets all the output writers to the writer provided.
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.trace.SetOutput(w)
	l.debug.SetOutput(w)
	l.info.SetOutput(w)
	l.warn.SetOutput(w)
	l.err.SetOutput(w)
}

// SetAllFlags sets the flag of all loggers in the log group to the argument provided.
func (l *LogGroup) SetAllFlags(x int) {
	l.trace.SetFlags(x)
	l.debug.SetFlags(x)
	l.info.SetFlags(x)
	l.warn.SetFlags(x)
	l.err.SetFlags(x)
}

// Tracef logs at trace level in the manner of Printf.
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.Level >= TraceLevel {
		l.trace.Printf(format, v...)
	}
}

// Debugf logs at debug level in the manner of Printf.
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.Level >= DebugLevel {
		l.debug.Printf(format, v...)
	}
}

// Infof logs at info level in the manner of Printf.
func (l *LogGroup) Infof(format string, v ...any) {
	if l.Level >= InfoLevel {
		l.info.Printf(format, v...)
	}
}

// Warnf logs at warning level in the manner of Printf.
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.Level >= WarnLevel {
		l.warn.Printf(format, v...)
	}
}

// Errorf logs at error level in the manner of Printf.
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.Level >= ErrLevel {
		l.err.Printf(format, v...)
	}
}

// GetDebug returns the debug level logger, for components that need a *log.Logger as input.
func (l *LogGroup) GetDebug() *log.Logger {
	return l.debug
}

// GetError returns the error level logger, for components that need a *log.Logger as input.
func (l *LogGroup) GetError() *log.Logger {
	return l.err
}
