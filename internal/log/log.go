/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

// Package log is the operational logger: start/stop/progress/error lines
// written as the run proceeds. It is not the report renderer — that
// rendering pipeline is a collaborator concern.
package log

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/pproenca/mutate4swift/internal/site"
)

var (
	fgRed     = color.New(color.FgRed).SprintFunc()
	fgGreen   = color.New(color.FgGreen).SprintFunc()
	fgYellow  = color.New(color.FgYellow).SprintFunc()
	fgHiBlack = color.New(color.FgHiBlack).SprintFunc()
)

type log struct {
	writer io.Writer
}

var mutex = &sync.Mutex{}
var instance *log

// Init initializes a new logger with the given io.Writer. If no writer is
// provided the logger behaves as NoOp. The initialized instance is a
// singleton.
func Init(w io.Writer) {
	if w == nil {
		return
	}
	if instance == nil {
		mutex.Lock()
		defer mutex.Unlock()
		if instance == nil {
			instance = &log{writer: w}
		}
	}
}

// Reset removes the current log instance.
func Reset() {
	mutex.Lock()
	defer mutex.Unlock()
	instance = nil
}

// Infof logs an information line using format.
func Infof(f string, args ...any) {
	if instance == nil {
		return
	}
	instance.writef(f, args...)
}

// Infoln logs an information line.
func Infoln(a any) {
	if instance == nil {
		return
	}
	instance.writeln(a)
}

// Errorf logs an error using format.
func Errorf(f string, args ...any) {
	if instance == nil {
		return
	}
	msg := fmt.Sprintf(f, args...)
	instance.writef("%s: %s", fgRed("ERROR"), msg)
}

// Errorln logs an error line.
func Errorln(a any) {
	if instance == nil {
		return
	}
	msg := fmt.Sprintf("%s: %s", fgRed("ERROR"), a)
	instance.writeln(msg)
}

// Result logs a single MutationResult: its outcome, operator, and
// position.
func Result(fileName string, r site.MutationResult) {
	if instance == nil {
		return
	}
	status := r.Outcome.String()
	switch r.Outcome {
	case site.Killed, site.Timeout:
		status = fgGreen(status)
	case site.Survived:
		status = fgRed(status)
	case site.BuildError:
		status = fgYellow(status)
	case site.Skipped:
		status = fgHiBlack(status)
	}
	instance.writef("%s%s %s at %s:%d:%d\n", padding(r.Outcome), status, r.Site.Operator, fileName, r.Site.Line, r.Site.Column)
}

func padding(o site.MutationOutcome) string {
	var pad string
	padLen := 12 - len(o.String())
	for i := 0; i < padLen; i++ {
		pad += " "
	}

	return pad
}

func (l *log) writef(f string, args ...any) {
	_, _ = fmt.Fprintf(l.writer, f, args...)
}

func (l *log) writeln(a any) {
	_, _ = fmt.Fprintln(l.writer, a)
}
