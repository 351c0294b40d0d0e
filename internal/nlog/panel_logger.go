/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger is something that can print, using Logf, a format string
type Logger interface {
	Logf(format string, v ...any)
}

// subsystemLogger is a logger that handles only one file out of all that are opened by its logger
type subsystemLogger struct {
	filename string
	logger   *PanelLogger
}

// Logf for a subsystem logger is just a wrap for the Logs of its internal logger, giving its only filename
func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Logf(s.filename, format, v...)
}

// logEntry is an helper struct that can be used to send a couple (filename, formatted string) onto the log channel
type logEntry struct {
	filename  string
	formatted string
}

// PanelLogger is an (almost) powerful logger that can write to multiple log files from one single struct.
// One file per subsystem (stores, sync, broadcast, http, ...), all under the instance's log directory.
// It's safe to share amongst goroutines since it has an internal lock
type PanelLogger struct {
	instance string // Name of the panel instance, used for the prefix string during logging
	dir      string // Directory the log files live in

	fileMapper map[string]*os.File    // Maps a filename to an OS file (used only to be able to deallocate it later)
	logMapper  map[string]*log.Logger // Maps a filename to the corresponding logger

	lock           sync.RWMutex
	currentLogFunc func(*log.Logger, string, ...any) // Current logging function (alternating between defaultLogf and nilLogf)

	inbox chan logEntry // Log channel, formatted strings are sent here instead of directly writing to files
}

// NewPanelLogger creates and returns a PanelLogger for the given instance name, writing under dir.
// When successful, error is nil
func NewPanelLogger(instance, dir string, logging bool) (*PanelLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	p := &PanelLogger{
		instance:       instance,
		dir:            dir,
		fileMapper:     make(map[string]*os.File),
		logMapper:      make(map[string]*log.Logger),
		currentLogFunc: nilLogf,
		inbox:          make(chan logEntry, 600),
	}

	if logging {
		p.currentLogFunc = defaultLogf
	}

	return p, nil
}

// RegisterSubsystem registers a new subsystem, returning a Logger that can write to the file filename.
// If successful, error is nil
func (p *PanelLogger) RegisterSubsystem(filename string) (Logger, error) {
	file, err := os.OpenFile(filepath.Join(p.dir, filename+".log"), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	p.logMapper[filename] = log.New(file, fmt.Sprintf("[[%s] %s]: ", p.instance, filename), log.Ldate|log.Ltime)
	p.fileMapper[filename] = file
	return &subsystemLogger{filename, p}, nil
}

// GetSubsystemLogger retrieves a subsystem logger, if previously registerd.
// If successful, error is nil
func (p *PanelLogger) GetSubsystemLogger(filename string) (Logger, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	if _, ok := p.logMapper[filename]; !ok {
		return nil, fmt.Errorf("The subsystem was not registered")
	}
	return &subsystemLogger{filename, p}, nil
}

// EnableLogging enables the logging done by this logger
func (p *PanelLogger) EnableLogging() {
	p.lock.Lock()
	p.currentLogFunc = defaultLogf
	p.lock.Unlock()
}

// DisableLogging disables the logging done by this logger
func (p *PanelLogger) DisableLogging() {
	p.lock.Lock()
	p.currentLogFunc = nilLogf
	p.lock.Unlock()
}

// Logf formats a string using format and v, and appends it to a logging channel, alongside the file, filename, it will be written to
func (p *PanelLogger) Logf(filename, format string, v ...any) {
	p.inbox <- logEntry{filename, fmt.Sprintf(format, v...)}
}

// Run waits either on the log channel or ctx.Done()
// When ctx.Done(), the caller has shut down and we deallocate resources
// When a message arrives on the log channel, we write it accordingly
func (p *PanelLogger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.CloseAll()
			return
		case msg := <-p.inbox:
			p.actualWrite(msg.filename, msg.formatted)
		}
	}
}

// actualWrite is the function that writes the string formatted in the file filename
// When successful, error is nil
func (p *PanelLogger) actualWrite(filename, formatted string) error {
	p.lock.Lock()
	logFunc := p.currentLogFunc
	logger, ok := p.logMapper[filename]
	p.lock.Unlock()

	if !ok {
		return fmt.Errorf("Logger is not setup for this filename")
	}
	if logFunc != nil {
		logFunc(logger, formatted)
	}
	return nil
}

// CloseAll closes all the open files that the loggers are using
func (p *PanelLogger) CloseAll() {
	p.lock.Lock()
	defer p.lock.Unlock()

	for _, file := range p.fileMapper {
		file.Sync()
		file.Close()
	}
	clear(p.fileMapper)
	clear(p.logMapper)
}

// Nop returns a Logger that discards everything, handy for tests and optional wiring
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Logf(string, ...any) {}

// defaultLogf is a log function that writes to a logger l
func defaultLogf(l *log.Logger, format string, a ...any) {
	l.Printf(format, a...)
}

// nilLogf is a log function that does nothing, which gets called when logging is disabled
func nilLogf(*log.Logger, string, ...any) {}
