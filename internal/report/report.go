// Package report provides the operator-facing run log for an import run.
//
// A Report is created once per run and passed to every pipeline component.
// Messages are written to the console color-coded by severity and accumulated
// as plain-text records; at the end of the run WriteFile persists them as the
// import log. The Report replaces any global logging state: discard it after
// the log file is written.
package report

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
)

// Severity orders run-log messages. Separator lines are section banners that
// bypass level filtering and carry no severity prefix in the log file.
type Severity int

const (
	Separator Severity = iota - 2
	Info
	Success
	Warning
	Error
)

// ANSI escape sequences used for console coloring.
const (
	escRed    = "\x1b[31m"
	escGreen  = "\x1b[32;1m"
	escYellow = "\x1b[33;1m"
	escReset  = "\x1b[0m"
)

var severityPrefix = map[Severity]string{
	Info:    "Info:    ",
	Success: "OK:      ",
	Warning: "WARNING: ",
	Error:   "ERROR:   ",
}

var escSeq = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Report collects leveled run-log records and mirrors them to the console.
type Report struct {
	mu           sync.Mutex
	out          io.Writer
	consoleLevel Severity
	fileLevel    Severity
	records      []string

	warnings int
	errors   int
}

// New returns a Report writing console output to out. Both console and file
// level default to Info; use SetLevels to include debug-style output in dev
// mode.
func New(out io.Writer) *Report {
	if out == nil {
		out = os.Stdout
	}
	return &Report{
		out:          out,
		consoleLevel: Info,
		fileLevel:    Info,
	}
}

// SetLevels lowers or raises the minimum severity for console and file output.
func (r *Report) SetLevels(console, file Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consoleLevel = console
	r.fileLevel = file
}

// Log records a message at the given severity.
func (r *Report) Log(sev Severity, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch sev {
	case Warning:
		r.warnings++
	case Error:
		r.errors++
	}

	if sev >= r.consoleLevel || sev == Separator {
		fmt.Fprintln(r.out, colorize(sev, msg))
	}
	if sev >= r.fileLevel || sev == Separator {
		if sev == Separator {
			r.records = append(r.records, "", stripEsc(msg))
		} else {
			r.records = append(r.records, severityPrefix[sev]+stripEsc(msg))
		}
	}
}

func (r *Report) Infof(format string, args ...any)    { r.Log(Info, fmt.Sprintf(format, args...)) }
func (r *Report) Successf(format string, args ...any) { r.Log(Success, fmt.Sprintf(format, args...)) }
func (r *Report) Warnf(format string, args ...any)    { r.Log(Warning, fmt.Sprintf(format, args...)) }
func (r *Report) Errorf(format string, args ...any)   { r.Log(Error, fmt.Sprintf(format, args...)) }

// Banner emits a section separator line, centered and padded to width 80.
func (r *Report) Banner(title string) {
	line := strings.Repeat("*", 80)
	r.Log(Separator, line)
	if title != "" {
		r.Log(Separator, centerPad(" "+title+" ", 80, '*'))
		r.Log(Separator, line)
	}
}

// Progress writes a raw progress mark to the console without logging it.
// Used for the per-row dots during a sheet scan.
func (r *Report) Progress(mark string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, mark)
}

// Warnings returns the number of warning records so far.
func (r *Report) Warnings() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warnings
}

// Errors returns the number of error records so far.
func (r *Report) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

// Records returns a copy of the accumulated plain-text records.
func (r *Report) Records() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	copy(out, r.records)
	return out
}

// WriteFile persists the accumulated records as the run's log file and clears
// them.
func (r *Report) WriteFile(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, rec := range r.records {
		b.WriteString(rec)
		b.WriteString("\n")
	}
	if err := os.WriteFile(filename, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing log file %s: %w", filename, err)
	}
	r.records = r.records[:0]
	return nil
}

// colorize wraps msg in the ANSI color for its severity. Messages that already
// carry an escape sequence are passed through unchanged.
func colorize(sev Severity, msg string) string {
	if strings.Contains(msg, "\x1b") {
		return msg + escReset
	}
	switch sev {
	case Success:
		return escGreen + msg + escReset
	case Warning:
		return escYellow + msg + escReset
	case Error:
		return escRed + msg + escReset
	default:
		return msg
	}
}

func stripEsc(s string) string {
	return escSeq.ReplaceAllString(s, "")
}

func centerPad(s string, width int, pad rune) string {
	if len(s) >= width {
		return s
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(string(pad), left) + s + strings.Repeat(string(pad), right)
}
