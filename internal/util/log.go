package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	logFile *os.File
	verbose bool

	infoColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed)
	debugColor   = color.New(color.FgHiBlack)
)

// SetOutput redirects console output; tests use it to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

func SetLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	mu.Lock()
	logFile = f
	mu.Unlock()
	return nil
}

func CloseLogFile() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func Info(msg string, args ...interface{}) {
	write(infoColor, "[INFO]", msg, args...)
}

func Success(msg string, args ...interface{}) {
	write(successColor, "[DONE]", msg, args...)
}

func Warn(msg string, args ...interface{}) {
	write(warnColor, "[WARN]", msg, args...)
}

func Fail(msg string, args ...interface{}) {
	write(failColor, "[FAIL]", msg, args...)
}

// Debug prints only when verbose output is on; the log file always gets it.
func Debug(msg string, args ...interface{}) {
	mu.Lock()
	v := verbose
	mu.Unlock()
	if !v {
		appendFile("[DBUG]", fmt.Sprintf(msg, args...))
		return
	}
	write(debugColor, "[DBUG]", msg, args...)
}

// DebugIf prints when on is set regardless of the global verbose switch.
func DebugIf(on bool, msg string, args ...interface{}) {
	if on {
		write(debugColor, "[DBUG]", msg, args...)
		return
	}
	Debug(msg, args...)
}

func write(c *color.Color, tag, msg string, args ...interface{}) {
	line := fmt.Sprintf(msg, args...)
	mu.Lock()
	fmt.Fprintf(out, "%s %s\n", c.Sprint(tag), line)
	mu.Unlock()
	appendFile(tag, line)
}

func appendFile(tag, line string) {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return
	}
	line = strings.TrimRight(line, "\n")
	fmt.Fprintf(logFile, "%s %s %s\n", time.Now().Format(time.RFC3339), tag, line)
}
