package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxAgeDays = 7
)

var (
	lumberjackLogger = &lumberjack.Logger{
		Filename: getLogFilename(),
		MaxSize:  getMaxSize(), // megabytes
		MaxAge:   getMaxAge(),  // days
	}

	mu     sync.RWMutex
	logger = log.New(lumberjackLogger, "", log.Ldate|log.Ltime|log.Lmicroseconds)
)

func getLogFilename() string {
	if logFile := os.Getenv("LOGFILE"); logFile != "" {
		return "./logs/" + logFile
	}
	return "./logs/ethash.log"
}

func getMaxSize() int {
	return envInt("LOGFILE_MAX_SIZE_MB", defaultMaxSizeMB)
}

func getMaxAge() int {
	return envInt("LOGFILE_MAX_AGE_DAYS", defaultMaxAgeDays)
}

// envInt reads a positive integer from the environment. Unset or malformed
// values fall back to def so that importing the package never panics.
func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		fmt.Fprintf(os.Stderr, "logx: invalid value %q for %s, using %d\n", raw, name, def)
		return def
	}
	return v
}

// SetOutput redirects all subsequent log lines to w. Passing nil restores the
// rotating log file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = lumberjackLogger
	}
	logger = log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}

func output(color, level, category string, content []interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	output(ColorGreen, "INFO", category, content)
}

func Error(category string, content ...interface{}) {
	output(ColorRed, "ERROR", category, content)
}

func Warn(category string, content ...interface{}) {
	output(ColorYellow, "WARN", category, content)
}

func Debug(category string, content ...interface{}) {
	output(ColorBlue, "DEBUG", category, content)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
