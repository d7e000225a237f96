package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// CrashLogDir is where panic reports land. Set once by InstallCrashHandler.
var CrashLogDir = "./logs"

// InstallCrashHandler prepares the crash report directory. Call it early in
// main, before any goroutine that might panic.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}
	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "crash handler: cannot create %s: %v\n", CrashLogDir, err)
	}
}

// WriteCrashFile dumps a panic report (panic value, stacks, runtime stats)
// to a timestamped file under CrashLogDir and returns its path. Intended
// for recovery handlers on the way out of the process.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))

	var report bytes.Buffer
	section := func(name string) {
		fmt.Fprintf(&report, "--- %s ---\n", name)
	}

	section("cogentx crash report")
	fmt.Fprintf(&report, "time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "version: %s\n\n", GetFullVersion())

	section("panic")
	fmt.Fprintf(&report, "%v\n\n", panicVal)

	section("stack")
	report.WriteString(stackTrace)
	report.WriteString("\n")

	section("all goroutines")
	report.WriteString(GetAllGoroutineStacks())
	report.WriteString("\n")

	section("runtime")
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	fmt.Fprintf(&report, "goroutines: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&report, "cpus: %d\n", runtime.NumCPU())
	fmt.Fprintf(&report, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&report, "alloc_mb: %d\n", memStats.Alloc/1024/1024)
	fmt.Fprintf(&report, "total_alloc_mb: %d\n", memStats.TotalAlloc/1024/1024)
	fmt.Fprintf(&report, "sys_mb: %d\n", memStats.Sys/1024/1024)
	fmt.Fprintf(&report, "num_gc: %d\n", memStats.NumGC)

	// Unbuffered write: the process is about to die.
	file, err := os.OpenFile(crashPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crash handler: cannot write %s: %v\n", crashPath, err)
		fmt.Fprint(os.Stderr, report.String())
		return ""
	}
	if _, err := file.Write(report.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "crash handler: write failed: %v\n", err)
		fmt.Fprint(os.Stderr, report.String())
	}
	file.Sync()
	file.Close()

	fmt.Fprintf(os.Stderr, "\nfatal panic, report saved to %s\npanic: %v\n", crashPath, panicVal)
	return crashPath
}

// GetAllGoroutineStacks captures stacks for every goroutine, growing the
// buffer until the dump fits (capped at 64MB).
func GetAllGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
		if len(buf) > 64*1024*1024 {
			return string(buf[:runtime.Stack(buf, true)])
		}
	}
}

// GetStackTrace captures the calling goroutine's stack.
func GetStackTrace() string {
	buf := make([]byte, 8192)
	return string(buf[:runtime.Stack(buf, false)])
}

// RecoverWithCrashFile recovers a panic, writes the report, and exits.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, GetStackTrace())
		os.Exit(1)
	}
}
