package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Category names one kind of status line.
type Category string

const (
	CycleStart   Category = "cycle_start"
	CycleDone    Category = "cycle_done"
	CheckStart   Category = "check_start"
	InStock      Category = "in_stock"
	OutOfStock   Category = "out_of_stock"
	CheckFailed  Category = "check_failed"
	CheckSkipped Category = "check_skipped"
	Restock      Category = "restock"
	AlertSent    Category = "alert_sent"
	AlertFailed  Category = "alert_failed"
	Heartbeat    Category = "heartbeat"
	Stalled      Category = "stalled"
	Startup      Category = "startup"
)

// StatusMessage is one status line. Fields that do not apply stay empty.
type StatusMessage struct {
	Status    Category `json:"status"`
	Product   string   `json:"product,omitempty"`
	Retailer  string   `json:"retailer,omitempty"`
	InStock   *bool    `json:"in_stock,omitempty"`
	Price     string   `json:"price,omitempty"`
	URL       string   `json:"url,omitempty"`
	Cycle     int64    `json:"cycle,omitempty"`
	Tasks     int      `json:"tasks,omitempty"`
	Latency   float64  `json:"latency,omitempty"`
	Error     string   `json:"error,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type logMessage struct {
	message string
	json    bool
}

// Logger writes text lines to errOut and JSON status lines to out.
// With a buffer, writes go through a channel and are dropped when it is full.
type Logger struct {
	out    io.Writer
	errOut io.Writer
	json   bool

	mu      sync.Mutex
	logChan chan logMessage
	done    chan struct{}
	closed  bool
}

// New creates a logger. jsonStatus selects JSON status lines on out instead of text on errOut.
// A buffer of 0 writes synchronously.
func New(out, errOut io.Writer, jsonStatus bool, buffer int) *Logger {
	l := &Logger{out: out, errOut: errOut, json: jsonStatus}
	if buffer > 0 {
		l.logChan = make(chan logMessage, buffer)
		l.done = make(chan struct{})
		go l.drain()
	}
	return l
}

func (l *Logger) drain() {
	defer close(l.done)
	for msg := range l.logChan {
		l.write(msg)
	}
}

func (l *Logger) write(msg logMessage) {
	if msg.json {
		fmt.Fprintln(l.out, msg.message)
	} else {
		fmt.Fprintln(l.errOut, msg.message)
	}
}

func (l *Logger) emit(msg logMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if l.logChan == nil {
		l.write(msg)
		return
	}
	select {
	case l.logChan <- msg:
	default:
	}
}

// Printf logs a text line.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.emit(logMessage{message: time.Now().Format("15:04:05") + " " + fmt.Sprintf(format, args...)})
}

// Status logs a status line, stamping Timestamp when unset.
func (l *Logger) Status(msg StatusMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	if !l.json {
		l.emit(logMessage{message: time.Unix(msg.Timestamp, 0).Format("15:04:05") + " " + FormatText(msg)})
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		l.Printf("Error serializing message: %v", err)
		return
	}
	l.emit(logMessage{message: string(b), json: true})
}

// Close flushes buffered lines and stops the logger. Later calls are ignored.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	if l.logChan != nil {
		close(l.logChan)
	}
	l.mu.Unlock()
	if l.done != nil {
		<-l.done
	}
}

var labels = map[Category]string{
	CycleStart:   "CHECKING",
	CycleDone:    "CYCLE DONE",
	CheckStart:   "CHECK",
	InStock:      "IN STOCK",
	OutOfStock:   "OUT OF STOCK",
	CheckFailed:  "CHECK FAILED",
	CheckSkipped: "SKIPPED",
	Restock:      "RESTOCK",
	AlertSent:    "ALERT SENT",
	AlertFailed:  "ALERT FAILED",
	Heartbeat:    "HEARTBEAT",
	Stalled:      "STALLED",
	Startup:      "STARTUP",
}

// FormatText renders msg as a human-readable line.
func FormatText(msg StatusMessage) string {
	label, ok := labels[msg.Status]
	if !ok {
		label = strings.ToUpper(string(msg.Status))
	}
	var b strings.Builder
	b.WriteString("[" + label + "]")
	if msg.Product != "" {
		b.WriteString(" " + msg.Product)
	}
	if msg.Retailer != "" {
		b.WriteString(" at " + msg.Retailer)
	}
	if msg.Price != "" {
		b.WriteString(" " + msg.Price)
	}
	if msg.Cycle > 0 {
		fmt.Fprintf(&b, " cycle=%d", msg.Cycle)
	}
	if msg.Tasks > 0 {
		fmt.Fprintf(&b, " tasks=%d", msg.Tasks)
	}
	if msg.Latency > 0 {
		fmt.Fprintf(&b, " latency=%.2fs", msg.Latency)
	}
	if msg.URL != "" {
		b.WriteString(" " + msg.URL)
	}
	if msg.Error != "" {
		b.WriteString(" error=" + msg.Error)
	}
	return b.String()
}

var (
	defaultMu     sync.Mutex
	defaultLogger = New(os.Stdout, os.Stderr, false, 0)
)

// StartLogger replaces the package logger with a buffered one.
func StartLogger(jsonStatus bool) *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = New(os.Stdout, os.Stderr, jsonStatus, 1000)
	return defaultLogger
}

// Default returns the package logger.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger
}

// Printf logs a text line on the package logger.
func Printf(format string, args ...interface{}) {
	Default().Printf(format, args...)
}
