package eventlog

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// SDIDs for structured data (RFC5424), under the documentation PEN of RFC5612
const (
	PEN          = 32473
	SDIDMinion   = "minion@32473"
	SDIDSet      = "set@32473"
	SDIDOutcome  = "outcome@32473"
	SDIDPresence = "presence@32473"
)

// FacilityDaemon is LOG_DAEMON, used for all inventory events
const FacilityDaemon = 3

// Severity levels matching syslog (RFC5424)
type Severity int

const (
	SeverityEmergency Severity = iota // 0
	SeverityAlert                     // 1
	SeverityCritical                  // 2
	SeverityError                     // 3
	SeverityWarning                   // 4
	SeverityNotice                    // 5
	SeverityInfo                      // 6
	SeverityDebug                     // 7
)

// Event represents one entry of the change trail
type Event interface {
	MessageID() string
	Message() string
	Severity() Severity
	StructuredData() map[string]map[string]string
}

// Logger writes events in RFC5424 syslog format
type Logger struct {
	mu       sync.Mutex
	writer   io.Writer
	hostname string
	appName  string
	pid      int
	now      func() time.Time
}

// NewLogger creates a logger writing to w
func NewLogger(w io.Writer) *Logger {
	hostname, _ := os.Hostname()
	return &Logger{
		writer:   w,
		hostname: hostname,
		appName:  "minion-inventory",
		pid:      os.Getpid(),
		now:      time.Now,
	}
}

// Log writes an event.
// Format: <PRI>VERSION TIMESTAMP HOSTNAME APP-NAME PROCID MSGID SD MSG
func (l *Logger) Log(event Event) {
	pri := FacilityDaemon*8 + int(event.Severity())
	timestamp := l.now().UTC().Format("2006-01-02T15:04:05.000Z")

	sd := formatStructuredData(event.StructuredData())
	if sd == "" {
		sd = "-"
	}

	hostname := l.hostname
	if hostname == "" {
		hostname = "-"
	}

	line := fmt.Sprintf("<%d>1 %s %s %s %d %s %s %s\n",
		pri,
		timestamp,
		hostname,
		l.appName,
		l.pid,
		event.MessageID(),
		sd,
		event.Message(),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.writer, line)
}

// formatStructuredData renders [sdid param="value" ...] elements, sorted so
// that identical events produce identical lines
func formatStructuredData(sd map[string]map[string]string) string {
	if len(sd) == 0 {
		return ""
	}

	ids := make([]string, 0, len(sd))
	for id := range sd {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		params := sd[id]
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("[")
		b.WriteString(id)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, escapeSDValue(params[k]))
		}
		b.WriteString("]")
	}
	return b.String()
}

// escapeSDValue escapes special characters in structured data values per RFC5424
func escapeSDValue(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "]", "\\]")
	return "\"" + value + "\""
}
