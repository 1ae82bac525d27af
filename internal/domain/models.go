package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxHistory is the hard cap on retained results per destination,
// regardless of the configured history length.
const MaxHistory = 1000

type TestKind string

const (
	KindReachability TestKind = "Ping"
	KindConnect      TestKind = "Connect"
	KindURL          TestKind = "Url"
)

// ParseTestKind maps a config value onto a known kind, ignoring case.
// Unknown values are returned as-is so the probe registry can reject them.
func ParseTestKind(s string) TestKind {
	s = strings.TrimSpace(s)
	for _, k := range []TestKind{KindReachability, KindConnect, KindURL} {
		if strings.EqualFold(s, string(k)) {
			return k
		}
	}
	return TestKind(s)
}

type Protocol string

const (
	ProtocolTCP Protocol = "TCP"
	ProtocolUDP Protocol = "UDP"
)

func ParseProtocol(s string) Protocol {
	return Protocol(strings.ToUpper(strings.TrimSpace(s)))
}

// TestSpec describes one probe. Which fields matter depends on Kind.
type TestSpec struct {
	Kind     TestKind `json:"method"`
	Host     string   `json:"host,omitempty"`
	Port     int      `json:"port,omitempty"`
	Protocol Protocol `json:"protocol,omitempty"`
	URL      string   `json:"url,omitempty"`
	Proxy    string   `json:"proxy,omitempty"`
}

type Destination struct {
	Name      string        `json:"name"`
	Group     string        `json:"group"`
	Sort      int           `json:"sort"`
	GroupSort int           `json:"group_sort"`
	Timeout   time.Duration `json:"timeout"`
	Warning   int           `json:"warning"`
	Failure   int           `json:"failure"`
	Reset     int           `json:"reset"`
	Interval  time.Duration `json:"interval"`
	History   int           `json:"history"`
	Test      TestSpec      `json:"test"`
}

// Key identifies a destination across groups.
func (d Destination) Key() string {
	return d.Group + ":" + d.Name
}

// HistoryCapacity is the configured history clamped to [0, MaxHistory].
func (d Destination) HistoryCapacity() int {
	switch {
	case d.History < 0:
		return 0
	case d.History > MaxHistory:
		return MaxHistory
	}
	return d.History
}

type Group struct {
	Sort         int           `json:"sort"`
	Name         string        `json:"group"`
	Destinations []Destination `json:"destinations"`
}

// TestResult is the immutable outcome of one probe.
type TestResult struct {
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}

type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusFailure:
		return "FAILURE"
	}
	return "UNKNOWN"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "OK":
		*s = StatusOK
	case "WARNING":
		*s = StatusWarning
	case "FAILURE":
		*s = StatusFailure
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}
