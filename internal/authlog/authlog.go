// Package authlog records authentication events in a bounded in-memory ring
// buffer and derives security alerts from recent activity. This is abuse
// mitigation, not a durable audit trail: a process restart discards history.
package authlog

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names the authentication-relevant occurrences the recorder accepts.
type Event string

const (
	EventLoginSuccess       Event = "login_success"
	EventLoginFailure       Event = "login_failure"
	EventSignupAttempt      Event = "signup_attempt"
	EventSignupSuccess      Event = "signup_success"
	EventLogout             Event = "logout"
	EventEmailVerified      Event = "email_verified"
	EventTokenRefresh       Event = "token_refresh"
	EventInvalidToken       Event = "invalid_token"
	EventTokenExpired       Event = "token_expired"
	EventRateLimitExceeded  Event = "rate_limit_exceeded"
	EventSuspiciousActivity Event = "suspicious_activity"
)

// Entry is one recorded auth event.
type Entry struct {
	Timestamp time.Time
	Event     Event
	UserID    *uuid.UUID
	Email     string
	IP        string
	UserAgent string
	Success   bool
	Error     string
	Metadata  map[string]any
	Duration  time.Duration
}

// AlertLevel orders alerts by severity.
type AlertLevel string

const (
	AlertLow      AlertLevel = "low"
	AlertMedium   AlertLevel = "medium"
	AlertHigh     AlertLevel = "high"
	AlertCritical AlertLevel = "critical"
)

// Alert is a derived signal synthesized when entry patterns cross a threshold.
type Alert struct {
	Level     AlertLevel
	Type      string
	Message   string
	IP        string
	Timestamp time.Time
}

// Stats summarizes buffer contents over a trailing window.
type Stats struct {
	TotalEvents      int
	SuccessfulLogins int
	FailedLogins     int
	Signups          int
	UniqueIPs        int
	Alerts           int
}

const (
	defaultEntryCapacity = 1000
	defaultAlertCapacity = 100

	loginFailureWindow    = 5 * time.Minute
	loginFailureMedium    = 3
	loginFailureHigh      = 5
	signupBurstWindow     = 60 * time.Minute
	signupBurstThreshold  = 3
	tokenAbuseWindow      = 60 * time.Minute
	tokenAbuseThreshold   = 5
)

// Recorder is the process-wide auth event log. One instance is constructed at
// startup and passed by handle to every route handler; tests build their own
// for isolation.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	filled  bool
	alerts  []Alert

	logger *slog.Logger
	nowFn  func() time.Time
}

func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		entries: make([]Entry, defaultEntryCapacity),
		alerts:  make([]Alert, 0, defaultAlertCapacity),
		logger:  logger.With("module", "authlog"),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Record appends an entry (stamping it if needed) and evaluates alert rules
// against the trailing buffer.
func (r *Recorder) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = r.nowFn()
	}
	if e.IP == "" {
		e.IP = "unknown"
	}

	r.entries[r.next] = e
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.filled = true
	}

	r.deriveAlertsLocked(e)
}

// RecentAlerts returns up to n alerts, most recent first.
func (r *Recorder) RecentAlerts(n int) []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.alerts) {
		n = len(r.alerts)
	}
	out := make([]Alert, n)
	for i := 0; i < n; i++ {
		out[i] = r.alerts[len(r.alerts)-1-i]
	}
	return out
}

// Statistics reports counts over the trailing window.
func (r *Recorder) Statistics(window time.Duration) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.nowFn().Add(-window)
	ips := make(map[string]struct{})
	var stats Stats
	r.eachLocked(func(e Entry) {
		if e.Timestamp.Before(cutoff) {
			return
		}
		stats.TotalEvents++
		ips[e.IP] = struct{}{}
		switch e.Event {
		case EventLoginSuccess:
			stats.SuccessfulLogins++
		case EventLoginFailure:
			stats.FailedLogins++
		case EventSignupSuccess:
			stats.Signups++
		}
	})
	stats.UniqueIPs = len(ips)
	for _, a := range r.alerts {
		if !a.Timestamp.Before(cutoff) {
			stats.Alerts++
		}
	}
	return stats
}

// eachLocked visits every stored entry in arbitrary order.
func (r *Recorder) eachLocked(fn func(Entry)) {
	limit := r.next
	if r.filled {
		limit = len(r.entries)
	}
	for i := 0; i < limit; i++ {
		fn(r.entries[i])
	}
}

func (r *Recorder) deriveAlertsLocked(e Entry) {
	switch e.Event {
	case EventLoginFailure:
		r.checkLoginFailuresLocked(e)
	case EventSignupAttempt:
		r.checkSignupBurstLocked(e)
	case EventLoginSuccess:
		r.checkNewDeviceLocked(e)
	case EventInvalidToken, EventTokenExpired:
		r.checkTokenAbuseLocked(e)
	}
}

func (r *Recorder) checkLoginFailuresLocked(e Entry) {
	cutoff := e.Timestamp.Add(-loginFailureWindow)
	count := 0
	r.eachLocked(func(prev Entry) {
		if prev.Event != EventLoginFailure || prev.Timestamp.Before(cutoff) {
			return
		}
		if prev.IP == e.IP || (e.Email != "" && prev.Email == e.Email) {
			count++
		}
	})

	switch {
	case count >= loginFailureHigh:
		r.raiseLocked(Alert{
			Level:     AlertHigh,
			Type:      "potential_brute_force",
			Message:   "potential brute force: repeated login failures",
			IP:        e.IP,
			Timestamp: e.Timestamp,
		})
	case count >= loginFailureMedium:
		r.raiseLocked(Alert{
			Level:     AlertMedium,
			Type:      "multiple_login_failures",
			Message:   "multiple login failures",
			IP:        e.IP,
			Timestamp: e.Timestamp,
		})
	}
}

func (r *Recorder) checkSignupBurstLocked(e Entry) {
	cutoff := e.Timestamp.Add(-signupBurstWindow)
	count := 0
	r.eachLocked(func(prev Entry) {
		if prev.Event == EventSignupAttempt && !prev.Timestamp.Before(cutoff) && prev.IP == e.IP {
			count++
		}
	})
	if count >= signupBurstThreshold {
		r.raiseLocked(Alert{
			Level:     AlertMedium,
			Type:      "rapid_signup_attempts",
			Message:   "rapid signup attempts",
			IP:        e.IP,
			Timestamp: e.Timestamp,
		})
	}
}

// checkNewDeviceLocked flags a successful login from a (user agent, ip) pair
// not seen before for a user with prior successful logins.
func (r *Recorder) checkNewDeviceLocked(e Entry) {
	if e.UserID == nil {
		return
	}
	seenBefore := false
	samePair := false
	r.eachLocked(func(prev Entry) {
		if prev.Event != EventLoginSuccess || prev.UserID == nil || *prev.UserID != *e.UserID {
			return
		}
		if prev.Timestamp.Equal(e.Timestamp) && prev.IP == e.IP && prev.UserAgent == e.UserAgent {
			return
		}
		seenBefore = true
		if prev.IP == e.IP && prev.UserAgent == e.UserAgent {
			samePair = true
		}
	})
	if seenBefore && !samePair {
		r.raiseLocked(Alert{
			Level:     AlertLow,
			Type:      "new_device_login",
			Message:   "login from a new device",
			IP:        e.IP,
			Timestamp: e.Timestamp,
		})
	}
}

func (r *Recorder) checkTokenAbuseLocked(e Entry) {
	cutoff := e.Timestamp.Add(-tokenAbuseWindow)
	count := 0
	r.eachLocked(func(prev Entry) {
		if prev.Event != EventInvalidToken && prev.Event != EventTokenExpired {
			return
		}
		if !prev.Timestamp.Before(cutoff) && prev.IP == e.IP {
			count++
		}
	})
	if count >= tokenAbuseThreshold {
		r.raiseLocked(Alert{
			Level:     AlertMedium,
			Type:      "token_manipulation",
			Message:   "repeated invalid or expired tokens",
			IP:        e.IP,
			Timestamp: e.Timestamp,
		})
	}
}

func (r *Recorder) raiseLocked(a Alert) {
	r.alerts = append(r.alerts, a)
	if len(r.alerts) > defaultAlertCapacity {
		r.alerts = r.alerts[len(r.alerts)-defaultAlertCapacity:]
	}

	if a.Level == AlertHigh || a.Level == AlertCritical {
		r.logger.Warn("security alert",
			"operation", "security_alert",
			"level", string(a.Level),
			"type", a.Type,
			"message", a.Message,
			"ip", a.IP,
		)
	}
}
