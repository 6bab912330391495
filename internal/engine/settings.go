package engine

import (
	"fmt"
	"time"
)

// Mode is the kind of interval the timer is counting.
type Mode int

const (
	Work Mode = iota
	ShortBreak
	LongBreak
)

var modeNames = [...]string{"work", "shortBreak", "longBreak"}

func (m Mode) String() string {
	if m < Work || m > LongBreak {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Label is the human readable name used in the UI and notifications.
func (m Mode) Label() string {
	switch m {
	case ShortBreak:
		return "Short Break"
	case LongBreak:
		return "Long Break"
	default:
		return "Work"
	}
}

// ParseMode accepts the wire names work, shortBreak and longBreak.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return Work, invalid("mode", fmt.Sprintf("unknown mode %q", s))
}

func (m Mode) MarshalText() ([]byte, error) {
	if m < Work || m > LongBreak {
		return nil, fmt.Errorf("marshal mode: %d out of range", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Settings drive interval lengths and the long break cadence.
type Settings struct {
	WorkDuration            time.Duration
	ShortBreakDuration      time.Duration
	LongBreakDuration       time.Duration
	SessionsBeforeLongBreak int
}

// MaxIntervalMinutes bounds every interval length; longer values are
// rejected rather than converted.
const MaxIntervalMinutes = 24 * 60

const maxInterval = MaxIntervalMinutes * time.Minute

// DefaultSettings returns 25/5/15 minutes with a long break every 4 sessions.
func DefaultSettings() Settings {
	return Settings{
		WorkDuration:            25 * time.Minute,
		ShortBreakDuration:      5 * time.Minute,
		LongBreakDuration:       15 * time.Minute,
		SessionsBeforeLongBreak: 4,
	}
}

// DurationFor returns the configured interval length for mode.
func (s Settings) DurationFor(m Mode) time.Duration {
	switch m {
	case ShortBreak:
		return s.ShortBreakDuration
	case LongBreak:
		return s.LongBreakDuration
	default:
		return s.WorkDuration
	}
}

func (s Settings) Validate() error {
	switch {
	case s.WorkDuration <= 0:
		return invalid("workDuration", "must be positive")
	case s.ShortBreakDuration <= 0:
		return invalid("shortBreakDuration", "must be positive")
	case s.LongBreakDuration <= 0:
		return invalid("longBreakDuration", "must be positive")
	case s.WorkDuration > maxInterval:
		return invalid("workDuration", fmt.Sprintf("must be at most %d minutes", MaxIntervalMinutes))
	case s.ShortBreakDuration > maxInterval:
		return invalid("shortBreakDuration", fmt.Sprintf("must be at most %d minutes", MaxIntervalMinutes))
	case s.LongBreakDuration > maxInterval:
		return invalid("longBreakDuration", fmt.Sprintf("must be at most %d minutes", MaxIntervalMinutes))
	case s.SessionsBeforeLongBreak < 1:
		return invalid("sessionsBeforeLongBreak", "must be at least 1")
	}
	return nil
}

// Minutes converts to the whole-minute representation used by forms and the gateway.
func (s Settings) Minutes() SettingsMinutes {
	return SettingsMinutes{
		Work:                    int(s.WorkDuration / time.Minute),
		ShortBreak:              int(s.ShortBreakDuration / time.Minute),
		LongBreak:               int(s.LongBreakDuration / time.Minute),
		SessionsBeforeLongBreak: s.SessionsBeforeLongBreak,
	}
}

// SettingsMinutes is the user-facing form of Settings.
type SettingsMinutes struct {
	Work                    int
	ShortBreak              int
	LongBreak               int
	SessionsBeforeLongBreak int
}

// Settings validates the minute values and converts them.
func (m SettingsMinutes) Settings() (Settings, error) {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"workDuration", m.Work},
		{"shortBreakDuration", m.ShortBreak},
		{"longBreakDuration", m.LongBreak},
	} {
		if f.v > MaxIntervalMinutes {
			return Settings{}, invalid(f.name, fmt.Sprintf("must be at most %d minutes", MaxIntervalMinutes))
		}
	}
	s := Settings{
		WorkDuration:            time.Duration(m.Work) * time.Minute,
		ShortBreakDuration:      time.Duration(m.ShortBreak) * time.Minute,
		LongBreakDuration:       time.Duration(m.LongBreak) * time.Minute,
		SessionsBeforeLongBreak: m.SessionsBeforeLongBreak,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
