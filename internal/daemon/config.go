package daemon

import "time"

// Config holds the stateful daemon's tunables (spec §4.8/§6). Every
// duration is expressed in milliseconds to mirror the wire/config shape
// spec.md documents them in.
type Config struct {
	MaxSessions     int
	IdleTimeoutMs   int64
	MaxAgeMs        int64
	SweepIntervalMs int64

	MaxFrameBytes   int
	SocketTimeoutMs int64

	EventLogMaxBytes int64
	EventLogMaxFiles int

	PersistMinIntervalMs int64
}

// DefaultConfig returns the daemon's defaults. maxFrameBytes (1 MiB) is the
// only value spec.md pins explicitly; the rest are this implementation's
// choices, documented in DESIGN.md.
func DefaultConfig() Config {
	return Config{
		MaxSessions:          32,
		IdleTimeoutMs:        int64(30 * time.Minute / time.Millisecond),
		MaxAgeMs:             int64(12 * time.Hour / time.Millisecond),
		SweepIntervalMs:      int64(time.Minute / time.Millisecond),
		MaxFrameBytes:        1 << 20,
		SocketTimeoutMs:      int64(5 * time.Minute / time.Millisecond),
		EventLogMaxBytes:     5 << 20,
		EventLogMaxFiles:     5,
		PersistMinIntervalMs: int64(250 * time.Millisecond / time.Millisecond),
	}
}
