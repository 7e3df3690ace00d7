package constants

import "time"

const (
	ServiceName = "quietlog"
)

const (
	DefaultIDField           = "trace_id"
	DefaultTimeoutMs         = 5000
	DefaultCleanupIntervalMs = 1000
	DefaultFlushField        = "level"
)

// DefaultFlushLevels is the value set matched by the default flush rule.
var DefaultFlushLevels = []string{"error", "fatal", "critical"}

const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "json"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// QueueBacklogWarnThreshold is the queue depth above which the consumer
	// starts reporting that it is falling behind its producers.
	QueueBacklogWarnThreshold = 10000
	QueueBacklogWarnInterval  = 10 * time.Second
)

const (
	SourceStdin   = "stdin"
	SourceCommand = "command"
	SourceTicker  = "ticker"
)

const (
	MatcherEquals    = "equals"
	MatcherEqualsInt = "equals_int"
	MatcherOneOf     = "one_of"
	MatcherOneOfInt  = "one_of_int"
	MatcherRegex     = "regex"
	MatcherExpr      = "expr"
)

const (
	OutcomePassthrough = "passthrough"
	OutcomeBuffered    = "buffered"
	OutcomeFlushed     = "flushed"
	OutcomeUnparseable = "unparseable"
)
