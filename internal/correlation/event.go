package correlation

type EventKind int

const (
	// EventLine carries one raw input line.
	EventLine EventKind = iota
	// EventCleanup asks for a sweep at Now.
	EventCleanup
	// EventShutdown stops the engine.
	EventShutdown
)

func (k EventKind) String() string {
	switch k {
	case EventLine:
		return "Line"
	case EventCleanup:
		return "Cleanup"
	case EventShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

type Event struct {
	Kind EventKind
	Line string
	Now  int64 // milliseconds since the Unix epoch, cleanup only
}

func LineEvent(line string) Event {
	return Event{Kind: EventLine, Line: line}
}

func CleanupEvent(now int64) Event {
	return Event{Kind: EventCleanup, Now: now}
}

func ShutdownEvent() Event {
	return Event{Kind: EventShutdown}
}
