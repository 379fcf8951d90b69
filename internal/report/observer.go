package report

import "github.com/rs/zerolog"

// EventKind classifies a structural change in a report tree.
type EventKind string

const (
	EventAttached EventKind = "attached"
	EventDetached EventKind = "detached"
	EventAdded    EventKind = "added"
	EventRemoved  EventKind = "removed"
)

// Event describes one structural change. Report is the report the event was
// recorded against; for EventDetached it is the report the section left and
// Target is the report it is moving to (nil when it is only being released).
type Event struct {
	Kind    EventKind
	Section *Section
	Report  *Report
	Target  *Report
	Name    string
}

// Observer records structural change events.
type Observer interface {
	Record(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Record calls f(e).
func (f ObserverFunc) Record(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Record(Event) {}

// LogObserver returns an Observer that writes events to logger. Detachments
// are logged at info level, everything else at debug.
func LogObserver(logger zerolog.Logger) Observer {
	return ObserverFunc(func(e Event) {
		ev := logger.Debug()
		if e.Kind == EventDetached {
			ev = logger.Info()
		}
		ev = ev.Str("event", string(e.Kind))
		if e.Section != nil {
			ev = ev.Str("section", e.Section.String())
		}
		if e.Report != nil {
			ev = ev.Str("report", e.Report.String())
		}
		if e.Target != nil {
			ev = ev.Str("target", e.Target.String())
		}
		if e.Name != "" {
			ev = ev.Str("name", e.Name)
		}
		ev.Msg("report structure changed")
	})
}
