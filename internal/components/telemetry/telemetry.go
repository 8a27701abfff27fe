// Package telemetry is the reporting surface every component logs through.
package telemetry

// API is an abstraction over logging and metrics so tests can assert on what a component
// reported.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that broke in a way that should be addressed.
	//
	// The id names the component, not the line that failed: a failed insert while recording a
	// cycle is `samplestore.record`. Put the detail in params. Ids are lowercase, underscores
	// separate words of a component, dots separate a component from its parts.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something worth investigating that is not necessarily broken. Ids
	// follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information that is dropped outside of verbose runs.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of a count. Values are points over time, never sum them.
	ReportCount(id string, count int64)
}

// KV is a param rendered under an explicit key instead of its position.
type KV struct {
	Key   string
	Value any
}

// ScopedAPI prefixes every id it reports with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return s.namespace + "." + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.namespace+": "+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
