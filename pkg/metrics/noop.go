package metrics

// NoopRecorder discards every observation. Used in tests and tools
// that run the pipeline without a metrics endpoint.
type NoopRecorder struct{}

func Noop() *NoopRecorder { return &NoopRecorder{} }

func (*NoopRecorder) RecordCandle(string, string)         {}
func (*NoopRecorder) RecordSignal(string, string)         {}
func (*NoopRecorder) RecordOrderTransition(string)        {}
func (*NoopRecorder) RecordRiskRejection(string)          {}
func (*NoopRecorder) RecordPersistError(string)           {}
func (*NoopRecorder) RecordTickLatency(string, float64)   {}
