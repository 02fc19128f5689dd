package observability

import "github.com/danmuck/duploctl/internal/protocol"

// Recorder feeds dispatcher, controller and bridge callbacks into the
// process metrics.
type Recorder struct{}

func NewRecorder() *Recorder {
	RegisterMetrics()
	return &Recorder{}
}

func (*Recorder) FrameHandled(mt protocol.MessageType) {
	RecordFrame(mt.String(), OutcomeHandled)
}

func (*Recorder) FrameIgnored(mt protocol.MessageType) {
	RecordFrame(frameLabel(mt), OutcomeIgnored)
}

func (*Recorder) FrameRejected(mt protocol.MessageType, _ error) {
	RecordFrame(frameLabel(mt), OutcomeRejected)
}

func (*Recorder) CommandSent(kind string, err error) {
	RecordCommand(kind, err)
}

func (*Recorder) WearableEdge(edge string) {
	RecordWearableEdge(edge)
}

// frameLabel folds unknown message types into one label value.
func frameLabel(mt protocol.MessageType) string {
	if !mt.Known() {
		return "unknown"
	}
	return mt.String()
}
