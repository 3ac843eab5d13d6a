package metrics

import (
	"time"

	obserrors "github.com/target/drive-notes/internal/observability/errors"
	"github.com/target/drive-notes/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// StartMetric captures one job submission to the job server.
type StartMetric struct {
	Result   string
	Duration time.Duration
	Err      error
}

// EmitJobStart emits submission count and latency.
func EmitJobStart(sink statsd.Sink, in StartMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.start", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.start.duration", in.Duration, CloneTags(tags))
	}
}

// EventMetric captures how a progress event was folded into a job record.
type EventMetric struct {
	Outcome string
	Phase   string
}

// EmitProgressEvent counts progress events by outcome and resulting phase.
func EmitProgressEvent(sink statsd.Sink, in EventMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"outcome": in.Outcome}
	if in.Phase != "" {
		tags["phase"] = in.Phase
	}
	sink.Count("job.progress_event", 1, tags)
}

// EmitChannelState counts progress channel state changes. Reconnects are
// tagged separately so dashboards can alert on reconnect storms.
func EmitChannelState(sink statsd.Sink, state string, reconnect bool) {
	if sink == nil {
		return
	}
	sink.Count("progress_channel.state", 1, map[string]string{"state": state})
	if reconnect {
		sink.Count("progress_channel.reconnect", 1, nil)
	}
}

// EmitChannelError counts progress channel failures by error class.
func EmitChannelError(sink statsd.Sink, err error) {
	if sink == nil || err == nil {
		return
	}
	sink.Count("progress_channel.error", 1, map[string]string{"error_class": obserrors.Classify(err)})
}

// EmitSubscribers reports the number of live update subscribers for a user.
func EmitSubscribers(sink statsd.Sink, n int) {
	if sink == nil {
		return
	}
	sink.Gauge("progress.subscribers", float64(n), nil)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
