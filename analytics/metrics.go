package analytics

import (
	"context"

	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.uber.org/zap"
)

var (
	KeyFlow  = tag.MustNewKey("flow")
	KeyEvent = tag.MustNewKey("event")
)

var (
	MRequests      = stats.Int64("flowkeeper/requests", "requests processed by flow executions", stats.UnitDimensionless)
	MSessions      = stats.Int64("flowkeeper/sessions", "flow session lifecycle events", stats.UnitDimensionless)
	MExceptions    = stats.Int64("flowkeeper/exceptions", "failures raised while driving flows", stats.UnitDimensionless)
	MStatesEntered = stats.Int64("flowkeeper/states_entered", "states entered", stats.UnitDimensionless)
)

var (
	RequestCountView = &view.View{
		Name:        "flowkeeper/requests",
		Measure:     MRequests,
		Description: "requests processed per root flow",
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyFlow},
	}
	SessionCountView = &view.View{
		Name:        "flowkeeper/sessions",
		Measure:     MSessions,
		Description: "sessions started and ended per flow",
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyFlow, KeyEvent},
	}
	ExceptionCountView = &view.View{
		Name:        "flowkeeper/exceptions",
		Measure:     MExceptions,
		Description: "failures per flow",
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyFlow},
	}
	StateCountView = &view.View{
		Name:        "flowkeeper/states_entered",
		Measure:     MStatesEntered,
		Description: "states entered per flow",
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{KeyFlow},
	}
)

var DefaultViews = []*view.View{RequestCountView, SessionCountView, ExceptionCountView, StateCountView}

func RegisterViews() error {
	return view.Register(DefaultViews...)
}

var _ execution.Listener = new(MetricsListener)

// MetricsListener records flow lifecycle events as opencensus measurements.
type MetricsListener struct {
	execution.NoopListener
}

func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

func (ml *MetricsListener) RequestProcessed(rc flow.RequestContext) {
	record(rc.GetRootFlowId(), "", MRequests)
}

func (ml *MetricsListener) SessionStarted(rc flow.RequestContext, session *execution.FlowSession) {
	record(session.GetFlowId(), "started", MSessions)
}

func (ml *MetricsListener) SessionEnded(rc flow.RequestContext, session *execution.FlowSession, outcome *flow.Event) {
	record(session.GetFlowId(), "ended", MSessions)
}

func (ml *MetricsListener) StateEntered(rc flow.RequestContext, previous flow.State, state flow.State) {
	record(rc.GetActiveFlow().Id, "", MStatesEntered)
}

func (ml *MetricsListener) ExceptionThrown(rc flow.RequestContext, err *flow.ExecutionError) {
	record(err.FlowId, "", MExceptions)
}

func record(flowId string, event string, measure *stats.Int64Measure) {
	mutators := []tag.Mutator{tag.Upsert(KeyFlow, flowId)}
	if len(event) > 0 {
		mutators = append(mutators, tag.Upsert(KeyEvent, event))
	}
	if err := stats.RecordWithTags(context.Background(), mutators, measure.M(1)); err != nil {
		logger.Warn("error in recording metric", zap.String("measure", measure.Name()), zap.Error(err))
	}
}
