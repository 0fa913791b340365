package analytics

import (
	"os"

	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/flow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ execution.Listener = new(LogFileDataCollector)

// LogFileDataCollector appends one JSON line per session start, session end
// and failure to a file.
type LogFileDataCollector struct {
	execution.NoopListener
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	enccoderConfig := zap.NewProductionEncoderConfig()
	enccoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	enccoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(enccoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) SessionStarted(rc flow.RequestContext, session *execution.FlowSession) {
	lc.logger.Info("started", zap.String("root", rc.GetRootFlowId()), zap.String("flow", session.GetFlowId()), zap.Bool("subflow", !session.IsRoot()))
}

func (lc *LogFileDataCollector) SessionEnded(rc flow.RequestContext, session *execution.FlowSession, outcome *flow.Event) {
	fields := []zap.Field{zap.String("root", rc.GetRootFlowId()), zap.String("flow", session.GetFlowId())}
	if outcome != nil {
		fields = append(fields, zap.String("outcome", outcome.Id), zap.Any("output", map[string]any(outcome.Attributes)))
	}
	lc.logger.Info("ended", fields...)
}

func (lc *LogFileDataCollector) ExceptionThrown(rc flow.RequestContext, err *flow.ExecutionError) {
	lc.logger.Info("failure", zap.String("root", rc.GetRootFlowId()), zap.String("flow", err.FlowId), zap.String("state", err.StateId), zap.String("reason", err.RootCause().Error()))
}

func (lc *LogFileDataCollector) Sync() error {
	return lc.logger.Sync()
}
