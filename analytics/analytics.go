package analytics

import (
	"github.com/mohitkumar/flowkeeper/execution"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// InitDataCollector builds the listener recording flow lifecycle data for
// the configured collector.
func InitDataCollector(config DataCollectorConfig) (execution.Listener, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		return NewLogFileDataCollector(config.FileName)
	}
	return execution.NoopListener{}, nil
}
