package processor

import "errors"

// ErrBatchInFlight is returned when a batch is requested while another is running.
var ErrBatchInFlight = errors.New("batch already in flight")

// Task failure stages.
const (
	StageConfig     = "config"
	StageValidate   = "validate"
	StageMetadata   = "image_metadata"
	StageDownload   = "image_download"
	StageCompress   = "image_compress"
	StageConsensus  = "consensus"
	StageSaveResult = "save_result"
	StageComplete   = "complete"
	StagePanic      = "panic"
)

// TaskError is an infrastructure failure that moved a task to failed.
type TaskError struct {
	TaskID string
	Stage  string
	Err    error
}

func (e TaskError) Error() string {
	if e.Err == nil {
		return e.Stage
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e TaskError) Unwrap() error { return e.Err }
