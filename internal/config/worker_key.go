package config

type WorkerKeyStruct struct{}

func NewWorkerKeyStruct() *WorkerKeyStruct {
	return &WorkerKeyStruct{}
}

// AnalysisResultsQueue is the Redis list the external analysis engine pushes
// finished lab-work results onto. The AnalysisResultWorker drains it.
func (r *WorkerKeyStruct) AnalysisResultsQueue() string {
	return "analysis:results"
}

// AnalysisSubmissionsQueue is the Redis list lab-work submissions are
// published to for the external analysis engine to pick up.
func (r *WorkerKeyStruct) AnalysisSubmissionsQueue() string {
	return "analysis:submissions"
}

var WorkerKey = NewWorkerKeyStruct()
