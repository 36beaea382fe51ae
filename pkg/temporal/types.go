package temporal

// DefaultNamespace is used when TEMPORAL_NAMESPACE is not set.
const DefaultNamespace = "salesdw"

// QueueLoader is the task queue of the loader worker.
const QueueLoader = "salesdw"

// Workflow ID patterns
const (
	WorkflowIDLoad = "load:%s" // batch date, yyyy-mm-dd
)
