package logg

// Structured field keys shared by every zap logger in the module.
const (
	Layer     = "layer"
	Operation = "operation"
	URL       = "url"
	Selector  = "selector"
	Scenario  = "scenario"
	RunID     = "run_id"
	Worker    = "worker"
	Strategy  = "strategy"
	Kind      = "kind"
)
