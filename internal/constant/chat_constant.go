package constant

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"

	// IngestionNoticePrefix marks system-produced messages that report a
	// finished document ingestion. They are persisted to history verbatim and
	// must never be forwarded to the generation service as questions.
	IngestionNoticePrefix = "[INGESTED]"

	DefaultSessionTitle = "Unnamed session"

	// DefaultHistoryWindow bounds how many turns condition a generation, so
	// prompts stay inside the generation service's input budget.
	DefaultHistoryWindow = 20

	// DefaultRetrievalK is how many chunks a retrieval contributes to the
	// grounded prompt.
	DefaultRetrievalK = 4
)
