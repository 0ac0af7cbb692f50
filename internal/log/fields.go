package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldFamilyID    = "family_id"
	FieldExpenseID   = "expense_id"
	FieldTier        = "tier"
	FieldAlertMonth  = "alert_month"
	FieldSpendCents  = "spend_cents"
	FieldBudgetCents = "budget_cents"
	FieldQueue       = "queue"
	FieldExchange    = "exchange"
	FieldPath        = "path"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentWorker = "worker"
)
