package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldEventID   = "event_id"
	FieldEventType = "event_type"
	FieldUserEmail = "user_email"
	FieldMonth     = "month"
	FieldBudgetID  = "budget_id"
	FieldExpenseID = "expense_id"
	FieldCurrency  = "currency"
	FieldFrom      = "from_currency"
	FieldTo        = "to_currency"
	FieldBase      = "base_currency"
	FieldAmount    = "amount"
	FieldSpent     = "spent"
	FieldLimit     = "limit"
	FieldTier      = "tier"
	FieldRateCount = "rate_count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentLedger    = "ledger"
	ComponentRates     = "rates"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentExpense   = "expense"
	ComponentBudget    = "budget"
	ComponentRefresher = "refresher"
)
