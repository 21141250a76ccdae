package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldMonth         = "month"
	FieldAction        = "action"
	FieldAmountCents   = "amount_cents"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
	FieldStatus        = "status"
)
