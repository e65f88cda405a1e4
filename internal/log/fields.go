package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRunID       = "run_id"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldDuration    = "duration_ms"
	FieldLayout      = "layout"
	FieldSpreadsheet = "spreadsheet_id"
	FieldSheet       = "sheet"
	FieldManager     = "manager"
	FieldAccount     = "account"
	FieldMetric      = "metric"
	FieldCell        = "cell"
	FieldValue       = "value"
	FieldDryRun      = "dry_run"
	FieldAnchor      = "anchor"
	FieldManagerRow  = "manager_row"
)

// Components
const (
	ComponentApp       = "app"
	ComponentCollector = "collector"
	ComponentWriter    = "writer"
	ComponentMetrics   = "metrics"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentBackend   = "backend"
)

// Operations
const (
	OpFetch    = "fetch"
	OpWrite    = "write"
	OpPublish  = "publish"
	OpRun      = "run"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields builds structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRunID(id string) LogFields {
	f[FieldRunID] = id
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTarget adds the fields describing one cell write
func (f LogFields) WithTarget(account, metric, cell string, value any) LogFields {
	f[FieldAccount] = account
	f[FieldMetric] = metric
	f[FieldCell] = cell
	f[FieldValue] = value
	return f
}

// WithLayout adds layout and destination sheet fields
func (f LogFields) WithLayout(layout, spreadsheetID, sheet, manager string) LogFields {
	f[FieldLayout] = layout
	f[FieldSpreadsheet] = spreadsheetID
	f[FieldSheet] = sheet
	f[FieldManager] = manager
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
