package core

// ReportEntry records one planned or performed cell write.
type ReportEntry struct {
	Account string `json:"account"`
	Metric  string `json:"metric"`
	Address string `json:"address"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Value   any    `json:"value"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// WriteReport is the outcome of one batch write.
type WriteReport struct {
	Layout        string        `json:"layout"`
	SpreadsheetID string        `json:"spreadsheet_id"`
	SheetName     string        `json:"sheet_name"`
	Manager       string        `json:"manager"`
	DryRun        bool          `json:"dry_run"`
	Anchor        Anchor        `json:"anchor"`
	Entries       []ReportEntry `json:"entries"`
}

// AppliedCount returns how many entries reached the sheet.
func (r WriteReport) AppliedCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Applied {
			n++
		}
	}
	return n
}

// Failed returns the entries whose live write returned an error.
func (r WriteReport) Failed() []ReportEntry {
	var out []ReportEntry
	for _, e := range r.Entries {
		if e.Error != "" {
			out = append(out, e)
		}
	}
	return out
}
