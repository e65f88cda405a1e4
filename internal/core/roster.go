package core

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ManagerAccounts lists the handles tracked under one manager label.
type ManagerAccounts struct {
	Manager string
	Handles []string
}

// NormalizeHandle folds full-width characters (so "＠" becomes "@"), strips
// every "@" and trims surrounding space.
func NormalizeHandle(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "@", "")
	return strings.TrimSpace(s)
}

// GroupRoster pairs two parallel single-column blocks (manager labels and
// account handles) and groups handles by manager. Managers and handles keep
// sheet order. Rows with an empty handle are dropped.
func GroupRoster(managers, handles [][]any) []ManagerAccounts {
	var out []ManagerAccounts
	index := map[string]int{}
	for i, row := range handles {
		var raw any
		if len(row) > 0 {
			raw = row[0]
		}
		handle := NormalizeHandle(Stringify(raw))
		if handle == "" {
			continue
		}
		manager := ""
		if i < len(managers) && len(managers[i]) > 0 {
			manager = strings.TrimSpace(Stringify(managers[i][0]))
		}
		pos, ok := index[manager]
		if !ok {
			pos = len(out)
			index[manager] = pos
			out = append(out, ManagerAccounts{Manager: manager})
		}
		out[pos].Handles = append(out[pos].Handles, handle)
	}
	return out
}

// RosterSource locates the account list: two parallel single-column ranges
// holding manager labels and account handles.
type RosterSource struct {
	SpreadsheetID string
	SheetName     string
	ManagerRange  RangeRef
	UsernameRange RangeRef
}
