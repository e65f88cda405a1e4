package services

import (
	"context"
	"fmt"

	"ffsync/internal/core"
	"ffsync/internal/sheets"
)

// ReadRoster reads the account list and groups handles by manager label.
func ReadRoster(ctx context.Context, opener sheets.Opener, src core.RosterSource) ([]core.ManagerAccounts, error) {
	sh, err := opener.OpenSheet(ctx, src.SpreadsheetID, src.SheetName)
	if err != nil {
		return nil, fmt.Errorf("open roster sheet %q: %w", src.SheetName, err)
	}
	managers, err := sh.GetRange(ctx, src.ManagerRange)
	if err != nil {
		return nil, fmt.Errorf("read manager range %s: %w", src.ManagerRange, err)
	}
	handles, err := sh.GetRange(ctx, src.UsernameRange)
	if err != nil {
		return nil, fmt.Errorf("read username range %s: %w", src.UsernameRange, err)
	}
	return core.GroupRoster(managers.Values, handles.Values), nil
}
