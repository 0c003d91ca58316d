package shaper

import (
	"strings"

	"rdr-dashboard/model"
)

// LogsOrError splits the logs of an RDR into displayable rows or an error
// message. The backend reports a listing failure as a single entry that
// only carries an error.
func LogsOrError(logs []model.LogEntry) ([]model.LogEntry, string) {
	if len(logs) > 0 && logs[0].Error != "" {
		return nil, "Error retrieving logs: " + logs[0].Error
	}
	if logs == nil {
		return []model.LogEntry{}, ""
	}
	return logs, ""
}

// FilterLogs keeps the rows whose local path contains text, ignoring case.
// An empty filter keeps every row.
func FilterLogs(rows []model.LogEntry, text string) []model.LogEntry {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return rows
	}
	out := make([]model.LogEntry, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.LocalPath), text) {
			out = append(out, row)
		}
	}
	return out
}
