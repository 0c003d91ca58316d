package model

import "encoding/json"

// RDR is one robot data range row as listed by the backend
type RDR struct {
	RDR         string  `json:"rdr"`
	Alias       string  `json:"alias"`
	ID          string  `json:"id"`
	StartTime   string  `json:"start_time"`   // ISO 8601 with offset
	EndTime     string  `json:"end_time"`     // ISO 8601 with offset
	Duration    float64 `json:"duration"`     // Seconds
	FoxgloveURL string  `json:"foxglove_url"` // Empty when the range has no Foxglove layout
}

// RDRList is the response of GET /{rdrsets|machines|rcms}/{param}
type RDRList struct {
	Type              string             `json:"type"`
	Identifier        string             `json:"identifier"`
	Total             int                `json:"total"`
	ValidAliases      []string           `json:"valid_aliases"`
	ValidIDs          []string           `json:"valid_ids"`
	DateHistogram     map[string]int     `json:"date_histogram"`     // "2024-01-01" -> count, sparse
	DurationHistogram map[string]int     `json:"duration_histogram"` // "<low>-<high>" -> count
	DurationKDE       map[string]float64 `json:"duration_kde"`       // x -> density
	MachineHistogram  map[string]int     `json:"machine_histogram"`  // alias -> count
	RCMHistogram      map[string]int     `json:"rcm_histogram"`      // rcm id -> count
	RDRs              []RDR              `json:"rdrs"`
}

func (l RDRList) PageTotal() int { return l.Total }
func (l RDRList) PageLen() int   { return len(l.RDRs) }

// LogEntry is a single recorded log file of an RDR.
// When the backend fails to list logs it returns a single entry carrying only Error.
type LogEntry struct {
	StartTime string  `json:"start_time,omitempty"`
	EndTime   string  `json:"end_time,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	LocalPath string  `json:"local_path,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// RDRDetails is the response of GET /rdrs/{param}
type RDRDetails struct {
	RDR            string                     `json:"rdr"`
	Alias          string                     `json:"alias"`
	ID             string                     `json:"id"`
	StartTime      string                     `json:"start_time"`
	EndTime        string                     `json:"end_time"`
	Duration       float64                    `json:"duration"`
	FoxgloveURL    string                     `json:"foxglove_url"`
	FoxgloveStatus string                     `json:"foxglove_status"`
	Classifiers    map[string]json.RawMessage `json:"classifiers"` // name -> {label: {timestamp: bool}} | {"error": ...}
	Logs           []LogEntry                 `json:"logs"`
}
