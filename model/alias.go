package model

// Alias binds a human-friendly machine name to an RCM id for a time interval
type Alias struct {
	Alias     string `json:"alias"`
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"` // Empty while the binding is still active
}

// AliasList is the response of GET /aliases
type AliasList struct {
	Total        int      `json:"total"`
	ValidAliases []string `json:"valid_aliases"`
	ValidIDs     []string `json:"valid_ids"`
	Aliases      []Alias  `json:"aliases"`
}

func (l AliasList) PageTotal() int { return l.Total }
func (l AliasList) PageLen() int   { return len(l.Aliases) }
