package model

// Set is a named, tagged collection of RDRs
type Set struct {
	Set         string   `json:"set"`
	Description string   `json:"description"`
	CreatedBy   string   `json:"created_by"`
	CreatedAt   string   `json:"created_at"`
	Count       int      `json:"count"`
	Duration    float64  `json:"duration"`
	Tags        []string `json:"tags"`
}

// SetList is the response of GET /sets
type SetList struct {
	Total        int      `json:"total"`
	ValidAuthors []string `json:"valid_authors"`
	Sets         []Set    `json:"sets"`
}

func (l SetList) PageTotal() int { return l.Total }
func (l SetList) PageLen() int   { return len(l.Sets) }
