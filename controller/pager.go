package controller

import (
	"rdr-dashboard/model"
	"rdr-dashboard/viewstate"
)

// Pager holds the offset pagination controls of a list screen
type Pager struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Len    int `json:"len"`   // rows on the loaded page
	Total  int `json:"total"` // rows matching the filters

	CanPrev    bool `json:"can_prev"`
	CanNext    bool `json:"can_next"`
	PrevOffset int  `json:"prev_offset"`
	NextOffset int  `json:"next_offset"`
	First      int  `json:"first"` // 1-based index of the first row shown
	Last       int  `json:"last"`
}

// NewPager computes the controls for state and its loaded page. Next steps
// by the returned page length, not the nominal limit, so a short page never
// skips or repeats rows.
func NewPager[S any](state S, page any, loaded bool) Pager {
	p := Pager{
		Offset: viewstate.Offset(state),
		Limit:  viewstate.Limit(state),
	}
	if paged, ok := page.(model.Paged); ok && loaded {
		p.Len = paged.PageLen()
		p.Total = paged.PageTotal()
	}
	p.CanPrev = p.Offset > 0
	p.CanNext = loaded && p.Offset+p.Len < p.Total
	p.PrevOffset = p.Offset - p.Limit
	if p.PrevOffset < 0 {
		p.PrevOffset = 0
	}
	p.NextOffset = p.Offset + p.Len
	p.First = p.Offset + 1
	p.Last = p.Offset + p.Len
	return p
}
