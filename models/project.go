package models

import "time"

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Keyword   string    `json:"keyword"`
	Leads     []*Lead   `json:"leads"`
	CreatedAt time.Time `json:"created_at"`
}

// FindLead returns the lead with the given id or nil
func (p *Project) FindLead(leadID string) *Lead {
	for _, l := range p.Leads {
		if l.ID == leadID {
			return l
		}
	}
	return nil
}

// Clone returns a deep copy of the project and its leads
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Leads = make([]*Lead, len(p.Leads))
	for i, l := range p.Leads {
		c.Leads[i] = l.Clone()
	}
	return &c
}
