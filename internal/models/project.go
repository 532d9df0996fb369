package models

// Project stages.
const (
	StageIdea     = "Idea"
	StageBuilding = "Building"
	StageLaunched = "Launched"
	StageGrowth   = "Growth"
)

// DefaultProjectDescription is used when a project is created without one.
const DefaultProjectDescription = "A new journey begins."

// ProjectStats holds display strings; Cost and Profit carry a
// currency-formatted number such as "$1,250".
type ProjectStats struct {
	Stage     string `json:"stage"`
	TimeSpent string `json:"timeSpent"`
	Cost      string `json:"cost"`
	Profit    string `json:"profit"`
}

// DefaultStats is the stats block of a freshly created project.
func DefaultStats() ProjectStats {
	return ProjectStats{Stage: StageIdea, TimeSpent: "0d", Cost: "$0", Profit: "$0"}
}

// Project is one venture. A user's projects are stored together under one
// key named after the owner.
type Project struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Stats       ProjectStats `json:"stats"`
	Entries     []DiaryEntry `json:"entries"`
}

// DiaryEntry is one dated log inside a project. Entries are kept newest-first,
// their comments oldest-first.
type DiaryEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Images    []string  `json:"images"`
	Timestamp int64     `json:"timestamp"`
	Date      string    `json:"date"`
	Comments  []Comment `json:"comments"`
}

// Comment is an append-only reply to a diary entry.
type Comment struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
	IsOwner bool   `json:"isOwner"`
	Avatar  string `json:"avatar,omitempty"`
}

// Normalize fills defaults for fields older or partial records may lack.
func (p *Project) Normalize() {
	def := DefaultStats()
	if p.Stats.Stage == "" {
		p.Stats.Stage = def.Stage
	}
	if p.Stats.TimeSpent == "" {
		p.Stats.TimeSpent = def.TimeSpent
	}
	if p.Stats.Cost == "" {
		p.Stats.Cost = def.Cost
	}
	if p.Stats.Profit == "" {
		p.Stats.Profit = def.Profit
	}
	if p.Entries == nil {
		p.Entries = []DiaryEntry{}
	}
	for i := range p.Entries {
		if p.Entries[i].Images == nil {
			p.Entries[i].Images = []string{}
		}
		if p.Entries[i].Comments == nil {
			p.Entries[i].Comments = []Comment{}
		}
	}
}

// FindEntry returns the index of the entry with id, or -1.
func (p *Project) FindEntry(id string) int {
	for i := range p.Entries {
		if p.Entries[i].ID == id {
			return i
		}
	}
	return -1
}
