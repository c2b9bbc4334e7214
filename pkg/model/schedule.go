package model

type ScheduleMode string

const (
	ScheduleFull    ScheduleMode = "full"
	ScheduleCompact ScheduleMode = "compact"
)

func (m ScheduleMode) Valid() bool {
	return m == ScheduleFull || m == ScheduleCompact
}

// ScheduleRow holds the occupying group per lane; Cells[i] belongs to Lanes[i]
// of the enclosing Schedule and is empty when the lane is free.
type ScheduleRow struct {
	Time  string   `json:"time"`
	Cells []string `json:"cells"`
}

func (r ScheduleRow) Occupied() bool {
	for _, c := range r.Cells {
		if c != "" {
			return true
		}
	}
	return false
}

type Schedule struct {
	RunID string        `json:"run_id,omitempty"`
	Mode  ScheduleMode  `json:"mode"`
	Lanes []Lane        `json:"lanes"`
	Rows  []ScheduleRow `json:"rows"`
}
