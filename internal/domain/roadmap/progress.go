package roadmap

import (
	"fmt"

	"github.com/google/uuid"
)

var idNamespace = uuid.MustParse("6f1c1e0a-3b57-4d55-9a57-0c8f3d1e2a44")

// Normalize returns a copy with stable ids assigned, granularity detected,
// statuses derived from a legacy kanban where missing, and kanban and
// progress rebuilt. Ids are derived from position and title so the same
// legacy document always yields the same ids.
func (r *Roadmap) Normalize() *Roadmap {
	c := r.Clone()
	if c.Granularity == "" {
		c.Granularity = GranularityMilestone
		for _, m := range c.Milestones {
			if len(m.Tasks) > 0 {
				c.Granularity = GranularityTask
				break
			}
		}
	}

	for i := range c.Milestones {
		m := &c.Milestones[i]
		if m.ID == "" {
			m.ID = uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("m/%d/%s", i, m.Title))).String()
		}
		for j := range m.Tasks {
			t := &m.Tasks[j]
			if t.ID == "" {
				t.ID = uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s/t/%d/%s", m.ID, j, t.Title))).String()
			}
			if !t.Status.Valid() {
				t.Status = legacyStatus(c.Kanban, t.ID, t.Title, false)
			}
		}
		if !m.Status.Valid() {
			m.Status = legacyStatus(c.Kanban, m.ID, m.Title, m.Completed)
		}
	}

	c.recompute()
	return c
}

func legacyStatus(k Kanban, id, title string, completed bool) Status {
	if s, ok := k.Column(id, title); ok {
		return s
	}
	if completed {
		return StatusDone
	}
	return StatusBacklog
}

// Recompute returns a copy whose kanban and progress are rebuilt from the
// milestone and task statuses.
func (r *Roadmap) Recompute() *Roadmap {
	c := r.Clone()
	c.recompute()
	return c
}

// SetTaskStatus moves one task. Only valid for task granularity.
func (r *Roadmap) SetTaskStatus(milestoneIdx, taskIdx int, s Status) (*Roadmap, error) {
	if !s.Valid() {
		return nil, ErrInvalidStatus
	}
	if r.Granularity != GranularityTask {
		return nil, ErrGranularity
	}
	if milestoneIdx < 0 || milestoneIdx >= len(r.Milestones) {
		return nil, ErrMilestoneOutOfRange
	}
	if taskIdx < 0 || taskIdx >= len(r.Milestones[milestoneIdx].Tasks) {
		return nil, ErrTaskOutOfRange
	}

	c := r.Clone()
	c.Milestones[milestoneIdx].Tasks[taskIdx].Status = s
	c.recompute()
	return c, nil
}

// SetMilestoneStatus moves a whole milestone. For task granularity every task
// of the milestone takes the status before anything is recomputed, so no
// half-applied state is ever returned. For milestone granularity the
// milestone itself is the kanban item.
func (r *Roadmap) SetMilestoneStatus(milestoneIdx int, s Status) (*Roadmap, error) {
	if !s.Valid() {
		return nil, ErrInvalidStatus
	}
	if milestoneIdx < 0 || milestoneIdx >= len(r.Milestones) {
		return nil, ErrMilestoneOutOfRange
	}

	c := r.Clone()
	m := &c.Milestones[milestoneIdx]
	for j := range m.Tasks {
		m.Tasks[j].Status = s
	}
	m.Status = s
	c.recompute()
	return c, nil
}

// Locate finds a task by id.
func (r *Roadmap) Locate(taskID string) (milestoneIdx, taskIdx int, ok bool) {
	for i, m := range r.Milestones {
		for j, t := range m.Tasks {
			if t.ID == taskID {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

func (r *Roadmap) MilestoneIndex(id string) (int, bool) {
	for i, m := range r.Milestones {
		if m.ID == id {
			return i, true
		}
	}
	return -1, false
}

// recompute rebuilds kanban and progress with a full scan. Nothing is
// updated incrementally.
func (r *Roadmap) recompute() {
	var k Kanban
	var p Progress
	add := func(s Status, it KanbanItem) {
		switch s {
		case StatusDone:
			k.Done = append(k.Done, it)
		case StatusInProgress:
			k.InProgress = append(k.InProgress, it)
		default:
			k.Backlog = append(k.Backlog, it)
		}
	}

	p.TotalMilestones = len(r.Milestones)
	for i := range r.Milestones {
		m := &r.Milestones[i]
		for j := range m.Tasks {
			t := &m.Tasks[j]
			if !t.Status.Valid() {
				t.Status = StatusBacklog
			}
			p.TotalTasks++
			if t.Status == StatusDone {
				p.TasksCompleted++
			}
		}

		if r.Granularity == GranularityTask {
			if len(m.Tasks) > 0 {
				m.Status = rollup(m.Tasks)
			} else if !m.Status.Valid() {
				m.Status = StatusBacklog
			}
			for _, t := range m.Tasks {
				add(t.Status, KanbanItem{ID: t.ID, Title: t.Title})
			}
		} else {
			if !m.Status.Valid() {
				m.Status = StatusBacklog
			}
			add(m.Status, KanbanItem{ID: m.ID, Title: m.Title})
		}

		m.Completed = m.Status == StatusDone
		if m.Completed {
			p.MilestonesCompleted++
		}
	}

	if r.Granularity == GranularityTask {
		p.Percentage = percent(p.TasksCompleted, p.TotalTasks)
	} else {
		p.Percentage = percent(p.MilestonesCompleted, p.TotalMilestones)
	}

	if k.Backlog == nil {
		k.Backlog = []KanbanItem{}
	}
	if k.InProgress == nil {
		k.InProgress = []KanbanItem{}
	}
	if k.Done == nil {
		k.Done = []KanbanItem{}
	}
	r.Kanban = k
	r.Progress = p
}

// rollup derives a milestone status from its tasks: done when all are done,
// in progress once any has started.
func rollup(tasks []Task) Status {
	done := 0
	started := false
	for _, t := range tasks {
		switch t.Status {
		case StatusDone:
			done++
			started = true
		case StatusInProgress:
			started = true
		}
	}
	switch {
	case done == len(tasks):
		return StatusDone
	case started:
		return StatusInProgress
	}
	return StatusBacklog
}

// percent is round(100*done/total) in integer arithmetic, clamped to 0..100.
func percent(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return (200*done + total) / (2 * total)
}
