package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Granularity says whether kanban items are tasks or whole milestones.
// Older documents track progress per milestone and have no task list.
type Granularity string

const (
	GranularityTask      Granularity = "task"
	GranularityMilestone Granularity = "milestone"
)

var (
	ErrInvalidStatus       = errors.New("status must be backlog, in_progress or done")
	ErrMilestoneOutOfRange = errors.New("milestone index out of range")
	ErrTaskOutOfRange      = errors.New("task index out of range")
	ErrGranularity         = errors.New("operation does not apply to this roadmap granularity")
	ErrRoadmapNotFound     = errors.New("roadmap not found")
)

type Task struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     Status `json:"status"`
	Difficulty string `json:"difficulty,omitempty"`
}

type Milestone struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Timeline       string   `json:"timeline"`
	RequiredSkills []string `json:"required_skills"`
	Status         Status   `json:"status,omitempty"`
	// Completed is kept in step with task statuses by every mutation.
	Completed bool   `json:"completed"`
	Tasks     []Task `json:"tasks"`
}

type Progress struct {
	Percentage          int `json:"percentage"`
	MilestonesCompleted int `json:"milestones_completed"`
	TotalMilestones     int `json:"total_milestones"`
	TasksCompleted      int `json:"tasks_completed"`
	TotalTasks          int `json:"total_tasks"`
}

type KanbanItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UnmarshalJSON accepts the legacy form where a column holds bare titles.
func (k *KanbanItem) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		*k = KanbanItem{Title: title}
		return nil
	}
	type plain KanbanItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*k = KanbanItem(p)
	return nil
}

type Kanban struct {
	Backlog    []KanbanItem `json:"backlog"`
	InProgress []KanbanItem `json:"in_progress"`
	Done       []KanbanItem `json:"done"`
}

// Column returns the column an item with the given id or title sits in.
// Lookup by id wins; title is only consulted for items without an id.
func (k Kanban) Column(id, title string) (Status, bool) {
	cols := []struct {
		status Status
		items  []KanbanItem
	}{
		{StatusDone, k.Done},
		{StatusInProgress, k.InProgress},
		{StatusBacklog, k.Backlog},
	}
	for _, c := range cols {
		for _, it := range c.items {
			if it.ID != "" && it.ID == id {
				return c.status, true
			}
		}
	}
	for _, c := range cols {
		for _, it := range c.items {
			if it.ID == "" && it.Title != "" && it.Title == title {
				return c.status, true
			}
		}
	}
	return "", false
}

type Roadmap struct {
	UserID      string      `json:"user_id,omitempty"`
	Email       string      `json:"email"`
	Summary     string      `json:"roadmap_summary,omitempty"`
	CareerGoal  string      `json:"career_goal,omitempty"`
	Granularity Granularity `json:"granularity,omitempty"`
	Milestones  []Milestone `json:"milestones"`
	Progress    Progress    `json:"progress"`
	Kanban      Kanban      `json:"kanban"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (r *Roadmap) Clone() *Roadmap {
	if r == nil {
		return nil
	}
	c := *r
	c.Milestones = make([]Milestone, len(r.Milestones))
	for i, m := range r.Milestones {
		m.RequiredSkills = append([]string(nil), m.RequiredSkills...)
		m.Tasks = append([]Task(nil), m.Tasks...)
		c.Milestones[i] = m
	}
	c.Kanban = Kanban{
		Backlog:    append([]KanbanItem(nil), r.Kanban.Backlog...),
		InProgress: append([]KanbanItem(nil), r.Kanban.InProgress...),
		Done:       append([]KanbanItem(nil), r.Kanban.Done...),
	}
	return &c
}

// GenerateRequest is the body of a roadmap generation call.
type GenerateRequest struct {
	Email           string   `json:"email"`
	CareerGoal      string   `json:"career_goal"`
	Skills          []string `json:"skills"`
	ExperienceLevel string   `json:"experience_level"`
}

// Store persists and fetches roadmap documents for a user.
type Store interface {
	Generate(ctx context.Context, req GenerateRequest) (*Roadmap, error)
	Fetch(ctx context.Context, email string, refresh bool) (*Roadmap, error)
	Update(ctx context.Context, email string, r *Roadmap) error
}
