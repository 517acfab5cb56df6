package models

import (
	"strings"
	"time"
)

// ProjectStatus represents the lifecycle of a project
type ProjectStatus string

const (
	ProjectPlanned    ProjectStatus = "planned"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// ProjectStatuses lists every status in display order
func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{ProjectPlanned, ProjectInProgress, ProjectCompleted, ProjectCancelled}
}

// Project is a piece of work composed of inventory lines
type Project struct {
	Record
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	ClientName  string        `json:"clientName"`
	LaborHours  float64       `json:"laborHours"`
	HourlyRate  float64       `json:"hourlyRate"`
	MiscCost    float64       `json:"miscCost"`
	SalePrice   float64       `json:"salePrice"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	ShareToken  *string       `json:"shareToken,omitempty"`
	Notes       string        `json:"notes"`
}

// Normalize applies defaults and clears CompletedAt when the project is not completed
func (p *Project) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == "" {
		p.Status = ProjectPlanned
	}
	if p.Status != ProjectCompleted {
		p.CompletedAt = nil
	}
}

// Stamp records now as the completion time of a completed project that has none yet
func (p *Project) Stamp(now time.Time) {
	if p.Status == ProjectCompleted && p.CompletedAt == nil {
		p.CompletedAt = &now
	}
}

// Validate checks if the project is valid
func (p *Project) Validate() error {
	err := firstError(
		requireText("name", p.Name),
		oneOf("status", p.Status, ProjectStatuses()...),
		requireNonNegative("laborHours", p.LaborHours),
		requireNonNegative("hourlyRate", p.HourlyRate),
		requireNonNegative("miscCost", p.MiscCost),
		requireNonNegative("salePrice", p.SalePrice),
	)
	if err != nil {
		return err
	}
	if p.StartDate != nil && p.DueDate != nil && p.DueDate.Before(*p.StartDate) {
		return invalid("dueDate must not be before startDate")
	}
	return nil
}

// Shared reports whether the project has a public share token
func (p *Project) Shared() bool {
	return p.ShareToken != nil && *p.ShareToken != ""
}

// ItemKind identifies which inventory table a project line points at
type ItemKind string

const (
	ItemLumber     ItemKind = "lumber"
	ItemFinish     ItemKind = "finish"
	ItemSheetGood  ItemKind = "sheet_good"
	ItemConsumable ItemKind = "consumable"
	ItemTool       ItemKind = "tool"
)

// ItemKinds lists every inventory kind
func ItemKinds() []ItemKind {
	return []ItemKind{ItemLumber, ItemFinish, ItemSheetGood, ItemConsumable, ItemTool}
}

// ProjectItem is one inventory line of a project.
// Finish lines consume Percentage of a container; tool lines carry neither value.
type ProjectItem struct {
	ProjectID  string   `json:"projectId"`
	Kind       ItemKind `json:"kind"`
	ItemID     string   `json:"itemId"`
	Quantity   float64  `json:"quantity"`
	Percentage float64  `json:"percentage"`
	SortOrder  int      `json:"sortOrder"`
}

// Normalize zeroes the values a kind does not use
func (i *ProjectItem) Normalize() {
	i.Kind = ItemKind(strings.ToLower(strings.TrimSpace(string(i.Kind))))
	switch i.Kind {
	case ItemFinish:
		i.Quantity = 0
	case ItemTool:
		i.Quantity = 0
		i.Percentage = 0
	default:
		i.Percentage = 0
	}
}

// Validate checks if the line is valid
func (i *ProjectItem) Validate() error {
	if err := oneOf("kind", i.Kind, ItemKinds()...); err != nil {
		return err
	}
	if err := requireText("itemId", i.ItemID); err != nil {
		return err
	}
	switch i.Kind {
	case ItemFinish:
		if err := requirePositive("percentage", i.Percentage); err != nil {
			return err
		}
		if i.Percentage > 100 {
			return invalid("percentage must not exceed 100")
		}
	case ItemTool:
	default:
		return requirePositive("quantity", i.Quantity)
	}
	return nil
}
