// Package mq defines the wire contracts consumed from the events exchange.
// The web layer (project/task CRUD, design uploads) publishes these when a
// domain action should fan out as a notification.
package mq

import "time"

const (
	RoutingKeyProjectAssigned = "project.assigned"
	RoutingKeyTaskAssigned    = "task.assigned"
	RoutingKeyDesignUploaded  = "design.uploaded"
)

type ProjectAssignedPayload struct {
	ProjectID   int64     `json:"project_id"`
	ProjectName string    `json:"project_name"`
	UserID      int64     `json:"user_id"`
	AssignedBy  int64     `json:"assigned_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type TaskAssignedPayload struct {
	TaskID    int64     `json:"task_id"`
	Title     string    `json:"title"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type DesignUploadedPayload struct {
	ProjectID   int64     `json:"project_id"`
	ProjectName string    `json:"project_name"`
	UserID      int64     `json:"user_id"`
	Version     int       `json:"version"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
