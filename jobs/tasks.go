package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup pre-populates dashboard caches per organization.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskDashboardBump invalidates dashboard caches after writes.
	TaskDashboardBump = "dashboard:bump"
)

// DashboardWarmupPayload scopes a warmup run. An empty OrganizationIDs list
// means every active organization.
type DashboardWarmupPayload struct {
	OrganizationIDs []int64 `json:"organization_ids,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// NewDashboardBumpTask constructs a cache invalidation task.
func NewDashboardBumpTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardBump, nil)
}
