package order

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)
