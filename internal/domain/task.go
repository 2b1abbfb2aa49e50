package domain

import "time"

// TaskType classifies a care task.
type TaskType string

// Valid task types.
const (
	TaskFeeding     TaskType = "feeding"
	TaskCleaning    TaskType = "cleaning"
	TaskVaccination TaskType = "vaccination"
	TaskMedication  TaskType = "medication"
	TaskGrooming    TaskType = "grooming"
	TaskVetVisit    TaskType = "vet_visit"
	TaskExercise    TaskType = "exercise"
	TaskOther       TaskType = "other"
)

// TaskTypes lists every valid task type.
var TaskTypes = []TaskType{
	TaskFeeding, TaskCleaning, TaskVaccination, TaskMedication,
	TaskGrooming, TaskVetVisit, TaskExercise, TaskOther,
}

// Priority of a task.
type Priority string

// Valid priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DueDateLayout is the timestamp layout tasks are stored with.
const DueDateLayout = "2006-01-02 15:04:05"

// Task is a scheduled care activity for a pet.
type Task struct {
	ID          int64
	UserID      int64
	PetID       int64
	TaskType    TaskType
	Title       string
	Description string
	DueDate     time.Time
	Priority    Priority
}

// Validate returns the first failing rule, judging the due date against now.
func (t Task) Validate(now time.Time) error {
	if err := ValidateTaskType(t.TaskType); err != nil {
		return err
	}
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	if err := ValidateDueDate(t.DueDate, now); err != nil {
		return err
	}
	return ValidatePriority(t.Priority)
}

// DueDateString formats the due date with DueDateLayout.
func (t Task) DueDateString() string {
	return t.DueDate.Format(DueDateLayout)
}
