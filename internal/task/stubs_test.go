package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// stubTask is a controllable Task implementation for runner tests.
type stubTask struct {
	id        uuid.UUID
	taskType  string
	payload   []byte
	executeFn func(ctx context.Context) error
}

// newStubTask builds a pending stub whose payload carries a label so failed
// assertions are easy to trace back.
func newStubTask(label string) *stubTask {
	payload, _ := json.Marshal(map[string]string{"label": label})
	return &stubTask{
		id:        uuid.New(),
		taskType:  "stub_task",
		payload:   payload,
		executeFn: func(ctx context.Context) error { return nil },
	}
}

func (t *stubTask) ID() uuid.UUID      { return t.id }
func (t *stubTask) Type() string       { return t.taskType }
func (t *stubTask) Payload() []byte    { return t.payload }
func (t *stubTask) Status() TaskStatus { return TaskStatusPending }

func (t *stubTask) Execute(ctx context.Context) error { return t.executeFn(ctx) }

// stubTaskStore is an in-memory TaskStore. Statuses live in the store rather
// than on the tasks, mirroring how the real store owns the status column.
type stubTaskStore struct {
	mu          sync.RWMutex
	tasks       map[uuid.UUID]Task
	statuses    map[uuid.UUID]TaskStatus
	statusTimes map[uuid.UUID]time.Time
	saveErr     error
}

func newStubTaskStore() *stubTaskStore {
	return &stubTaskStore{
		tasks:       make(map[uuid.UUID]Task),
		statuses:    make(map[uuid.UUID]TaskStatus),
		statusTimes: make(map[uuid.UUID]time.Time),
	}
}

func (s *stubTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.saveErr != nil {
		return s.saveErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID()] = task
	s.statuses[task.ID()] = task.Status()
	s.statusTimes[task.ID()] = time.Now()
	return nil
}

func (s *stubTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[taskID]; !exists {
		return nil
	}
	s.statuses[taskID] = status
	s.statusTimes[taskID] = time.Now()
	return nil
}

func (s *stubTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	return s.tasksWithStatus(TaskStatusPending, 0), nil
}

func (s *stubTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return s.tasksWithStatus(TaskStatusProcessing, olderThan), nil
}

func (s *stubTaskStore) WithTx(tx *sql.Tx) TaskStore { return s }

func (s *stubTaskStore) tasksWithStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var matched []Task
	for id, task := range s.tasks {
		if s.statuses[id] != status {
			continue
		}
		if olderThan > 0 && now.Sub(s.statusTimes[id]) <= olderThan {
			continue
		}
		matched = append(matched, task)
	}
	return matched
}

// status reads the stored status for a task.
func (s *stubTaskStore) status(taskID uuid.UUID) TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses[taskID]
}

// backdateStatus ages a task's last status transition, for exercising the
// stuck-task sweep.
func (s *stubTaskStore) backdateStatus(taskID uuid.UUID, age time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusTimes[taskID] = time.Now().Add(-age)
}
