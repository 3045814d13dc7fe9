package services

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTaskTypeAIRespond_Constant(t *testing.T) {
	if TaskTypeAIRespond != "ai:respond" {
		t.Errorf("TaskTypeAIRespond = %q, expected %q", TaskTypeAIRespond, "ai:respond")
	}
}

func TestAITask_Structure(t *testing.T) {
	task := AITask{
		RequestID:     "req-1",
		ProjectID:     10,
		Room:          "project:10",
		Prompt:        "explain goroutines",
		RequesterID:   7,
		RequesterName: "alice",
	}

	if task.RequestID != "req-1" {
		t.Errorf("RequestID = %q", task.RequestID)
	}
	if task.ProjectID != 10 {
		t.Errorf("ProjectID = %d, expected 10", task.ProjectID)
	}
	if task.Room != "project:10" {
		t.Errorf("Room = %q", task.Room)
	}
	if task.Prompt != "explain goroutines" {
		t.Errorf("Prompt = %q", task.Prompt)
	}
	if task.RequesterID != 7 || task.RequesterName != "alice" {
		t.Errorf("requester fields wrong: %+v", task)
	}
}

func TestSyncQueue_New(t *testing.T) {
	queue := NewSyncQueue()
	if queue == nil {
		t.Error("NewSyncQueue should not return nil")
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	queue := NewSyncQueue()
	if queue.IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
}

func TestSyncQueue_Close(t *testing.T) {
	queue := NewSyncQueue()
	err := queue.Close()
	if err != nil {
		t.Errorf("SyncQueue.Close() should return nil, got %v", err)
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()
	task := &AITask{RequestID: "r", ProjectID: 1}

	err := queue.Enqueue(task)
	if err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_ProcessorRuns(t *testing.T) {
	queue := NewSyncQueue()

	var mu sync.Mutex
	var got *AITask
	done := make(chan struct{})

	queue.SetProcessor(func(ctx context.Context, task *AITask) error {
		mu.Lock()
		got = task
		mu.Unlock()
		close(done)
		return nil
	})

	if err := queue.Enqueue(&AITask{RequestID: "r-42"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor was never invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if got == nil || got.RequestID != "r-42" {
		t.Errorf("processor received %+v", got)
	}
}

func TestAsyncQueue_IsAsync(t *testing.T) {
	queue := &AsyncQueue{}
	if !queue.IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}
