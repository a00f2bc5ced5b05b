package main

import (
	"path/filepath"
	"testing"
)

// newTestStore creates a TaskStore backed by a temp file that goes away with
// the test.
func newTestStore(t *testing.T) *TaskStore {
	t.Helper()
	store, err := OpenTaskStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open task store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string     { return &s }
func int64Ptr(i int64) *int64     { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestSeedData(t *testing.T) {
	store := newTestStore(t)

	milestones, err := store.ListMilestones(nil)
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	if len(milestones) != 4 {
		t.Fatalf("Expected 4 seeded milestones, got %d", len(milestones))
	}
	setup := milestones[0]
	if setup.Name != "Project Setup" {
		t.Errorf("Expected first milestone 'Project Setup', got '%s'", setup.Name)
	}
	if setup.Status != "completed" {
		t.Errorf("Expected 'Project Setup' status completed, got %s", setup.Status)
	}
	// The stored percentage stays at its default; only the live figure
	// reflects the completed bootstrap task.
	if setup.CompletionPercentage != 0 {
		t.Errorf("Expected stored completion 0, got %d", setup.CompletionPercentage)
	}
	if setup.TaskCounts == nil || setup.TaskCounts.CompletionPercentage != 100 {
		t.Errorf("Expected computed completion 100, got %+v", setup.TaskCounts)
	}

	tasks, err := store.ListTasks(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 bootstrap task, got %d", len(tasks))
	}
	bootstrap := tasks[0]
	if bootstrap.Title != "Setup Development Environment" {
		t.Errorf("Unexpected bootstrap task title: %s", bootstrap.Title)
	}
	if bootstrap.Status != "completed" || bootstrap.Priority != "high" {
		t.Errorf("Expected completed/high bootstrap task, got %s/%s", bootstrap.Status, bootstrap.Priority)
	}
	if bootstrap.CompletedAt == nil {
		t.Error("Expected bootstrap task to have completed_at set")
	}
	if bootstrap.MilestoneName == nil || *bootstrap.MilestoneName != "Project Setup" {
		t.Errorf("Expected bootstrap task linked to 'Project Setup', got %v", bootstrap.MilestoneName)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := OpenTaskStore(dbPath)
	if err != nil {
		t.Fatalf("First open failed: %v", err)
	}
	store.Close()

	store, err = OpenTaskStore(dbPath)
	if err != nil {
		t.Fatalf("Second open failed: %v", err)
	}
	defer store.Close()

	milestones, err := store.ListMilestones(nil)
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	if len(milestones) != 4 {
		t.Errorf("Expected 4 milestones after reopen, got %d", len(milestones))
	}

	tasks, err := store.ListTasks(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("Expected 1 task after reopen, got %d", len(tasks))
	}
}

func TestCreateTaskWithMilestoneLink(t *testing.T) {
	store := newTestStore(t)

	taskID, err := store.CreateTask("Write docs", strPtr("User guide"), "low",
		strPtr("Docs"), strPtr("2024-06-01"), floatPtr(8), int64Ptr(2))
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	tasks, err := store.ListTasks(nil, nil, nil, int64Ptr(2))
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task linked to milestone 2, got %d", len(tasks))
	}
	task := tasks[0]
	if task.ID != taskID {
		t.Errorf("Expected task ID %d, got %d", taskID, task.ID)
	}
	if task.Status != "pending" {
		t.Errorf("Expected default status 'pending', got '%s'", task.Status)
	}
	if task.MilestoneName == nil || *task.MilestoneName != "Core Development" {
		t.Errorf("Expected milestone 'Core Development', got %v", task.MilestoneName)
	}
	if task.EstimatedHours == nil || *task.EstimatedHours != 8 {
		t.Errorf("Expected estimated hours 8, got %v", task.EstimatedHours)
	}
}

func TestCreateTaskBadMilestoneRollsBack(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateTask("Orphan", nil, "medium", nil, nil, nil, int64Ptr(999))
	if err == nil {
		t.Fatal("Expected error linking to nonexistent milestone")
	}

	tasks, err := store.ListTasks(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	for _, task := range tasks {
		if task.Title == "Orphan" {
			t.Error("Task insert should have rolled back with the failed link")
		}
	}
}

func TestListTasksFilters(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.CreateTask("High prio", nil, "high", strPtr("Backend"), nil, nil, nil); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := store.CreateTask("Low prio", nil, "low", strPtr("Backend"), nil, nil, nil); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	tasks, err := store.ListTasks(strPtr("pending"), strPtr("high"), strPtr("Backend"), nil)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "High prio" {
		t.Fatalf("Expected exactly the high-priority task, got %d tasks", len(tasks))
	}
}

func TestUpdateTaskNoFields(t *testing.T) {
	store := newTestStore(t)

	taskID, err := store.CreateTask("Untouched", nil, "medium", nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	updated, err := store.UpdateTask(taskID, nil, nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated {
		t.Error("Expected no update when no fields are given")
	}

	task, err := store.GetTask(taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Title != "Untouched" || task.Status != "pending" {
		t.Errorf("Task changed unexpectedly: %s/%s", task.Title, task.Status)
	}
}

func TestUpdateTaskCompletedStampsTimestamp(t *testing.T) {
	store := newTestStore(t)

	taskID, err := store.CreateTask("Finish me", nil, "medium", nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	task, err := store.GetTask(taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.CompletedAt != nil {
		t.Fatal("New task should not have completed_at set")
	}

	updated, err := store.UpdateTask(taskID, nil, nil, strPtr("completed"), nil, nil, nil)
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if !updated {
		t.Fatal("Expected update to apply")
	}

	task, err = store.GetTask(taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != "completed" {
		t.Errorf("Expected status 'completed', got '%s'", task.Status)
	}
	if task.CompletedAt == nil {
		t.Error("Expected completed_at to be stamped")
	}
}

func TestUpdateTaskUnknownID(t *testing.T) {
	store := newTestStore(t)

	updated, err := store.UpdateTask(12345, strPtr("Nope"), nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated {
		t.Error("Expected no rows affected for unknown task ID")
	}
}

func TestLogTimeAccumulatesActualHours(t *testing.T) {
	store := newTestStore(t)

	taskID, err := store.CreateTask("Timed", nil, "medium", nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if _, err := store.LogTime(taskID, 3, strPtr("morning"), "2024-05-01"); err != nil {
		t.Fatalf("LogTime failed: %v", err)
	}
	if _, err := store.LogTime(taskID, 2, nil, "2024-05-02"); err != nil {
		t.Fatalf("LogTime failed: %v", err)
	}

	task, err := store.GetTask(taskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.ActualHours == nil || *task.ActualHours != 5 {
		t.Errorf("Expected actual_hours 5, got %v", task.ActualHours)
	}
}

func TestMilestoneTaskCounts(t *testing.T) {
	store := newTestStore(t)

	milestoneID, err := store.CreateMilestone("Beta", strPtr("Beta release"), strPtr("2024-07-01"))
	if err != nil {
		t.Fatalf("CreateMilestone failed: %v", err)
	}

	var taskIDs []int64
	for i := 0; i < 4; i++ {
		id, err := store.CreateTask("Beta work", nil, "medium", nil, nil, nil, &milestoneID)
		if err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
		taskIDs = append(taskIDs, id)
	}
	if _, err := store.UpdateTask(taskIDs[0], nil, nil, strPtr("completed"), nil, nil, nil); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	milestones, err := store.ListMilestones(nil)
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	var beta *Milestone
	for _, m := range milestones {
		if m.ID == milestoneID {
			beta = m
		}
	}
	if beta == nil {
		t.Fatal("Created milestone not listed")
	}
	if beta.TaskCounts == nil {
		t.Fatal("Expected task counts on milestone")
	}
	if beta.TaskCounts.TotalTasks != 4 || beta.TaskCounts.CompletedTasks != 1 {
		t.Errorf("Expected 4 total / 1 completed, got %d/%d",
			beta.TaskCounts.TotalTasks, beta.TaskCounts.CompletedTasks)
	}
	if beta.TaskCounts.CompletionPercentage != 25 {
		t.Errorf("Expected 25%% completion, got %v", beta.TaskCounts.CompletionPercentage)
	}
}

// The stored completion_percentage and the figure derived from linked tasks
// are independent readings; one moving must not drag the other along.
func TestMilestoneStoredAndComputedCompletionDiverge(t *testing.T) {
	store := newTestStore(t)

	milestoneID, err := store.CreateMilestone("Divergent", nil, nil)
	if err != nil {
		t.Fatalf("CreateMilestone failed: %v", err)
	}

	first, err := store.CreateTask("a", nil, "medium", nil, nil, nil, &milestoneID)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := store.CreateTask("b", nil, "medium", nil, nil, nil, &milestoneID); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := store.UpdateTask(first, nil, nil, strPtr("completed"), nil, nil, nil); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	milestones, err := store.ListMilestones(nil)
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	for _, m := range milestones {
		if m.ID != milestoneID {
			continue
		}
		if m.CompletionPercentage != 0 {
			t.Errorf("Stored percentage should stay 0, got %d", m.CompletionPercentage)
		}
		if m.TaskCounts.CompletionPercentage != 50 {
			t.Errorf("Computed percentage should be 50, got %v", m.TaskCounts.CompletionPercentage)
		}
		return
	}
	t.Fatal("Milestone not found")
}

func TestMilestoneWithNoTasks(t *testing.T) {
	store := newTestStore(t)

	milestoneID, err := store.CreateMilestone("Empty", nil, nil)
	if err != nil {
		t.Fatalf("CreateMilestone failed: %v", err)
	}

	milestones, err := store.ListMilestones(nil)
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	for _, m := range milestones {
		if m.ID == milestoneID {
			if m.TaskCounts.TotalTasks != 0 || m.TaskCounts.CompletionPercentage != 0 {
				t.Errorf("Empty milestone should report 0 tasks and 0%%, got %d/%v",
					m.TaskCounts.TotalTasks, m.TaskCounts.CompletionPercentage)
			}
			return
		}
	}
	t.Fatal("Milestone not found")
}

func TestListMilestonesStatusFilter(t *testing.T) {
	store := newTestStore(t)

	milestones, err := store.ListMilestones(strPtr("completed"))
	if err != nil {
		t.Fatalf("ListMilestones failed: %v", err)
	}
	if len(milestones) != 1 || milestones[0].Name != "Project Setup" {
		t.Fatalf("Expected only the seeded completed milestone, got %d", len(milestones))
	}
}

func TestAddNoteAttachments(t *testing.T) {
	store := newTestStore(t)

	taskID, err := store.CreateTask("Noted", nil, "medium", nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// Task-attached, milestone-attached, and free-floating notes are all
	// valid.
	if _, err := store.AddNote("Review", "blocked on review", strPtr("process"), &taskID, nil); err != nil {
		t.Fatalf("AddNote with task failed: %v", err)
	}
	if _, err := store.AddNote("Timeline", "target may slip", nil, nil, int64Ptr(2)); err != nil {
		t.Fatalf("AddNote with milestone failed: %v", err)
	}
	noteID, err := store.AddNote("Scratch", "unattached thought", nil, nil, nil)
	if err != nil {
		t.Fatalf("AddNote without links failed: %v", err)
	}
	if noteID == 0 {
		t.Error("Expected non-zero note ID")
	}
}

func TestCascadeDeleteCleansUpTaskRows(t *testing.T) {
	store := newTestStore(t)

	taskID, err := store.CreateTask("Doomed", nil, "medium", nil, nil, nil, int64Ptr(3))
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := store.AddNote("Doomed note", "goes with the task", nil, &taskID, nil); err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	if _, err := store.LogTime(taskID, 1, nil, "2024-05-01"); err != nil {
		t.Fatalf("LogTime failed: %v", err)
	}

	if _, err := store.db.Exec("DELETE FROM tasks WHERE id = ?", taskID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	for _, table := range []string{"task_milestones", "notes", "time_logs"} {
		var count int64
		if err := store.db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE task_id = ?", taskID).Scan(&count); err != nil {
			t.Fatalf("Count query on %s failed: %v", table, err)
		}
		if count != 0 {
			t.Errorf("Expected cascade delete to clear %s, found %d rows", table, count)
		}
	}
}

func TestProjectStatus(t *testing.T) {
	store := newTestStore(t)

	taskID, err := store.CreateTask("In flight", nil, "high", nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := store.UpdateTask(taskID, nil, nil, strPtr("in_progress"), nil, nil, nil); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if _, err := store.LogTime(taskID, 2.5, nil, "2024-05-01"); err != nil {
		t.Fatalf("LogTime failed: %v", err)
	}

	status, err := store.ProjectStatus()
	if err != nil {
		t.Fatalf("ProjectStatus failed: %v", err)
	}

	counts := map[string]int64{}
	for _, sc := range status.TaskStatistics {
		counts[sc.Status] = sc.Count
	}
	if counts["completed"] != 1 || counts["in_progress"] != 1 {
		t.Errorf("Unexpected task counts: %v", counts)
	}

	if len(status.MilestoneProgress) != 4 {
		t.Fatalf("Expected 4 milestones in status, got %d", len(status.MilestoneProgress))
	}
	setup := status.MilestoneProgress[0]
	if setup.Name != "Project Setup" || setup.CompletionPercentage != 100 {
		t.Errorf("Expected 'Project Setup' at 100%%, got %s at %v", setup.Name, setup.CompletionPercentage)
	}

	if len(status.RecentActivity) != 2 {
		t.Errorf("Expected 2 recent tasks, got %d", len(status.RecentActivity))
	}
	seen := false
	for _, rt := range status.RecentActivity {
		if rt.Title == "In flight" {
			seen = true
		}
	}
	if !seen {
		t.Error("Expected 'In flight' among recent activity")
	}

	if status.TimeTracking.TotalHours != 2.5 || status.TimeTracking.TotalEntries != 1 || status.TimeTracking.TasksWithTime != 1 {
		t.Errorf("Unexpected time summary: %+v", status.TimeTracking)
	}
	if status.GeneratedAt.IsZero() {
		t.Error("Expected generated_at to be set")
	}
}
