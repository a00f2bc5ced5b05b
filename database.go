package main

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// TaskStore is the SQLite-backed project tracker. All writes that touch
// more than one table run inside a transaction.
type TaskStore struct {
	db *sql.DB
}

type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Category       *string    `json:"category"`
	AssignedTo     *string    `json:"assigned_to"`
	DueDate        *string    `json:"due_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	EstimatedHours *float64   `json:"estimated_hours"`
	ActualHours    *float64   `json:"actual_hours"`
	Tags           *string    `json:"tags"`
	Dependencies   *string    `json:"dependencies"`
	Progress       int64      `json:"progress"`
	MilestoneName  *string    `json:"milestone_name"`
}

type Milestone struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	TargetDate  *string `json:"target_date"`
	Status      string  `json:"status"`
	// Stored value, not maintained automatically; the live figure derived
	// from linked tasks is reported separately in TaskCounts.
	CompletionPercentage int64               `json:"completion_percentage"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	TaskCounts           *MilestoneTaskCount `json:"task_counts,omitempty"`
}

// MilestoneTaskCount is the completion picture computed from the tasks
// linked to a milestone, independent of the stored percentage.
type MilestoneTaskCount struct {
	TotalTasks           int64   `json:"total_tasks"`
	CompletedTasks       int64   `json:"completed_tasks"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// MilestoneProgress is one row of the project-status milestone breakdown,
// with the completion percentage computed live from linked tasks.
type MilestoneProgress struct {
	Name                 string  `json:"name"`
	Status               string  `json:"status"`
	TargetDate           *string `json:"target_date"`
	TotalTasks           int64   `json:"total_tasks"`
	CompletedTasks       int64   `json:"completed_tasks"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type RecentTask struct {
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TimeSummary struct {
	TotalHours    float64 `json:"total_hours"`
	TasksWithTime int64   `json:"tasks_with_time"`
	TotalEntries  int64   `json:"total_entries"`
}

type ProjectStatus struct {
	TaskStatistics    []StatusCount       `json:"task_statistics"`
	MilestoneProgress []MilestoneProgress `json:"milestone_progress"`
	RecentActivity    []RecentTask        `json:"recent_activity"`
	TimeTracking      TimeSummary         `json:"time_tracking"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

// OpenTaskStore opens (creating if needed) the tracker database at dbPath,
// initializes the schema, and seeds the default milestones and bootstrap
// task on first use.
func OpenTaskStore(dbPath string) (*TaskStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Required for ON DELETE CASCADE on link, note, and time-log rows.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &TaskStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.seed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	return store, nil
}

func (s *TaskStore) initSchema() error {
	tables := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'completed', 'on_hold')),
		priority TEXT DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
		category TEXT,
		assigned_to TEXT,
		due_date TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME,
		estimated_hours REAL,
		actual_hours REAL,
		tags TEXT,
		dependencies TEXT,
		progress INTEGER DEFAULT 0 CHECK (progress >= 0 AND progress <= 100)
	);

	CREATE TABLE IF NOT EXISTS milestones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		target_date TEXT,
		status TEXT DEFAULT 'active' CHECK (status IN ('active', 'completed', 'delayed')),
		completion_percentage INTEGER DEFAULT 0 CHECK (completion_percentage >= 0 AND completion_percentage <= 100),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS task_milestones (
		task_id INTEGER,
		milestone_id INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (task_id, milestone_id),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
		FOREIGN KEY (milestone_id) REFERENCES milestones(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT,
		category TEXT,
		tags TEXT,
		task_id INTEGER,
		milestone_id INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
		FOREIGN KEY (milestone_id) REFERENCES milestones(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS time_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER,
		description TEXT,
		hours REAL NOT NULL,
		log_date TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);
	`

	if _, err := s.db.Exec(tables); err != nil {
		return err
	}

	indexes := `
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);
	CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category);
	CREATE INDEX IF NOT EXISTS idx_notes_task_id ON notes(task_id);
	CREATE INDEX IF NOT EXISTS idx_notes_milestone_id ON notes(milestone_id);
	CREATE INDEX IF NOT EXISTS idx_time_logs_task_id ON time_logs(task_id);
	`

	_, err := s.db.Exec(indexes)
	return err
}

// seed inserts the default milestones and the bootstrap task. It only acts
// on an empty database, so reopening an existing store never duplicates
// rows. The stored completion_percentage is left at its default even for
// the completed milestone; the live figure comes from the linked tasks.
func (s *TaskStore) seed() error {
	var milestoneCount int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM milestones").Scan(&milestoneCount); err != nil {
		return err
	}
	if milestoneCount == 0 {
		seedMilestones := []struct {
			name, description, targetDate, status string
		}{
			{"Project Setup", "Initial project configuration and environment setup", "2024-01-15", "completed"},
			{"Core Development", "Main application development phase", "2024-03-01", "active"},
			{"Testing & QA", "Comprehensive testing and quality assurance", "2024-04-15", "active"},
			{"Deployment", "Production deployment and launch", "2024-05-01", "active"},
		}
		for _, m := range seedMilestones {
			if _, err := s.db.Exec(
				"INSERT INTO milestones (name, description, target_date, status) VALUES (?, ?, ?, ?)",
				m.name, m.description, m.targetDate, m.status,
			); err != nil {
				return err
			}
		}
	}

	var taskCount int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tasks WHERE title = ?", "Setup Development Environment").Scan(&taskCount); err != nil {
		return err
	}
	if taskCount > 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO tasks (title, description, status, priority, category, progress, completed_at) VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)",
		"Setup Development Environment", "Configure local development environment with all necessary tools", "completed", "high", "Setup", 100,
	)
	if err != nil {
		return err
	}
	taskID, err := result.LastInsertId()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO task_milestones (task_id, milestone_id) VALUES (?, 1)", taskID); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *TaskStore) Close() error {
	return s.db.Close()
}

// Task operations

// CreateTask inserts a task and, when milestoneID is given, links it in the
// same transaction so a failed link never leaves an orphaned task behind.
func (s *TaskStore) CreateTask(title string, description *string, priority string, category *string, dueDate *string, estimatedHours *float64, milestoneID *int64) (int64, error) {
	if priority == "" {
		priority = "medium"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO tasks (title, description, priority, category, due_date, estimated_hours) VALUES (?, ?, ?, ?, ?, ?)",
		title, description, priority, category, dueDate, estimatedHours,
	)
	if err != nil {
		return 0, err
	}
	taskID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if milestoneID != nil {
		if _, err := tx.Exec("INSERT INTO task_milestones (task_id, milestone_id) VALUES (?, ?)", taskID, *milestoneID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return taskID, nil
}

func (s *TaskStore) GetTask(id int64) (*Task, error) {
	row := s.db.QueryRow(taskSelect+" WHERE t.id = ?", id)
	return scanTask(row)
}

const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.category, t.assigned_to,
	       t.due_date, t.created_at, t.updated_at, t.completed_at, t.estimated_hours,
	       t.actual_hours, t.tags, t.dependencies, t.progress, m.name
	FROM tasks t
	LEFT JOIN task_milestones tm ON t.id = tm.task_id
	LEFT JOIN milestones m ON tm.milestone_id = m.id`

// ListTasks returns tasks newest-first, with the linked milestone name when
// present. All filters are optional and combine with AND.
func (s *TaskStore) ListTasks(status, priority, category *string, milestoneID *int64) ([]*Task, error) {
	query := taskSelect + " WHERE 1=1"
	args := []interface{}{}

	if status != nil {
		query += " AND t.status = ?"
		args = append(args, *status)
	}
	if priority != nil {
		query += " AND t.priority = ?"
		args = append(args, *priority)
	}
	if category != nil {
		query += " AND t.category = ?"
		args = append(args, *category)
	}
	if milestoneID != nil {
		query += " AND tm.milestone_id = ?"
		args = append(args, *milestoneID)
	}

	query += " ORDER BY t.created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies the non-nil fields. Setting status to "completed"
// stamps completed_at with the current time, every time, so re-completing a
// task refreshes the stamp. Returns false when no field was supplied or no
// row matched the id.
func (s *TaskStore) UpdateTask(id int64, title, description, status, priority *string, progress *int64, actualHours *float64) (bool, error) {
	updates := []string{}
	args := []interface{}{}

	if title != nil {
		updates = append(updates, "title = ?")
		args = append(args, *title)
	}
	if description != nil {
		updates = append(updates, "description = ?")
		args = append(args, *description)
	}
	if status != nil {
		updates = append(updates, "status = ?")
		args = append(args, *status)
	}
	if priority != nil {
		updates = append(updates, "priority = ?")
		args = append(args, *priority)
	}
	if progress != nil {
		updates = append(updates, "progress = ?")
		args = append(args, *progress)
	}
	if actualHours != nil {
		updates = append(updates, "actual_hours = ?")
		args = append(args, *actualHours)
	}

	if len(updates) == 0 {
		return false, nil
	}

	updates = append(updates, "updated_at = CURRENT_TIMESTAMP")
	if status != nil && *status == "completed" {
		updates = append(updates, "completed_at = CURRENT_TIMESTAMP")
	}
	args = append(args, id)

	query := "UPDATE tasks SET " + updates[0]
	for i := 1; i < len(updates); i++ {
		query += ", " + updates[i]
	}
	query += " WHERE id = ?"

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Milestone operations

func (s *TaskStore) CreateMilestone(name string, description, targetDate *string) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO milestones (name, description, target_date) VALUES (?, ?, ?)",
		name, description, targetDate,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListMilestones returns milestones by target date, each with the live task
// completion counts alongside the stored completion_percentage.
func (s *TaskStore) ListMilestones(status *string) ([]*Milestone, error) {
	query := "SELECT id, name, description, target_date, status, completion_percentage, created_at, updated_at FROM milestones WHERE 1=1"
	args := []interface{}{}

	if status != nil {
		query += " AND status = ?"
		args = append(args, *status)
	}

	query += " ORDER BY target_date ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []*Milestone
	for rows.Next() {
		var m Milestone
		var description, targetDate sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &description, &targetDate, &m.Status, &m.CompletionPercentage, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		if description.Valid {
			m.Description = &description.String
		}
		if targetDate.Valid {
			m.TargetDate = &targetDate.String
		}
		milestones = append(milestones, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// One aggregate query per milestone; fine at this scale.
	for _, m := range milestones {
		counts, err := s.milestoneTaskCounts(m.ID)
		if err != nil {
			return nil, err
		}
		m.TaskCounts = counts
	}
	return milestones, nil
}

func (s *TaskStore) milestoneTaskCounts(milestoneID int64) (*MilestoneTaskCount, error) {
	var counts MilestoneTaskCount
	err := s.db.QueryRow(`
		SELECT COUNT(t.id),
		       COUNT(CASE WHEN t.status = 'completed' THEN 1 END)
		FROM task_milestones tm
		JOIN tasks t ON tm.task_id = t.id
		WHERE tm.milestone_id = ?`, milestoneID,
	).Scan(&counts.TotalTasks, &counts.CompletedTasks)
	if err != nil {
		return nil, err
	}
	if counts.TotalTasks > 0 {
		counts.CompletionPercentage = round2(float64(counts.CompletedTasks) * 100 / float64(counts.TotalTasks))
	}
	return &counts, nil
}

// Note and time-log operations

// AddNote records a note, optionally attached to a task, a milestone, both,
// or neither.
func (s *TaskStore) AddNote(title, content string, category *string, taskID, milestoneID *int64) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO notes (title, content, category, task_id, milestone_id) VALUES (?, ?, ?, ?, ?)",
		title, content, category, taskID, milestoneID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// LogTime records a work entry and folds the hours into the task's
// actual_hours in one transaction.
func (s *TaskStore) LogTime(taskID int64, hours float64, description *string, logDate string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO time_logs (task_id, description, hours, log_date) VALUES (?, ?, ?, ?)",
		taskID, description, hours, logDate,
	)
	if err != nil {
		return 0, err
	}
	logID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		"UPDATE tasks SET actual_hours = COALESCE(actual_hours, 0) + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		hours, taskID,
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return logID, nil
}

// ProjectStatus assembles the project dashboard: task counts by status,
// per-milestone progress computed live from linked tasks, the five most
// recently touched tasks, and logged-time totals.
func (s *TaskStore) ProjectStatus() (*ProjectStatus, error) {
	status := &ProjectStatus{GeneratedAt: time.Now().UTC()}

	rows, err := s.db.Query("SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		status.TaskStatistics = append(status.TaskStatistics, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	progress, err := s.db.Query(`
		SELECT m.name, m.status, m.target_date,
		       COUNT(t.id),
		       COUNT(CASE WHEN t.status = 'completed' THEN 1 END)
		FROM milestones m
		LEFT JOIN task_milestones tm ON m.id = tm.milestone_id
		LEFT JOIN tasks t ON tm.task_id = t.id
		GROUP BY m.id, m.name, m.status, m.target_date
		ORDER BY m.target_date ASC`)
	if err != nil {
		return nil, err
	}
	defer progress.Close()
	for progress.Next() {
		var mp MilestoneProgress
		var targetDate sql.NullString
		if err := progress.Scan(&mp.Name, &mp.Status, &targetDate, &mp.TotalTasks, &mp.CompletedTasks); err != nil {
			return nil, err
		}
		if targetDate.Valid {
			mp.TargetDate = &targetDate.String
		}
		if mp.TotalTasks > 0 {
			mp.CompletionPercentage = round2(float64(mp.CompletedTasks) * 100 / float64(mp.TotalTasks))
		}
		status.MilestoneProgress = append(status.MilestoneProgress, mp)
	}
	if err := progress.Err(); err != nil {
		return nil, err
	}

	recent, err := s.db.Query("SELECT title, status, updated_at FROM tasks ORDER BY updated_at DESC LIMIT 5")
	if err != nil {
		return nil, err
	}
	defer recent.Close()
	for recent.Next() {
		var rt RecentTask
		if err := recent.Scan(&rt.Title, &rt.Status, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		status.RecentActivity = append(status.RecentActivity, rt)
	}
	if err := recent.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow("SELECT COALESCE(SUM(hours), 0), COUNT(DISTINCT task_id), COUNT(*) FROM time_logs").Scan(
		&status.TimeTracking.TotalHours, &status.TimeTracking.TasksWithTime, &status.TimeTracking.TotalEntries,
	); err != nil {
		return nil, err
	}

	return status, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var description, category, assignedTo, dueDate, tags, dependencies, milestoneName sql.NullString
	var estimatedHours, actualHours sql.NullFloat64
	var completedAt sql.NullTime

	err := row.Scan(&t.ID, &t.Title, &description, &t.Status, &t.Priority, &category, &assignedTo,
		&dueDate, &t.CreatedAt, &t.UpdatedAt, &completedAt, &estimatedHours,
		&actualHours, &tags, &dependencies, &t.Progress, &milestoneName)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
	}
	if category.Valid {
		t.Category = &category.String
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if tags.Valid {
		t.Tags = &tags.String
	}
	if dependencies.Valid {
		t.Dependencies = &dependencies.String
	}
	if milestoneName.Valid {
		t.MilestoneName = &milestoneName.String
	}
	if estimatedHours.Valid {
		t.EstimatedHours = &estimatedHours.Float64
	}
	if actualHours.Valid {
		t.ActualHours = &actualHours.Float64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
