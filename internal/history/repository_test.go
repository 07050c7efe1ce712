package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-garage/internal/garage"
	"github.com/nerrad567/gray-logic-garage/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-garage/migrations"
)

func setupRepository(t *testing.T) (*Repository, *database.DB) {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewRepository(db.DB, nil), db
}

func change(characteristic garage.Characteristic, value int, source garage.Source, at time.Time) garage.StateChange {
	return garage.StateChange{
		AccessoryID:    "garage",
		Characteristic: characteristic,
		Value:          value,
		Source:         source,
		Timestamp:      at,
		State: garage.Snapshot{
			CurrentDoorState: garage.DoorClosed,
			TargetDoorState:  garage.DoorState(value),
			AutoLockPending:  value == 0,
		},
	}
}

func TestRecordAndListEvents(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	repo.OnStateChange(change(garage.CharCurrentDoorState, 1, garage.SourceInit, base))
	repo.OnStateChange(change(garage.CharTargetDoorState, 0, garage.SourcePush, base.Add(time.Second)))
	repo.OnStateChange(change(garage.CharTargetDoorState, 1, garage.SourceAutoLock, base.Add(2*time.Second)))

	events, err := repo.ListEvents(ctx, Filter{AccessoryID: "garage"})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events length = %d, want 3", len(events))
	}

	newest := events[0]
	if newest.Source != "autolock" || newest.Value != 1 || newest.Characteristic != "targetDoorState" {
		t.Errorf("newest event = %+v", newest)
	}
	if events[2].Source != "init" {
		t.Errorf("oldest event source = %q, want init", events[2].Source)
	}
	if !events[1].Snapshot.AutoLockPending || events[1].Snapshot.TargetDoorState != garage.DoorOpen {
		t.Errorf("snapshot not round-tripped: %+v", events[1].Snapshot)
	}
	if events[1].CreatedAt.Sub(base.Add(time.Second)).Abs() > time.Millisecond {
		t.Errorf("CreatedAt = %v, want %v", events[1].CreatedAt, base.Add(time.Second))
	}
}

func TestListEvents_Filter(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		repo.OnStateChange(change(garage.CharTargetDoorState, i%2, garage.SourcePush, now.Add(time.Duration(i)*time.Millisecond)))
	}
	repo.OnStateChange(change(garage.CharObstructionDetected, 1, garage.SourcePush, now))

	other := change(garage.CharTargetDoorState, 0, garage.SourcePush, now)
	other.AccessoryID = "side-gate"
	repo.OnStateChange(other)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all for accessory", Filter{AccessoryID: "garage"}, 6},
		{"by characteristic", Filter{AccessoryID: "garage", Characteristic: "targetDoorState"}, 5},
		{"limit", Filter{AccessoryID: "garage", Limit: 2}, 2},
		{"other accessory", Filter{AccessoryID: "side-gate"}, 1},
		{"unknown accessory", Filter{AccessoryID: "nope"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.ListEvents(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListEvents() error = %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("events length = %d, want %d", len(events), tt.want)
			}
		})
	}
}

func TestRecordAndListCommands(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	now := time.Now()

	repo.OnCommand(garage.CommandResult{
		ID:          "cmd-aaaa0001",
		AccessoryID: "garage",
		Target:      garage.DoorOpen,
		URL:         "http://door.local/setTargetDoorState/0",
		Method:      "GET",
		Success:     true,
		StatusCode:  200,
		Duration:    120 * time.Millisecond,
		Source:      garage.SourceCommand,
		Timestamp:   now.Add(-time.Second),
	})
	repo.OnCommand(garage.CommandResult{
		ID:          "cmd-aaaa0002",
		AccessoryID: "garage",
		Target:      garage.DoorClosed,
		URL:         "http://door.local/setTargetDoorState/1",
		Method:      "GET",
		Error:       "connection refused",
		Source:      garage.SourceAutoLock,
		Timestamp:   now,
	})

	commands, err := repo.ListCommands(ctx, Filter{AccessoryID: "garage"})
	if err != nil {
		t.Fatalf("ListCommands() error = %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("commands length = %d, want 2", len(commands))
	}

	failed, ok := commands[0], commands[1]
	if failed.CommandID != "cmd-aaaa0002" || failed.ID == "" || failed.Success || failed.Error != "connection refused" || failed.Source != "autolock" {
		t.Errorf("failed command = %+v", failed)
	}
	if !ok.Success || ok.StatusCode != 200 || ok.DurationMS != 120 || ok.Target != 0 {
		t.Errorf("successful command = %+v", ok)
	}
}

func TestRecord_RequiresAccessory(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	if err := repo.RecordEvent(ctx, garage.StateChange{}); !errors.Is(err, ErrAccessoryRequired) {
		t.Errorf("RecordEvent() error = %v, want ErrAccessoryRequired", err)
	}
	if err := repo.RecordCommand(ctx, garage.CommandResult{}); !errors.Is(err, ErrAccessoryRequired) {
		t.Errorf("RecordCommand() error = %v, want ErrAccessoryRequired", err)
	}
	if _, err := repo.ListEvents(ctx, Filter{}); !errors.Is(err, ErrAccessoryRequired) {
		t.Errorf("ListEvents() error = %v, want ErrAccessoryRequired", err)
	}
	if _, err := repo.ListCommands(ctx, Filter{}); !errors.Is(err, ErrAccessoryRequired) {
		t.Errorf("ListCommands() error = %v, want ErrAccessoryRequired", err)
	}
}

func TestRecordCommand_GeneratesID(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()

	if err := repo.RecordCommand(ctx, garage.CommandResult{AccessoryID: "garage", Method: "GET"}); err != nil {
		t.Fatalf("RecordCommand() error = %v", err)
	}
	commands, err := repo.ListCommands(ctx, Filter{AccessoryID: "garage"})
	if err != nil {
		t.Fatalf("ListCommands() error = %v", err)
	}
	if len(commands) != 1 || commands[0].ID == "" {
		t.Errorf("commands = %+v, want one row with generated id", commands)
	}
}

func TestRecordCommand_DuplicateCommandIDKeepsBothRows(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	now := time.Now()

	for i, target := range []garage.DoorState{garage.DoorOpen, garage.DoorClosed} {
		res := garage.CommandResult{
			ID:          "cmd-0000beef",
			AccessoryID: "garage",
			Target:      target,
			Method:      "GET",
			Source:      garage.SourceCommand,
			Timestamp:   now.Add(time.Duration(i) * time.Second),
		}
		if err := repo.RecordCommand(ctx, res); err != nil {
			t.Fatalf("RecordCommand(%d) error = %v", i, err)
		}
	}

	commands, err := repo.ListCommands(ctx, Filter{AccessoryID: "garage"})
	if err != nil {
		t.Fatalf("ListCommands() error = %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("commands length = %d, want 2", len(commands))
	}
	if commands[0].ID == commands[1].ID {
		t.Errorf("row ids collide: %q", commands[0].ID)
	}
	for _, c := range commands {
		if c.CommandID != "cmd-0000beef" {
			t.Errorf("CommandID = %q, want cmd-0000beef", c.CommandID)
		}
	}
	if commands[0].Target != int(garage.DoorClosed) || commands[1].Target != int(garage.DoorOpen) {
		t.Errorf("targets = %d, %d; want newest first", commands[0].Target, commands[1].Target)
	}
}

func TestPrune(t *testing.T) {
	repo, _ := setupRepository(t)
	ctx := context.Background()
	now := time.Now()

	repo.OnStateChange(change(garage.CharTargetDoorState, 0, garage.SourcePush, now.Add(-48*time.Hour)))
	repo.OnStateChange(change(garage.CharTargetDoorState, 1, garage.SourcePush, now.Add(-time.Hour)))
	repo.OnCommand(garage.CommandResult{ID: "old", AccessoryID: "garage", Timestamp: now.Add(-72 * time.Hour)})
	repo.OnCommand(garage.CommandResult{ID: "new", AccessoryID: "garage", Timestamp: now})

	deleted, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted = %d, want 2", deleted)
	}

	events, _ := repo.ListEvents(ctx, Filter{AccessoryID: "garage"})     //nolint:errcheck // Checked via length
	commands, _ := repo.ListCommands(ctx, Filter{AccessoryID: "garage"}) //nolint:errcheck // Checked via length
	if len(events) != 1 || len(commands) != 1 || commands[0].CommandID != "new" {
		t.Errorf("after prune events = %d, commands = %+v", len(events), commands)
	}

	if _, err := repo.Prune(ctx, 0); !errors.Is(err, ErrInvalidRetention) {
		t.Errorf("Prune(0) error = %v, want ErrInvalidRetention", err)
	}
}

func TestFilterLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, defaultLimit},
		{-5, defaultLimit},
		{10, 10},
		{maxLimit, maxLimit},
		{maxLimit + 1, maxLimit},
	}
	for _, tt := range tests {
		if got := (Filter{Limit: tt.limit}).limit(); got != tt.want {
			t.Errorf("limit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"2026-03-01T12:00:00.000000000Z", false},
		{"2026-03-01T12:00:00Z", false},
		{"2026-03-01 12:00:00", false},
		{"", true},
		{"yesterday", true},
	}
	for _, tt := range tests {
		_, err := parseTimestamp(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimestamp(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestObserverAttachedToAccessory(t *testing.T) {
	repo, _ := setupRepository(t)

	acc := garage.NewAccessory(garage.Options{Config: garage.Config{Name: "Garage", APIRoute: "http://door.local"}})
	defer acc.Close() //nolint:errcheck // Test cleanup
	acc.AddObserver(repo)
	acc.AddCommandObserver(repo)

	acc.Services()
	acc.Dispatch("currentDoorState", "2")

	events, err := repo.ListEvents(context.Background(), Filter{AccessoryID: acc.ID()})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("events length = %d, want 4 (3 init + 1 push)", len(events))
	}
}
