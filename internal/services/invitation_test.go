package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/collabspace/server/internal/models"
	"github.com/collabspace/server/pkg/response"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"sqlite message", errors.New("UNIQUE constraint failed: invitations.project_id"), true},
		{"mysql message", errors.New("Error 1062: Duplicate entry '10-2'"), true},
		{"postgres message", errors.New("duplicate key value violates unique constraint"), true},
		{"unrelated error", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.expected {
				t.Errorf("isUniqueViolation() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

// newTestDB opens a per-test in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Invitation{},
		&models.SystemLog{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

type invitationFixture struct {
	svc       *InvitationService
	projects  *ProjectService
	project   *models.Project
	owner     *models.User
	recipient *models.User
}

// newInvitationFixture seeds an owner, an outsider, and a project owned by
// the former.
func newInvitationFixture(t *testing.T, db *gorm.DB) *invitationFixture {
	t.Helper()

	owner := &models.User{Username: "alice", Email: "alice@example.com", IsActive: true}
	recipient := &models.User{Username: "bob", Email: "bob@example.com", IsActive: true}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	if err := db.Create(recipient).Error; err != nil {
		t.Fatalf("seed recipient: %v", err)
	}

	projects := NewProjectService(db)
	project, err := projects.Create(&CreateProjectRequest{Name: "workspace"}, owner.ID)
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	return &invitationFixture{
		svc:       NewInvitationService(db, nil),
		projects:  projects,
		project:   project,
		owner:     owner,
		recipient: recipient,
	}
}

func assertAppError(t *testing.T, err error, httpStatus int) {
	t.Helper()
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected an application error, got %v", err)
	}
	if appErr.HTTPStatus != httpStatus {
		t.Fatalf("HTTPStatus = %d, expected %d (%v)", appErr.HTTPStatus, httpStatus, err)
	}
}

func TestInvitationCreate(t *testing.T) {
	f := newInvitationFixture(t, newTestDB(t))

	inv, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inv.Status != models.InvitationPending {
		t.Errorf("Status = %q, expected pending", inv.Status)
	}
	if inv.ProjectID != f.project.ID || inv.RecipientID != f.recipient.ID {
		t.Errorf("unexpected invitation %+v", inv)
	}
}

func TestInvitationCreate_SelfInvitation(t *testing.T) {
	f := newInvitationFixture(t, newTestDB(t))

	_, err := f.svc.Create(f.project.ID, f.owner.ID, f.owner.ID)
	assertAppError(t, err, 400)
}

func TestInvitationCreate_SenderNotMember(t *testing.T) {
	db := newTestDB(t)
	f := newInvitationFixture(t, db)

	outsider := &models.User{Username: "mallory", Email: "mallory@example.com", IsActive: true}
	if err := db.Create(outsider).Error; err != nil {
		t.Fatalf("seed outsider: %v", err)
	}

	_, err := f.svc.Create(f.project.ID, outsider.ID, f.recipient.ID)
	assertAppError(t, err, 403)
}

func TestInvitationCreate_RecipientAlreadyMember(t *testing.T) {
	f := newInvitationFixture(t, newTestDB(t))

	if err := f.projects.AddMember(f.project.ID, f.recipient.ID); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	_, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	assertAppError(t, err, 409)
}

func TestInvitationCreate_DuplicatePending(t *testing.T) {
	db := newTestDB(t)
	f := newInvitationFixture(t, db)

	if _, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	_, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	assertAppError(t, err, 409)

	var pending int64
	db.Model(&models.Invitation{}).
		Where("project_id = ? AND recipient_id = ? AND status = ?", f.project.ID, f.recipient.ID, models.InvitationPending).
		Count(&pending)
	if pending != 1 {
		t.Errorf("pending invitations = %d, exactly one must survive", pending)
	}
}

func TestInvitationCreate_StoreFailurePropagates(t *testing.T) {
	db := newTestDB(t)
	f := newInvitationFixture(t, db)

	if err := db.Migrator().DropTable(&models.Invitation{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	if err == nil {
		t.Fatal("a failing pending-invitation lookup must not read as no rows")
	}
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		t.Errorf("storage failure misreported as an application error: %v", err)
	}
}

func TestInvitationAccept(t *testing.T) {
	f := newInvitationFixture(t, newTestDB(t))

	inv, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := f.svc.Accept(inv.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if result.Invitation.Status != models.InvitationAccepted {
		t.Errorf("Status = %q, expected accepted", result.Invitation.Status)
	}
	if result.Project == nil || result.Project.ID != f.project.ID {
		t.Errorf("accept must return the joined project, got %+v", result.Project)
	}

	member, err := f.projects.IsMember(f.project.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("IsMember() error = %v", err)
	}
	if !member {
		t.Error("recipient must be a member after accept")
	}
}

func TestInvitationAccept_TwiceFails(t *testing.T) {
	f := newInvitationFixture(t, newTestDB(t))

	inv, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.Accept(inv.ID, f.recipient.ID); err != nil {
		t.Fatalf("first Accept() error = %v", err)
	}

	_, err = f.svc.Accept(inv.ID, f.recipient.ID)
	assertAppError(t, err, 409)
}

func TestInvitationAccept_WrongUser(t *testing.T) {
	f := newInvitationFixture(t, newTestDB(t))

	inv, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = f.svc.Accept(inv.ID, f.owner.ID)
	assertAppError(t, err, 403)
}

func TestInvitationReject(t *testing.T) {
	f := newInvitationFixture(t, newTestDB(t))

	inv, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rejected, err := f.svc.Reject(inv.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.Status != models.InvitationRejected {
		t.Errorf("Status = %q, expected rejected", rejected.Status)
	}

	member, err := f.projects.IsMember(f.project.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("IsMember() error = %v", err)
	}
	if member {
		t.Error("reject must not change membership")
	}

	_, err = f.svc.Reject(inv.ID, f.recipient.ID)
	assertAppError(t, err, 409)
}

func TestInvitationAccept_AfterRejectFails(t *testing.T) {
	f := newInvitationFixture(t, newTestDB(t))

	inv, err := f.svc.Create(f.project.ID, f.owner.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.Reject(inv.ID, f.recipient.ID); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	_, err = f.svc.Accept(inv.ID, f.recipient.ID)
	assertAppError(t, err, 409)

	member, err := f.projects.IsMember(f.project.ID, f.recipient.ID)
	if err != nil {
		t.Fatalf("IsMember() error = %v", err)
	}
	if member {
		t.Error("a rejected invitation must never grant membership")
	}
}
