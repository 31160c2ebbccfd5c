package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/repository"
)

func newMockRoleRepository(mock pgxmock.PgxPoolIface) *RoleRepository {
	return &RoleRepository{
		exec:    mock,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func TestRoleRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := newMockRoleRepository(mock)

	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
		AddRow("role-1", "MANAGER", "Management access", now, now).
		AddRow("role-2", "USER", nil, now, now)

	mock.ExpectQuery(`SELECT .*FROM auth\.roles r JOIN auth\.user_roles ur`).
		WithArgs("user-1").
		WillReturnRows(rows)

	roles, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected two roles, got %d", len(roles))
	}
	if roles[0].Name != "MANAGER" || roles[1].Name != "USER" {
		t.Fatalf("unexpected role order: %+v", roles)
	}
	if roles[0].Description == nil || *roles[0].Description != "Management access" {
		t.Fatalf("expected description pointer populated")
	}
	if roles[1].Description != nil {
		t.Fatalf("expected nil description, got %v", *roles[1].Description)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_AssignToUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := newMockRoleRepository(mock)

	assignedAt := time.Now().UTC()
	actor := "admin-1"
	assignment := domain.UserRole{
		UserID:     "user-1",
		RoleID:     "role-1",
		AssignedAt: assignedAt,
		AssignedBy: &actor,
	}

	mock.ExpectExec(`INSERT INTO auth\.user_roles`).
		WithArgs("user-1", "role-1", assignedAt, actor).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := repo.AssignToUser(context.Background(), assignment)
	if err != nil {
		t.Fatalf("AssignToUser returned error: %v", err)
	}
	if !inserted {
		t.Fatal("expected assignment to insert a row")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_AssignToUser_AlreadyHeld(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := newMockRoleRepository(mock)

	assignedAt := time.Now().UTC()
	assignment := domain.UserRole{
		UserID:     "user-1",
		RoleID:     "role-1",
		AssignedAt: assignedAt,
	}

	mock.ExpectExec(`INSERT INTO auth\.user_roles`).
		WithArgs("user-1", "role-1", assignedAt, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := repo.AssignToUser(context.Background(), assignment)
	if err != nil {
		t.Fatalf("AssignToUser returned error: %v", err)
	}
	if inserted {
		t.Fatal("re-assigning a held role must not insert")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_RemoveFromUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := newMockRoleRepository(mock)

	mock.ExpectExec(`DELETE FROM auth\.user_roles`).
		WithArgs("user-1", "role-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	removed, err := repo.RemoveFromUser(context.Background(), "user-1", "role-1")
	if err != nil {
		t.Fatalf("RemoveFromUser returned error: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to delete a row")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleRepository_Delete_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := newMockRoleRepository(mock)

	mock.ExpectExec(`DELETE FROM auth\.roles`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
