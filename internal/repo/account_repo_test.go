package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/yournote/go-diary-backend/internal/domain"
)

func TestAccountCRUD(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	a := &domain.Account{NiderijiUserID: 100, AuthToken: "token x", Email: "a@example.com"}
	if err := CreateAccount(ctx, db, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := GetAccount(ctx, db, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.NiderijiUserID != 100 || !got.IsActive {
		t.Fatalf("got %+v", got)
	}

	byUp, err := GetAccountByUpstreamID(ctx, db, 100)
	if err != nil || byUp.ID != a.ID {
		t.Fatalf("by upstream id: %v %v", byUp, err)
	}

	if _, err := GetAccount(ctx, db, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: %v", err)
	}
}

func TestCreateAccount_DuplicateUpstreamID(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	seedAccount(t, db, 100, true)
	dup := &domain.Account{NiderijiUserID: 100, AuthToken: "token y"}
	if err := CreateAccount(ctx, db, dup); err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestListAccounts_ActiveOnly(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	seedAccount(t, db, 100, true)
	seedAccount(t, db, 200, false)

	all, err := ListAccounts(ctx, db, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("all: %v %v", all, err)
	}
	active, err := ListAccounts(ctx, db, true)
	if err != nil || len(active) != 1 || active[0].NiderijiUserID != 100 {
		t.Fatalf("active: %v %v", active, err)
	}
}

func TestAccountUpdates(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	a := seedAccount(t, db, 100, true)

	if err := UpdateAccountToken(ctx, db, a.ID, "token fresh"); err != nil {
		t.Fatalf("token: %v", err)
	}
	if err := UpdateAccountCredentials(ctx, db, a.ID, "new@example.com", "pw"); err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if err := SetAccountActive(ctx, db, a.ID, false); err != nil {
		t.Fatalf("active: %v", err)
	}

	got, err := GetAccount(ctx, db, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AuthToken != "token fresh" || got.Email != "new@example.com" || got.LoginPassword != "pw" || got.IsActive {
		t.Fatalf("got %+v", got)
	}
}

func TestAccountUpdates_MissingRow(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if err := UpdateAccountToken(ctx, db, 9999, "t"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("token: %v", err)
	}
	if err := UpdateAccountCredentials(ctx, db, 9999, "e", "p"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("credentials: %v", err)
	}
	if err := SetAccountActive(ctx, db, 9999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("active: %v", err)
	}
}
