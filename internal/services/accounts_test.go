package services

import (
	"context"
	"testing"

	"github.com/yournote/go-diary-backend/internal/domain"
)

func TestRegisterAccount_WithToken(t *testing.T) {
	db := newServiceDB(t)
	fake := &fakeUpstream{payload: basePayload(100)}
	svc := newSyncService(db, fake)

	acc, err := svc.RegisterAccount(context.Background(), "token abc", "", "")
	if err != nil {
		t.Fatalf("RegisterAccount: %v", err)
	}
	if acc.NiderijiUserID != 100 || acc.AuthToken != "token abc" || !acc.IsActive {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if fake.loginCalls != 0 {
		t.Fatalf("login must not run when a token is supplied")
	}
	if fake.syncTokens[0] != "token abc" {
		t.Fatalf("validation used token %q", fake.syncTokens[0])
	}
}

func TestRegisterAccount_WithCredentialsLogsIn(t *testing.T) {
	db := newServiceDB(t)
	fake := &fakeUpstream{payload: basePayload(100), loginToken: "token fresh"}
	svc := newSyncService(db, fake)

	acc, err := svc.RegisterAccount(context.Background(), "", "a@example.com", "pw")
	if err != nil {
		t.Fatalf("RegisterAccount: %v", err)
	}
	if fake.loginCalls != 1 {
		t.Fatalf("login calls = %d, want 1", fake.loginCalls)
	}
	if acc.AuthToken != "token fresh" || acc.Email != "a@example.com" {
		t.Fatalf("unexpected account: %+v", acc)
	}
}

func TestRegisterAccount_ExistingUpstreamUserIsUpdated(t *testing.T) {
	db := newServiceDB(t)
	old := seedAccount(t, db, 100, false)
	if err := db.Model(&domain.Account{}).Where("id = ?", old.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	fake := &fakeUpstream{payload: basePayload(100)}
	svc := newSyncService(db, fake)

	acc, err := svc.RegisterAccount(context.Background(), "token new", "a@example.com", "pw")
	if err != nil {
		t.Fatalf("RegisterAccount: %v", err)
	}
	if acc.ID != old.ID {
		t.Fatalf("expected update of row %d, got new row %d", old.ID, acc.ID)
	}
	if acc.AuthToken != "token new" || !acc.IsActive || acc.Email != "a@example.com" {
		t.Fatalf("unexpected account: %+v", acc)
	}

	var n int64
	if err := db.Model(&domain.Account{}).Count(&n).Error; err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if n != 1 {
		t.Fatalf("accounts = %d, want 1", n)
	}
}

func TestRegisterAccount_NoTokenNoCredentials(t *testing.T) {
	svc := newSyncService(newServiceDB(t), &fakeUpstream{payload: basePayload(100)})
	if _, err := svc.RegisterAccount(context.Background(), "", "", ""); err != ErrNoCredentials {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
}
