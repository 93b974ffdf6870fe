package services

import (
	"context"
	"errors"
	"testing"

	"budgetbook/internal/core"
	"budgetbook/internal/memstore"
)

type recordingMail struct {
	sent []string
	err  error
}

func (m *recordingMail) PublishTempPasswordMail(_ context.Context, email, tempPassword string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email+":"+tempPassword)
	return nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	mail := &recordingMail{}
	svc := NewUserService(memstore.New(), mail)

	user, tempPassword, err := svc.Register(ctx, "New@Example.com ")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}
	if !user.IsTemp {
		t.Error("new user should be in the temp state")
	}
	if len(tempPassword) != 8 {
		t.Errorf("temp password length = %d, want 8", len(tempPassword))
	}
	if len(mail.sent) != 1 {
		t.Fatalf("mail published %d times, want 1", len(mail.sent))
	}

	t.Run("duplicate email", func(t *testing.T) {
		if _, _, err := svc.Register(ctx, "new@example.com"); !errors.Is(err, ErrEmailTaken) {
			t.Errorf("got %v, want ErrEmailTaken", err)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		if _, _, err := svc.Register(ctx, "not-an-email"); !errors.Is(err, core.ErrInvalidEmail) {
			t.Errorf("got %v, want ErrInvalidEmail", err)
		}
	})
}

func TestRegister_MailFailureDoesNotFailSignup(t *testing.T) {
	svc := NewUserService(memstore.New(), &recordingMail{err: errors.New("broker down")})

	if _, _, err := svc.Register(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("Register should succeed despite mail failure: %v", err)
	}
}

func TestTempPasswordFlow(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memstore.New(), nil)

	_, tempPassword, err := svc.Register(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("login blocked while temp", func(t *testing.T) {
		if _, err := svc.Login(ctx, "user@example.com", tempPassword); !errors.Is(err, ErrTempPasswordSet) {
			t.Errorf("got %v, want ErrTempPasswordSet", err)
		}
	})

	t.Run("wrong temp password rejected", func(t *testing.T) {
		if _, err := svc.VerifyTempPassword(ctx, "user@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("got %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("verify then set permanent", func(t *testing.T) {
		if _, err := svc.VerifyTempPassword(ctx, "user@example.com", tempPassword); err != nil {
			t.Fatalf("VerifyTempPassword: %v", err)
		}
		if err := svc.SetPermanentPassword(ctx, "user@example.com", tempPassword, "s3cret-password"); err != nil {
			t.Fatalf("SetPermanentPassword: %v", err)
		}
	})

	t.Run("login works after setup", func(t *testing.T) {
		user, err := svc.Login(ctx, "user@example.com", "s3cret-password")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if user.IsTemp {
			t.Error("user should no longer be temp")
		}
	})

	t.Run("transition is one way", func(t *testing.T) {
		if _, err := svc.VerifyTempPassword(ctx, "user@example.com", tempPassword); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("temp credential should be dead after setup, got %v", err)
		}
		if err := svc.SetPermanentPassword(ctx, "user@example.com", tempPassword, "another-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("second setup should fail, got %v", err)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		if _, err := svc.Login(ctx, "user@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("got %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestSetPermanentPassword_TooShort(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memstore.New(), nil)

	_, tempPassword, err := svc.Register(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.SetPermanentPassword(ctx, "user@example.com", tempPassword, "short"); err == nil {
		t.Error("short password should be rejected")
	}
}

func TestFindOrCreateGoogleUser(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(memstore.New(), nil)

	first, err := svc.FindOrCreateGoogleUser(ctx, "G.User@example.com")
	if err != nil {
		t.Fatalf("FindOrCreateGoogleUser: %v", err)
	}
	if first.Provider != core.ProviderGoogle {
		t.Errorf("provider = %q, want GOOGLE", first.Provider)
	}
	if first.IsTemp {
		t.Error("google users never hold temp passwords")
	}

	second, err := svc.FindOrCreateGoogleUser(ctx, "g.user@example.com")
	if err != nil {
		t.Fatalf("second sign-in: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second sign-in created a new user: %d vs %d", second.ID, first.ID)
	}
}
