package vaultx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Anish-ai/vaultx"
	"github.com/Anish-ai/vaultx/stores"
)

type fakeProfileAPI struct {
	updates  []vaultx.ProfileUpdate
	accounts []vaultx.AccountRequest

	updateErr  error
	accountErr error
}

func (f *fakeProfileAPI) UpdateProfile(ctx context.Context, update vaultx.ProfileUpdate) (*vaultx.UserProfile, error) {
	f.updates = append(f.updates, update)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &vaultx.UserProfile{ID: 1, Email: "a@b.com", Name: update.Name, Phone: update.Phone, Address: update.Address}, nil
}

func (f *fakeProfileAPI) CreateAccount(ctx context.Context, req vaultx.AccountRequest) (*vaultx.Account, error) {
	f.accounts = append(f.accounts, req)
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return &vaultx.Account{ID: 1, Type: req.Type, Balance: req.Balance, Currency: req.Currency}, nil
}

func validForm() vaultx.ProfileForm {
	return vaultx.ProfileForm{
		Name:           "Ada Lovelace",
		Phone:          "+44 20 7946 0000",
		Address:        "12 St James's Square",
		DateOfBirth:    "1815-12-10",
		InitialBalance: "250.50",
	}
}

func loggedIn(t *testing.T) (vaultx.SessionStore, *stores.MemoryStore) {
	t.Helper()
	kv := stores.NewMemoryStore()
	sessions := vaultx.NewSessionStore(kv)
	if err := sessions.Save(&vaultx.Session{Token: "tok"}); err != nil {
		t.Fatal(err)
	}
	return sessions, kv
}

func TestCompleteProfile_Success(t *testing.T) {
	api := &fakeProfileAPI{}
	sessions, _ := loggedIn(t)
	o := vaultx.NewOnboarding(api, sessions, nil)

	session, account, err := o.CompleteProfile(context.Background(), validForm())
	if err != nil {
		t.Fatalf("CompleteProfile() error = %v", err)
	}

	if len(api.updates) != 1 || api.updates[0].Name != "Ada Lovelace" {
		t.Errorf("updates = %+v", api.updates)
	}
	if len(api.accounts) != 1 {
		t.Fatalf("accounts = %+v", api.accounts)
	}
	req := api.accounts[0]
	if req.Type != vaultx.DefaultAccountType || req.Currency != vaultx.DefaultCurrency || req.Balance != 250.5 {
		t.Errorf("account request = %+v", req)
	}
	if account == nil || account.Balance != 250.5 {
		t.Errorf("account = %+v", account)
	}

	stored, _ := sessions.Load()
	if stored.User == nil || stored.User.Name != "Ada Lovelace" {
		t.Errorf("stored user = %+v", stored.User)
	}
	if session.Token != "tok" {
		t.Errorf("session token = %q", session.Token)
	}
}

func TestCompleteProfile_RequiresSession(t *testing.T) {
	api := &fakeProfileAPI{}
	o := vaultx.NewOnboarding(api, vaultx.NewSessionStore(stores.NewMemoryStore()), nil)

	_, _, err := o.CompleteProfile(context.Background(), validForm())
	var herr *vaultx.HandshakeError
	if !errors.As(err, &herr) || herr.Message != "authentication required" {
		t.Fatalf("got %v", err)
	}
	if len(api.updates) != 0 {
		t.Error("API called without a session")
	}
}

func TestCompleteProfile_Validation(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(*vaultx.ProfileForm)
		wantField string
		wantMsg   string
	}{
		{"missing name", func(f *vaultx.ProfileForm) { f.Name = " " }, "name", "all fields are required"},
		{"missing phone", func(f *vaultx.ProfileForm) { f.Phone = "" }, "phone", "all fields are required"},
		{"missing address", func(f *vaultx.ProfileForm) { f.Address = "" }, "address", "all fields are required"},
		{"missing balance", func(f *vaultx.ProfileForm) { f.InitialBalance = "" }, "initialBalance", "all fields are required"},
		{"balance not a number", func(f *vaultx.ProfileForm) { f.InitialBalance = "lots" }, "initialBalance", "initial balance must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeProfileAPI{}
			sessions, _ := loggedIn(t)
			o := vaultx.NewOnboarding(api, sessions, nil)

			form := validForm()
			tt.edit(&form)
			_, _, err := o.CompleteProfile(context.Background(), form)

			var herr *vaultx.HandshakeError
			if !errors.As(err, &herr) {
				t.Fatalf("got %v", err)
			}
			if herr.Kind != vaultx.KindValidation || herr.Field != tt.wantField || herr.Message != tt.wantMsg {
				t.Errorf("got %+v", herr)
			}
			if len(api.updates) != 0 {
				t.Error("API called for an invalid form")
			}
		})
	}
}

func TestCompleteProfile_AccountFailure(t *testing.T) {
	api := &fakeProfileAPI{accountErr: &rejection{status: 400, message: "invalid currency"}}
	sessions, _ := loggedIn(t)
	o := vaultx.NewOnboarding(api, sessions, nil)

	form := validForm()
	form.Currency = "XX"
	session, account, err := o.CompleteProfile(context.Background(), form)

	var herr *vaultx.HandshakeError
	if !errors.As(err, &herr) {
		t.Fatalf("got %v", err)
	}
	if herr.Title != "profile or account creation failed" || herr.Message != "invalid currency" {
		t.Errorf("got %q", herr.Error())
	}
	if account != nil {
		t.Error("account returned on failure")
	}
	// the profile step already succeeded and stays cached
	if session == nil || session.User == nil {
		t.Error("profile update lost")
	}
}
