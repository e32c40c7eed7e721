package vaultx

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Defaults for the profile completion form
const (
	DefaultAccountType = "SAVINGS"
	DefaultCurrency    = "USD"
)

// ProfileForm is the profile completion form shown after signup verification
type ProfileForm struct {
	Name           string
	Phone          string
	Address        string
	DateOfBirth    string // collected but not sent
	AccountType    string
	InitialBalance string
	Currency       string
}

// ProfileUpdate is the body of the update-profile call
type ProfileUpdate struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// AccountRequest opens the first account
type AccountRequest struct {
	Type     string  `json:"type"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// Account is the server's view of an opened account
type Account struct {
	ID            int64   `json:"id,omitempty"`
	AccountNumber string  `json:"accountNumber,omitempty"`
	Type          string  `json:"type"`
	Balance       float64 `json:"balance"`
	Currency      string  `json:"currency"`
}

// ProfileAPI is the authenticated part of the API used during onboarding.
// Implementations attach the stored token themselves.
type ProfileAPI interface {
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*UserProfile, error)
	CreateAccount(ctx context.Context, req AccountRequest) (*Account, error)
}

// Onboarding completes the second phase of signup: profile details and the
// first account. It requires the token stored by signup verification.
type Onboarding struct {
	api      ProfileAPI
	sessions SessionStore
	logger   *slog.Logger
}

// NewOnboarding creates an Onboarding step
func NewOnboarding(api ProfileAPI, sessions SessionStore, logger *slog.Logger) *Onboarding {
	if logger == nil {
		logger = slog.Default()
	}
	return &Onboarding{api: api, sessions: sessions, logger: logger}
}

// CompleteProfile sends the profile, caches the returned user next to the token
// and opens the first account. On success the caller routes to the dashboard.
func (o *Onboarding) CompleteProfile(ctx context.Context, form ProfileForm) (*Session, *Account, error) {
	session, err := o.sessions.Load()
	if err != nil {
		return nil, nil, storageError(err, titleOnboard)
	}
	if session == nil {
		return nil, nil, NewValidationError(titleOnboard, "authentication required", "token")
	}

	form = normalizeProfileForm(form)
	if form.Name == "" || form.Phone == "" || form.Address == "" || form.InitialBalance == "" {
		return nil, nil, NewValidationError(titleOnboard, "all fields are required", firstMissing(form))
	}
	balance, err := strconv.ParseFloat(form.InitialBalance, 64)
	if err != nil {
		return nil, nil, NewValidationError(titleOnboard, "initial balance must be a number", "initialBalance")
	}

	user, err := o.api.UpdateProfile(ctx, ProfileUpdate{
		Name:    form.Name,
		Phone:   form.Phone,
		Address: form.Address,
	})
	if err != nil {
		return nil, nil, classify(err, titleOnboard, fallbackOnboard)
	}

	session.User = user
	if err := o.sessions.Save(session); err != nil {
		return nil, nil, storageError(err, titleOnboard)
	}

	account, err := o.api.CreateAccount(ctx, AccountRequest{
		Type:     form.AccountType,
		Balance:  balance,
		Currency: form.Currency,
	})
	if err != nil {
		return session, nil, classify(err, titleOnboard, fallbackOnboard)
	}

	o.logger.Debug("profile completed", "accountType", form.AccountType, "currency", form.Currency)
	return session, account, nil
}

func normalizeProfileForm(form ProfileForm) ProfileForm {
	form.Name = strings.TrimSpace(form.Name)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Address = strings.TrimSpace(form.Address)
	form.InitialBalance = strings.TrimSpace(form.InitialBalance)
	if form.AccountType == "" {
		form.AccountType = DefaultAccountType
	}
	if form.Currency == "" {
		form.Currency = DefaultCurrency
	}
	return form
}

func firstMissing(form ProfileForm) string {
	switch {
	case form.Name == "":
		return "name"
	case form.Phone == "":
		return "phone"
	case form.Address == "":
		return "address"
	}
	return "initialBalance"
}
