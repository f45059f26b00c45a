package application

import (
	"context"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

// SessionOps is the mutating surface of the session manager. Callers that
// only observe state should depend on StateReader instead.
type SessionOps interface {
	Login(ctx context.Context, params LoginParams) (domain.Account, error)
	CreateAccount(ctx context.Context, params CreateAccountParams) (domain.Account, error)
	InitSession(ctx context.Context, account domain.Account) error
	ResumeSession(ctx context.Context, account *domain.Account)
	SelectAccount(ctx context.Context, account domain.Account) error
	RefreshSession(ctx context.Context) (domain.Account, error)
	Logout(ctx context.Context, reason string)
	ClearCurrentAccount()
	RemoveAccount(account domain.Account) error
	Flush(ctx context.Context) error
}

type LoginParams struct {
	Service    string
	Identifier string
	Password   string
}

type CreateAccountParams struct {
	Service           string
	Email             string
	Password          string
	Handle            string
	InviteCode        string
	VerificationPhone string
	VerificationCode  string
}

func (p CreateAccountParams) protocol() ports.CreateAccountParams {
	return ports.CreateAccountParams{
		Email:             p.Email,
		Password:          p.Password,
		Handle:            p.Handle,
		InviteCode:        p.InviteCode,
		VerificationPhone: p.VerificationPhone,
		VerificationCode:  p.VerificationCode,
	}
}
