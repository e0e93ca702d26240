package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/labook/users-api/internal/core/domain"
	"github.com/labook/users-api/internal/core/ports"
)

const (
	msgSignupOK         = "Cadastro realizado com sucesso"
	msgLoginOK          = "Login realizado com sucesso"
	msgDeletedFmt       = "O usuário '%s', foi deletado com sucesso!"
	msgListInvalidToken = "token inválido"
	msgGetInvalidToken  = "Token inválido"
	msgDelInvalidToken  = "Token inválido."
	msgUserNotFound     = "Usuário não encontrado."
	msgDelUserNotFound  = "Usuário não localizado."
	msgEmailNotFound    = "'email' não encontrado"
	msgWrongCredentials = "'email' ou 'password' incorretos"
	msgWrongPassword    = "Senha inválida."
)

// UserService implements signup, login and the role-gated user operations.
type UserService struct {
	repo   ports.UserRepository
	ids    ports.IDGenerator
	hasher ports.PasswordHasher
	tokens ports.TokenManager
	audit  ports.AuditRecorder
	log    zerolog.Logger
}

// NewUserService wires the service. audit may be nil.
func NewUserService(
	repo ports.UserRepository,
	ids ports.IDGenerator,
	hasher ports.PasswordHasher,
	tokens ports.TokenManager,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		repo:   repo,
		ids:    ids,
		hasher: hasher,
		tokens: tokens,
		audit:  audit,
		log:    log,
	}
}

var _ ports.UserService = (*UserService)(nil)

// Signup creates a NORMAL account and returns a token for it.
func (s *UserService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthOutput, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	user := &domain.User{
		ID:           s.ids.Generate(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleNormal,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	token, err := s.tokens.CreateToken(domain.PayloadFor(user))
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.record(user.ID, domain.AuditSignup, domain.PayloadFor(user))
	s.log.Info().Str("user_id", user.ID).Msg("user signed up")

	return &ports.AuthOutput{Message: msgSignupOK, Token: token}, nil
}

// Login verifies credentials and issues a token from the stored record.
func (s *UserService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthOutput, error) {
	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NotFound(msgEmailNotFound)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Compare(in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: compare password: %w", err)
	}
	if !ok {
		s.log.Debug().Str("user_id", user.ID).Msg("login rejected: wrong password")
		return nil, domain.BadRequest(msgWrongCredentials)
	}

	payload := domain.PayloadFor(user)
	token, err := s.tokens.CreateToken(payload)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.record(user.ID, domain.AuditLogin, payload)
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")

	return &ports.AuthOutput{Message: msgLoginOK, Token: token}, nil
}

// ListUsers returns the users matching the query. ADMIN only.
func (s *UserService) ListUsers(ctx context.Context, in ports.ListUsersInput) ([]domain.UserView, error) {
	caller, err := s.tokens.GetPayload(in.Token)
	if err != nil {
		s.log.Debug().Err(err).Msg("list users: invalid token")
		return nil, domain.BadRequest(msgListInvalidToken)
	}

	rule := domain.Authorize(domain.OpListUsers, caller.Role, "")
	if !rule.Allowed {
		s.deny(domain.OpListUsers, caller, "")
		return nil, domain.BadRequest(rule.Denial)
	}

	users, err := s.repo.FindUsers(ctx, in.Query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	views := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views, nil
}

// GetUserByID returns one user. Any ADMIN or MASTER may read any user.
func (s *UserService) GetUserByID(ctx context.Context, in ports.GetUserInput) (*domain.UserView, error) {
	caller, err := s.tokens.GetPayload(in.Token)
	if err != nil {
		s.log.Debug().Err(err).Msg("get user: invalid token")
		return nil, domain.BadRequest(msgGetInvalidToken)
	}

	rule := domain.Authorize(domain.OpReadUser, caller.Role, "")
	if !rule.Allowed {
		s.deny(domain.OpReadUser, caller, in.ID)
		return nil, domain.BadRequest(rule.Denial)
	}

	view, err := s.repo.FindViewByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return view, nil
}

// DeleteUserByID removes a user when the caller's role permits it against
// the target's role, re-confirming the target's password where the rule
// requires it.
func (s *UserService) DeleteUserByID(ctx context.Context, in ports.DeleteUserInput) (*ports.MessageOutput, error) {
	caller, err := s.tokens.GetPayload(in.Token)
	if err != nil {
		s.log.Debug().Err(err).Msg("delete user: invalid token")
		return nil, domain.BadRequest(msgDelInvalidToken)
	}

	target, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NotFound(msgDelUserNotFound)
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}

	rule := domain.Authorize(domain.OpDeleteUser, caller.Role, target.Role)
	if rule.Allowed && rule.RequiresPassword && rule.PasswordFirst {
		if err := s.confirmPassword(caller, target, in.Password); err != nil {
			return nil, err
		}
	}
	if !rule.Permits(caller.ID, target.ID) {
		s.deny(domain.OpDeleteUser, caller, target.ID)
		return nil, domain.BadRequest(rule.Denial)
	}
	if rule.RequiresPassword && !rule.PasswordFirst {
		if err := s.confirmPassword(caller, target, in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.repo.DeleteByID(ctx, target.ID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NotFound(msgDelUserNotFound)
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}

	s.record(target.ID, domain.AuditDelete, *caller)
	s.log.Info().
		Str("user_id", target.ID).
		Str("caller_id", caller.ID).
		Str("caller_role", string(caller.Role)).
		Msg("user deleted")

	return &ports.MessageOutput{Message: fmt.Sprintf(msgDeletedFmt, target.Name)}, nil
}

// confirmPassword checks the target account's password. A nil password is
// compared as empty.
func (s *UserService) confirmPassword(caller *domain.TokenPayload, target *domain.User, password *string) error {
	plain := ""
	if password != nil {
		plain = *password
	}
	ok, err := s.hasher.Compare(plain, target.PasswordHash)
	if err != nil {
		return fmt.Errorf("delete user: compare password: %w", err)
	}
	if !ok {
		s.log.Debug().Str("caller_id", caller.ID).Str("target_id", target.ID).Msg("delete rejected: wrong password")
		return domain.BadRequest(msgWrongPassword)
	}
	return nil
}

func (s *UserService) deny(op domain.Operation, caller *domain.TokenPayload, targetID string) {
	s.log.Debug().
		Str("operation", string(op)).
		Str("caller_id", caller.ID).
		Str("caller_role", string(caller.Role)).
		Str("target_id", targetID).
		Msg("authorization denied")
}

func (s *UserService) record(userID string, kind domain.AuditKind, actor domain.TokenPayload) {
	if s.audit == nil {
		return
	}
	s.audit.Record(domain.AuditEvent{
		UserID:    userID,
		Kind:      kind,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        time.Now().UTC(),
	})
}
