package service

import (
	"context"

	"foodRescueCoordination/internal/auth"
	"foodRescueCoordination/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// requireActor resolves the authenticated principal to its user row and
// rejects missing, deactivated, or locked accounts. The transport layer
// verified the token; the engine still insists the account exists and is in
// good standing.
func (s *Service) requireActor(ctx context.Context) (*models.User, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.GetByUsername(ctx, p.Name)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get user: %v", err)
	}
	if u == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	if !u.IsActive {
		return nil, status.Error(codes.FailedPrecondition, "account is deactivated")
	}
	if u.AccountStatus == models.AccountLocked {
		return nil, status.Error(codes.FailedPrecondition, "account is locked")
	}
	return u, nil
}
