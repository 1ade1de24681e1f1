package service

import (
	"context"

	"github.com/iconidentify/scriptcast/internal/domain"
	"github.com/iconidentify/scriptcast/internal/repository"
)

// loadOwnedSession resolves a session and enforces ownership. Every
// session read or write goes through this check first.
func loadOwnedSession(ctx context.Context, repo repository.SessionRepository, id domain.SessionID, ownerID string) (*domain.Session, error) {
	session, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	return session, nil
}
