package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/repositories"
	"github.com/rentora/applications-service/internal/utils"
)

// Authorizer resolves actors and answers ownership questions. Lookups are
// cached with a short TTL because every request on an application re-checks
// the caller's role.
type Authorizer struct {
	userRepo repositories.UserRepository
	cache    *gocache.Cache
}

func NewAuthorizer(userRepo repositories.UserRepository) *Authorizer {
	return &Authorizer{
		userRepo: userRepo,
		cache:    gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// ResolveActor loads the user behind an authenticated request.
func (a *Authorizer) ResolveActor(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if cached, found := a.cache.Get(userID.String()); found {
		return cached.(*models.User), nil
	}

	user, err := a.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrNotFound
	}

	a.cache.Set(userID.String(), user, gocache.DefaultExpiration)
	return user, nil
}

// CanReview reports whether the actor may act on the application as a
// reviewer: admins and managers always, owners only for their own property.
func (a *Authorizer) CanReview(actor *models.User, app *models.Application) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleManager:
		return true
	case models.RoleOwner:
		return actor.ID == app.Property.OwnerID
	default:
		return false
	}
}

// CanViewApplication allows the applicant plus anyone who can review.
func (a *Authorizer) CanViewApplication(actor *models.User, app *models.Application) bool {
	if actor.ID == app.ApplicantID {
		return true
	}
	return a.CanReview(actor, app)
}

// Invalidate drops a user's cached entry, e.g. after a role change.
func (a *Authorizer) Invalidate(userID uuid.UUID) {
	a.cache.Delete(userID.String())
}
