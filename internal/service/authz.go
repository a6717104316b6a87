package service

import (
	"revenue-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// RoleAuthorizer implements ports.Authorizer on the actor's role.
type RoleAuthorizer struct{}

// NewRoleAuthorizer creates a new RoleAuthorizer.
func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{}
}

// CanAccessWallet allows staff on any wallet and instructors on their own.
func (a *RoleAuthorizer) CanAccessWallet(actor domain.Actor, instructorID uuid.UUID) bool {
	if actor.IsStaff() {
		return true
	}
	return actor.Role == domain.RoleInstructor && actor.ID == instructorID
}

// CanManagePayouts allows staff to decide payouts, refunds and adjustments.
func (a *RoleAuthorizer) CanManagePayouts(actor domain.Actor) bool {
	return actor.IsStaff()
}
