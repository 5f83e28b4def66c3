// Package policy decides whether an identity may perform an action. All role
// and ownership rules of the service live here; handlers and services ask
// Authorize instead of comparing roles themselves. Decisions are computed
// per call and never cached.
package policy

import "github.com/iliyamo/property-listings/internal/model"

// Action names an operation subject to authorization.
type Action string

const (
	ViewListings   Action = "listings:list"
	ViewListing    Action = "listings:get"
	CreateListing  Action = "listings:create"
	UpdateListing  Action = "listings:update"
	DeleteListing  Action = "listings:delete"
	ListUsers      Action = "users:list"
	ChangeUserRole Action = "users:change_role"
	DeleteUser     Action = "users:delete"
)

// Reason explains a denial.
type Reason string

const (
	Unauthenticated       Reason = "unauthenticated"
	Forbidden             Reason = "forbidden"
	SelfDemotionForbidden Reason = "self_demotion_forbidden"
	SelfDeletionForbidden Reason = "self_deletion_forbidden"
)

// Resource carries what the rules need to know about the target.
//
//	OwnerID      – owner of the listing (Update/DeleteListing).
//	TargetUserID – user being changed or deleted (ChangeUserRole/DeleteUser).
//	NewRole      – requested role (ChangeUserRole).
type Resource struct {
	OwnerID      string
	TargetUserID string
	NewRole      model.Role
}

// Decision is the outcome of Authorize. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(r Reason) Decision { return Decision{Reason: r} }

// Authorize evaluates the rules in order; the first matching rule wins.
//
//  1. Public reads are always allowed.
//  2. Without an identity every other action is Unauthenticated.
//  3. Listing writes need AGENT or ADMIN; an AGENT must own the listing to
//     update or delete it.
//  4. User administration needs ADMIN, and an ADMIN may neither demote nor
//     delete their own account.
func Authorize(who *model.Identity, action Action, res Resource) Decision {
	switch action {
	case ViewListings, ViewListing:
		return allow
	}
	if who == nil || who.ID == "" {
		return deny(Unauthenticated)
	}

	switch action {
	case CreateListing:
		if who.Role == model.RoleAgent || who.Role == model.RoleAdmin {
			return allow
		}
		return deny(Forbidden)

	case UpdateListing, DeleteListing:
		switch who.Role {
		case model.RoleAdmin:
			return allow
		case model.RoleAgent:
			if res.OwnerID != "" && res.OwnerID == who.ID {
				return allow
			}
		}
		return deny(Forbidden)

	case ListUsers:
		if who.Role == model.RoleAdmin {
			return allow
		}
		return deny(Forbidden)

	case ChangeUserRole:
		if who.Role != model.RoleAdmin {
			return deny(Forbidden)
		}
		if res.TargetUserID == who.ID && res.NewRole != model.RoleAdmin {
			return deny(SelfDemotionForbidden)
		}
		return allow

	case DeleteUser:
		if who.Role != model.RoleAdmin {
			return deny(Forbidden)
		}
		if res.TargetUserID == who.ID {
			return deny(SelfDeletionForbidden)
		}
		return allow
	}
	return deny(Forbidden)
}
