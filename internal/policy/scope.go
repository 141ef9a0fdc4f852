package policy

import "docrepo/internal/model"

// Scope is the widest set of documents a caller may see in a listing.
// It is a closed set of variants: Unrestricted, PublicOnly and OwnPublicDepartmentOrOwned.
// New roles extend this set rather than adding ad-hoc checks at call sites.
type Scope interface {
	// Contains reports whether d falls inside the scope. It agrees with CanView for the
	// caller the scope was derived from.
	Contains(d model.Document) bool

	scope()
}

// Unrestricted admits every document.
type Unrestricted struct{}

// PublicOnly admits public documents. OwnerID's own uploads are admitted too: employees
// cannot upload, but a document uploaded before a role change stays visible to its uploader.
type PublicOnly struct {
	OwnerID int64
}

// OwnPublicDepartmentOrOwned admits public documents, department documents of DepartmentID,
// and anything uploaded by UserID regardless of its access level.
type OwnPublicDepartmentOrOwned struct {
	DepartmentID int64
	UserID       int64
}

func (Unrestricted) scope()               {}
func (PublicOnly) scope()                 {}
func (OwnPublicDepartmentOrOwned) scope() {}

func (Unrestricted) Contains(model.Document) bool { return true }

func (s PublicOnly) Contains(d model.Document) bool {
	return d.AccessLevel == model.AccessPublic || d.UploadedBy == s.OwnerID
}

func (s OwnPublicDepartmentOrOwned) Contains(d model.Document) bool {
	return d.AccessLevel == model.AccessPublic ||
		(d.AccessLevel == model.AccessDepartment && d.DepartmentID == s.DepartmentID) ||
		d.UploadedBy == s.UserID
}

// VisibilityScope returns the listing scope for the caller.
// Callers must check CanListAny first; unknown roles fall back to PublicOnly.
func VisibilityScope(c model.Caller) Scope {
	switch c.Role {
	case model.RoleAdmin:
		return Unrestricted{}
	case model.RoleManager:
		return OwnPublicDepartmentOrOwned{DepartmentID: c.DepartmentID, UserID: c.ID}
	default:
		return PublicOnly{OwnerID: c.ID}
	}
}
