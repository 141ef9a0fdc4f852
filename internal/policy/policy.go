// Package policy decides what a caller may do with documents.
//
// Every function is a pure function of a model.Caller and, where relevant, a model.Document.
// Nothing here touches storage, so the same decisions back both the list path (through
// VisibilityScope) and the single-document paths (show, update, delete, download).
package policy

import "docrepo/internal/model"

// CanListAny reports whether the caller may list documents at all.
func CanListAny(c model.Caller) bool {
	return c.Role.Valid()
}

// CanCreate reports whether the caller may upload documents.
func CanCreate(c model.Caller) bool {
	return c.Role == model.RoleAdmin || c.Role == model.RoleManager
}

// CanView reports whether the caller may see the document.
func CanView(c model.Caller, d model.Document) bool {
	switch {
	case c.Role == model.RoleAdmin:
		return true
	case d.AccessLevel == model.AccessPublic:
		return true
	case c.ID == d.UploadedBy:
		return true
	case d.AccessLevel == model.AccessDepartment &&
		c.Role == model.RoleManager &&
		c.DepartmentID == d.DepartmentID:
		return true
	}
	return false
}

// CanUpdate reports whether the caller may modify the document's metadata.
func CanUpdate(c model.Caller, d model.Document) bool {
	if c.Role == model.RoleAdmin {
		return true
	}
	return c.Role == model.RoleManager && c.ID == d.UploadedBy
}

// CanDelete follows the same rule as CanUpdate.
func CanDelete(c model.Caller, d model.Document) bool {
	return CanUpdate(c, d)
}

// CanUploadToDepartment reports whether the caller may place a document in departmentID.
// Only managers are restricted here; employees are stopped earlier by CanCreate.
func CanUploadToDepartment(c model.Caller, departmentID int64) bool {
	return c.Role != model.RoleManager || c.DepartmentID == departmentID
}
