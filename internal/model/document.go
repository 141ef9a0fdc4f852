package model

import "time"

// AccessLevel is the per-document visibility tag.
type AccessLevel string

const (
	AccessPublic     AccessLevel = "public"
	AccessDepartment AccessLevel = "department"
	AccessPrivate    AccessLevel = "private"
)

// Valid reports whether l is one of the known access levels.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessPublic, AccessDepartment, AccessPrivate:
		return true
	}
	return false
}

// Document represents a stored file together with its ownership and visibility attributes.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID            int64       `json:"id"`
	Title         string      `json:"title"`
	Description   *string     `json:"description"`
	FileName      string      `json:"file_name"`
	FilePath      string      `json:"file_path"`
	FileType      string      `json:"file_type"`
	FileSize      int64       `json:"file_size"`
	CategoryID    int64       `json:"category_id"`
	DepartmentID  int64       `json:"department_id"`
	UploadedBy    int64       `json:"uploaded_by"`
	AccessLevel   AccessLevel `json:"access_level"`
	DownloadCount int64       `json:"download_count"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// DocumentView is a Document joined with the display fields of the rows it references.
// Nested references are nil when the referenced row no longer exists.
type DocumentView struct {
	Document
	Category   *CategoryRef   `json:"category,omitempty"`
	Department *DepartmentRef `json:"department,omitempty"`
	Uploader   *UploaderRef   `json:"uploader,omitempty"`
}

type CategoryRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type DepartmentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type UploaderRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DocumentPatch carries a partial update. Nil fields are left untouched.
// Description uses a double pointer so that an explicit null can clear it.
type DocumentPatch struct {
	Title        *string
	Description  **string
	CategoryID   *int64
	DepartmentID *int64
	AccessLevel  *AccessLevel
}

// Empty reports whether the patch changes nothing.
func (p DocumentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.CategoryID == nil &&
		p.DepartmentID == nil && p.AccessLevel == nil
}

// Apply returns a copy of d with the patch applied.
func (p DocumentPatch) Apply(d Document) Document {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.CategoryID != nil {
		d.CategoryID = *p.CategoryID
	}
	if p.DepartmentID != nil {
		d.DepartmentID = *p.DepartmentID
	}
	if p.AccessLevel != nil {
		d.AccessLevel = *p.AccessLevel
	}
	return d
}

// StorageOrphan is a storage key whose metadata row is gone but whose file could not be removed.
type StorageOrphan struct {
	ID        int64     `json:"id"`
	FilePath  string    `json:"file_path"`
	Reason    string    `json:"reason"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}
