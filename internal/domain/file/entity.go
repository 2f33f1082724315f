package file

import (
	"time"
)

const (
	MaxNameLength      = 255
	MaxExtensionLength = 45
	HashLength         = 32
	DefaultName        = "file"

	// MaxAge keeps unconfirmed uploads visible to the owner form that created them.
	MaxAge = 2 * time.Hour
)

type (
	Type uint8
	File struct {
		ID      int64
		Alias   string
		OwnerID *int64

		Name      string
		Extension *string
		Size      int64
		MimeType  string
		Type      Type
		Hash      string
		Priority  *int

		Confirmed bool
		Deleted   bool

		CreatedAt time.Time
		UpdatedAt time.Time
		DeletedAt *time.Time
	}
	Files []*File
)

const (
	TypeImage Type = 1
	TypeFile  Type = 2
)

func (t Type) String() string {
	if t == TypeImage {
		return "image"
	}
	return "file"
}

// ParseType maps stored or user supplied values onto a Type, anything unknown is a plain file.
func ParseType(s string) Type {
	if s == "image" {
		return TypeImage
	}
	return TypeFile
}

// Saved reports whether the record has been assigned an id.
func (f *File) Saved() bool { return f != nil && f.ID != 0 }

func (f *File) IsActual() bool { return f.Confirmed && !f.Deleted }

func (f *File) IsImage() bool { return f.Type == TypeImage }

func (f *File) FullName() string {
	if f.Extension == nil || *f.Extension == "" {
		return f.Name
	}
	return f.Name + "." + *f.Extension
}

// Ext returns the extension with a leading dot, or an empty string.
func (f *File) Ext() string {
	if f.Extension == nil || *f.Extension == "" {
		return ""
	}
	return "." + *f.Extension
}

// MarkDeleted flags the record as deleted. It returns false and keeps DeletedAt
// untouched when the record was already deleted.
func (f *File) MarkDeleted(now time.Time) bool {
	if f.Deleted {
		return false
	}
	f.Deleted = true
	f.DeletedAt = &now
	return true
}
