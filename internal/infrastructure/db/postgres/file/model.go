package file

import "time"

type (
	File struct {
		ID        int64
		Alias     string
		OwnerID   *int64
		Name      string
		Extension *string
		Size      int64
		MimeType  string
		Type      int16
		Hash      string
		Priority  *int32

		Confirmed bool
		Deleted   bool

		CreatedAt time.Time
		UpdatedAt time.Time
		DeletedAt *time.Time
	}
	Files []*File
)
