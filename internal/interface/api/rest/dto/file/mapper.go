package file

import (
	"file-upload-api/internal/domain/file"
)

func ToResponseFile(f file.File) File {
	return File{
		ID:        f.ID,
		Alias:     f.Alias,
		OwnerID:   f.OwnerID,
		Name:      f.Name,
		Extension: f.Extension,
		FullName:  f.FullName(),
		Size:      f.Size,
		MimeType:  f.MimeType,
		Type:      f.Type.String(),
		Hash:      f.Hash,
		Priority:  f.Priority,
		Confirmed: f.Confirmed,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
