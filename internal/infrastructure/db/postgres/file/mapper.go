package file

import (
	domain "file-upload-api/internal/domain/file"
)

func fromDBModel(model *File) *domain.File {
	var f = &domain.File{
		ID:        model.ID,
		Alias:     model.Alias,
		OwnerID:   model.OwnerID,
		Name:      model.Name,
		Extension: model.Extension,
		Size:      model.Size,
		MimeType:  model.MimeType,
		Type:      domain.Type(model.Type),
		Hash:      model.Hash,

		Confirmed: model.Confirmed,
		Deleted:   model.Deleted,

		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		DeletedAt: model.DeletedAt,
	}
	if model.Priority != nil {
		p := int(*model.Priority)
		f.Priority = &p
	}

	return f
}

func fromDBModels(models Files) domain.Files {
	fs := make(domain.Files, len(models))
	for idx, f := range models {
		fs[idx] = fromDBModel(f)
	}

	return fs
}

func priorityArg(p *int) *int32 {
	if p == nil {
		return nil
	}
	v := int32(*p)
	return &v
}
