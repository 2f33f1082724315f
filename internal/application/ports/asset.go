package ports

import (
	"io"

	"file-upload-api/internal/domain/file"
)

const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

// Asset is a byte stream ready to be written to a client. The caller closes Body.
type Asset struct {
	File        *file.File
	ContentType string
	Disposition string
	FileName    string
	Size        int64
	Body        io.ReadCloser
}
