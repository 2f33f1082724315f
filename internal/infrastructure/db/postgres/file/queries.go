package file

const (
	fileColumns = `id, alias, owner_id, name, extension, size, mime_type, type, hash, priority, confirmed, deleted, created_at, updated_at, deleted_at`

	SelectNextID = `SELECT nextval(pg_get_serial_sequence('files', 'id'))`
	InsertFile   = `
		INSERT INTO files (id, alias, owner_id, name, extension, size, mime_type, type, hash, priority, confirmed, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + fileColumns
	SelectFileByID  = `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	SelectFiles     = `SELECT ` + fileColumns + ` FROM files`
	MarkDeletedByID = `
		UPDATE files
		SET deleted = TRUE, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted = FALSE
	`
	ConfirmFiles = `
		UPDATE files
		SET owner_id = $2, confirmed = TRUE, updated_at = now()
		WHERE alias = $1
		  AND id = ANY($3)
		  AND deleted = FALSE
		  AND (owner_id IS NULL OR owner_id = $2)
	`
)
