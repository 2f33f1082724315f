package file

import "time"

type (
	File struct {
		ID        int64     `json:"id"`
		Alias     string    `json:"alias"`
		OwnerID   *int64    `json:"owner_id"`
		Name      string    `json:"name"`
		Extension *string   `json:"extension"`
		FullName  string    `json:"full_name"`
		Size      int64     `json:"size"`
		MimeType  string    `json:"mime_type"`
		Type      string    `json:"type"`
		Hash      string    `json:"hash"`
		Priority  *int      `json:"priority"`
		Confirmed bool      `json:"confirmed"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	// Item is a file with the links a client needs to render and manage it.
	Item struct {
		File
		URL          string `json:"url"`
		DownloadURL  string `json:"download_url"`
		ThumbnailURL string `json:"thumbnail_url,omitempty"`
		DeleteURL    string `json:"delete_url"`
	}
	Items []Item

	UploadResponse struct {
		Files Items `json:"files"`
	}
	UploadFailure struct {
		Name  string `json:"name"`
		Size  int64  `json:"size"`
		Error string `json:"error"`
	}
	ListResponse struct {
		Alias      string   `json:"alias"`
		OwnerID    int64    `json:"owner_id"`
		MaxCount   *int     `json:"max_count"`
		Formatters []string `json:"formatters"`
		Data       Items    `json:"data"`
	}
)
