package app

// ScanImage describes a captured photo stored in the bucket.
type ScanImage struct {
	// The key (object name) of the photo in the bucket.
	Key string `json:"key"`

	// Presigned URL of the photo.
	URL string `json:"url"`

	// The MIME type of the photo (e.g., "image/jpeg").
	ContentType string `json:"content_type"`

	// The size of the photo in bytes.
	Size int64 `json:"size"`
}

// User represents an authenticated user of the tracker.
type User struct {
	// Unique user ID in the application.
	ID string `json:"id"`

	// User's preferred username, often used for display.
	Username string `json:"username"`

	Picture string `json:"picture"`

	// User's email address.
	Email string `json:"email"`

	// User's display name.
	Name string `json:"name"`

	// Photos the user has scanned.
	Images []ScanImage `json:"images"`
}
