package pipeline

import (
	"fmt"
	"time"
)

type (
	// Asset is an opaque handle to captured image bytes plus the metadata the
	// capture subsystem declared for them. An Asset is never mutated; every
	// preprocessing step produces a new Asset and leaves the source usable
	// for display or retake.
	Asset struct {
		URI      string `json:"uri"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		MimeType string `json:"mimeType"`
		FileName string `json:"fileName"`
	}

	// FoodItem is one food item identified by the recognition service,
	// with macros estimated per detected portion.
	FoodItem struct {
		Name    string  `json:"name"`
		Kcal    float64 `json:"kcal"`
		Protein float64 `json:"protein"`
		Carbs   float64 `json:"carbs"`
		Fats    float64 `json:"fats"`
	}
)

const defaultMimeType = "image/jpeg"

// ContentType returns the declared MIME type, defaulting to JPEG.
func (a Asset) ContentType() string {
	if a.MimeType == "" {
		return defaultMimeType
	}
	return a.MimeType
}

// Name returns the declared file name, generating a unique timestamp-based
// one when the capture subsystem did not provide any.
func (a Asset) Name() string {
	if a.FileName == "" {
		return fmt.Sprintf("scan_%d.jpg", time.Now().UnixNano())
	}
	return a.FileName
}
