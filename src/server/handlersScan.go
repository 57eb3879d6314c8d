package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "foodscan/src/app"
	"foodscan/src/nutrition"
	"foodscan/src/pipeline"
)

type (
	// ScanHandler accepts a captured photo, keeps the original in the object
	// store and runs it through the analysis pipeline.
	ScanHandler struct {
		orchestrator *pipeline.Orchestrator
		store        *app.BlobStore
		mealLog      *nutrition.Log
		log          *logrus.Entry
	}
)

var imageAvaiableFormats = []string{"png", "jpg", "jpeg", "tiff", "bmp"}

func NewScanHandler(orchestrator *pipeline.Orchestrator, store *app.BlobStore, mealLog *nutrition.Log) *ScanHandler {
	return &ScanHandler{
		orchestrator: orchestrator,
		store:        store,
		mealLog:      mealLog,
		log:          logrus.WithField("component", "scan-handler"),
	}
}

// PostScan runs the full analysis of one uploaded photo. Form fields: "image"
// (the file), "width"/"height" (declared pixel dimensions), optional "meal"
// (a meal id to append recognized items to).
func (h *ScanHandler) PostScan(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "error", "error": fmt.Sprintf("can not find image in request: %v", err)})
		return
	}
	defer file.Close()

	var buffer bytes.Buffer
	if _, err := io.Copy(&buffer, file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "error", "error": "Failed to read file"})
		return
	}

	asset, cleanup, err := h.materialize(c, &buffer, header.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "error", "error": err.Error()})
		return
	}
	defer cleanup()

	// Keep the original photo regardless of how analysis goes, the client
	// may want to show it on the results screen.
	if err := h.store.UploadScan(c.Request.Context(),
		fmt.Sprintf("scans/%s", asset.Name()),
		asset.ContentType(),
		bytes.NewReader(buffer.Bytes()),
		int64(buffer.Len())); err != nil {
		h.log.Warnf("can not store original scan: %v", err)
	}

	outcome, err := h.orchestrator.Analyze(c.Request.Context(), asset, func(value float64) {
		h.log.Debugf("analysis progress: %d%%", int(value*100))
	})
	if err != nil {
		status, message := failureStatus(err)
		c.IndentedJSON(status, gin.H{"message": "error", "error": message})
		return
	}

	if outcome.Status == pipeline.StatusNothingIdentified {
		c.JSON(http.StatusOK, gin.H{
			"status":  "empty",
			"message": "Could not identify food items in the image.",
		})
		return
	}

	if mealID := c.PostForm("meal"); mealID != "" {
		if _, err := h.mealLog.AddRecognized(c.Request.Context(), mealID, outcome.Items); err != nil {
			h.log.Warnf("can not log recognized items to meal %s: %v", mealID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": outcome.Items, "attempts": outcome.Attempts})
}

// GetScans lists presigned URLs of stored photos.
func (h *ScanHandler) GetScans(c *gin.Context) {
	images, err := h.store.ListScans(c.Request.Context(), "scans/", imageAvaiableFormats)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Sprintf("can not fetch images: %v", err)})
		return
	}
	result := []string{}
	for _, image := range images {
		result = append(result, image.String())
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": result})
}

// materialize writes the uploaded bytes to a temp file so the pipeline's
// collaborators (size inspection, image decoding) can work on a real handle.
func (h *ScanHandler) materialize(c *gin.Context, buffer *bytes.Buffer, fallbackName string) (pipeline.Asset, func(), error) {
	tmp, err := os.CreateTemp("", "scan_*"+filepath.Ext(fallbackName))
	if err != nil {
		return pipeline.Asset{}, nil, fmt.Errorf("can not buffer upload: %w", err)
	}
	if _, err := tmp.Write(buffer.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return pipeline.Asset{}, nil, fmt.Errorf("can not buffer upload: %w", err)
	}
	tmp.Close()

	width, _ := strconv.Atoi(c.PostForm("width"))
	height, _ := strconv.Atoi(c.PostForm("height"))
	asset := pipeline.Asset{
		URI:      tmp.Name(),
		Width:    width,
		Height:   height,
		MimeType: c.PostForm("mimeType"),
		FileName: c.PostForm("fileName"),
	}
	if asset.FileName == "" {
		asset.FileName = fallbackName
	}
	return asset, func() { os.Remove(tmp.Name()) }, nil
}

// failureStatus maps a terminal pipeline failure onto an HTTP status plus the
// specific user-facing message. Every branch is distinguishable by the
// client, the corrective action differs per case.
func failureStatus(err error) (int, string) {
	var uploadErr *pipeline.UploadError
	if errors.As(err, &uploadErr) {
		switch uploadErr.Kind {
		case pipeline.PayloadTooLarge:
			return http.StatusRequestEntityTooLarge, err.Error()
		case pipeline.ServerTimeout:
			return http.StatusGatewayTimeout, err.Error()
		case pipeline.ClientTimeout:
			return http.StatusRequestTimeout, err.Error()
		case pipeline.NetworkUnavailable:
			return http.StatusBadGateway, err.Error()
		}
		return http.StatusBadGateway, err.Error()
	}
	var compressionErr *pipeline.CompressionError
	if errors.As(err, &compressionErr) {
		return http.StatusInternalServerError, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}
