package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type photoUploadRequest struct {
	DataUrl  string `json:"data_url" binding:"required"`
	FileName string `json:"file_name"`
	Folder   string `json:"folder"`
}

type photoUploadResponse struct {
	ObjectKey    string `json:"object_key"`
	PhotoUrl     string `json:"photo_url"`
	ThumbnailUrl string `json:"thumbnail_url,omitempty"`
}

const maxUploadSizeBytes = 5 * 1024 * 1024

// base64 grows the file by a third; the rest is room for the JSON envelope
const maxUploadBodyBytes = maxUploadSizeBytes/3*4 + 64*1024

// thumbnailMimeTypes are the images imaging can decode. webp is stored without a thumbnail.
var thumbnailMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// uploadPhotoHandler stores a vehicle or weighbridge slip photo sent as a data url.
// JPEG and PNG images also get a 200px wide JPEG thumbnail next to the original.
func uploadPhotoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBodyBytes)
		var req photoUploadRequest
		if !bindJSON(c, &req) {
			return
		}
		data, contentType, err := utils.DecodeDataURL(req.DataUrl)
		if err != nil {
			renderError(c, "uploadPhotoHandler", err)
			return
		}
		if len(data) > maxUploadSizeBytes {
			renderError(c, "uploadPhotoHandler", utils.NewValidationMessage("data_url", "file size exceeds 5MB limit"))
			return
		}

		folder := sanitizeSegment(strings.ToLower(req.Folder))
		if folder == "" {
			folder = "outward"
		}
		objectKey := path.Join(folder, uuid.New().String()+extensionFromMimeType(contentType, req.FileName))

		ctx := c.Request.Context()
		store := utils.NewObjectStore()
		url, err := store.Put(ctx, objectKey, data, contentType)
		if err != nil {
			logUploadError(config.GetLogger(), err, utils.GetStorageProvider(), requestIDFromHeaders(c))
			renderError(c, "uploadPhotoHandler", err)
			return
		}
		resp := photoUploadResponse{ObjectKey: objectKey, PhotoUrl: url}

		switch {
		case thumbnailMimeTypes[contentType]:
			thumbUrl, err := createThumbnail(ctx, store, objectKey, data)
			if err != nil {
				// the original is stored; a missing thumbnail is not fatal
				logUploadError(config.GetLogger(), err, utils.GetStorageProvider(), requestIDFromHeaders(c))
			}
			resp.ThumbnailUrl = thumbUrl
		case strings.HasPrefix(contentType, "image/"):
			config.GetLogger().WithFields(logrus.Fields{
				"object_key":   objectKey,
				"content_type": contentType,
				"request_id":   requestIDFromHeaders(c),
			}).Info("[upload.thumbnail_skipped]")
		}
		c.JSON(http.StatusCreated, gin.H{"data": resp})
	}
}

func createThumbnail(ctx context.Context, store utils.ObjectStore, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}
	return store.Put(ctx, thumbnailObjectKey(objectKey), buf.Bytes(), "image/jpeg")
}

func thumbnailObjectKey(objectKey string) string {
	ext := path.Ext(objectKey)
	return path.Join("thumbnails", strings.TrimSuffix(objectKey, ext)+".jpg")
}

func sanitizeSegment(input string) string {
	var out strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func extensionFromMimeType(mimeType, fileName string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	if ext := strings.ToLower(path.Ext(fileName)); ext != "" {
		return ext
	}
	return ".bin"
}

func logUploadError(logger *logrus.Logger, err error, provider string, requestID string) {
	logger.WithFields(logrus.Fields{
		"error":      err.Error(),
		"provider":   provider,
		"request_id": requestID,
	}).Error("[upload.error]")
}

func requestIDFromHeaders(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Correlation-Id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetHeader("X-Request-Id")); id != "" {
		return id
	}
	return fmt.Sprintf("upload-%d", time.Now().UnixNano())
}
