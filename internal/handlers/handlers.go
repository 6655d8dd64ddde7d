package handlers

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/room-check/internal/comparator"
	"github.com/example/room-check/internal/logging"
)

// MaxUploadSize bounds the multipart body accepted by the upload endpoint.
const MaxUploadSize = 10 << 20

// UploadField is the multipart field carrying the photo.
const UploadField = "user_image"

//go:embed index.html
var indexHTML []byte

// Comparer is the part of the use case the HTTP layer depends on.
type Comparer interface {
	CompareUpload(ctx context.Context, upload []byte) (string, comparator.Result, error)
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, uc Comparer, logger *zap.Logger) {
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/upload_user", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

		data, err := readUpload(c)
		if err != nil {
			fail(c, logger, "", err)
			return
		}

		requestID, result, err := uc.CompareUpload(c.Request.Context(), data)
		if err != nil {
			fail(c, logger, requestID, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":       requestID,
			"similarity_score": result.Score,
			"verdict":          result.Verdict,
			"result":           result.Message(),
		})
	})
}

func readUpload(c *gin.Context) ([]byte, error) {
	file, err := c.FormFile(UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, comparator.NewInvalidImageError(comparator.InputCandidate,
				fmt.Sprintf("upload exceeds %d bytes", MaxUploadSize), err)
		}
		return nil, comparator.NewInvalidImageError(comparator.InputCandidate, "no image uploaded", err)
	}

	src, err := file.Open()
	if err != nil {
		return nil, comparator.NewInvalidImageError(comparator.InputCandidate, "unable to open upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, comparator.NewInvalidImageError(comparator.InputCandidate, "failed to read upload", err)
	}
	return data, nil
}

// fail logs err and writes the error body. Every failure maps to a server
// error status. Image problems report their input and reason; causes and
// any other error stay in the log.
func fail(c *gin.Context, logger *zap.Logger, requestID string, err error) {
	logging.WithOperation(logger, logging.OperationOf(err, "handlers.upload_user"), requestID).Error("comparison request failed", zap.Error(err))
	_ = c.Error(err)

	message := "comparison failed"
	var invalid *comparator.InvalidImageError
	if errors.As(err, &invalid) {
		message = invalid.Summary()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
