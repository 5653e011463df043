package ingestion

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	v1 "github.com/aevon-lab/waypoint/internal/api/v1"
	httperr "github.com/aevon-lab/waypoint/internal/core/errors"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Internal server error"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles one OwnTracks message posted over HTTP.
// OwnTracks expects a JSON array in reply; an empty one means "nothing for you".
func (s *Service) IngestHandler(c *gin.Context) {
	evt, err := s.parseEvent(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if _, err := s.coordinator.Ingest(c.Request.Context(), evt); err != nil {
		writeError(c, classify(err, evt))
		return
	}

	c.JSON(http.StatusOK, []interface{}{})
}

// parseEvent reads the raw request body and decodes it into a LocationEvent.
func (s *Service) parseEvent(c *gin.Context) (*v1.LocationEvent, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	var evt v1.LocationEvent
	if err := json.Unmarshal(bodyBytes, &evt); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	return &evt, nil
}

// classify maps a Coordinator error onto the HTTP error shape.
func classify(err error, evt *v1.LocationEvent) *ingestionError {
	var errorType string
	switch {
	case errors.Is(err, v1.ErrInvalidPayload):
		errorType = httperr.HttpInvalidPayloadError
	case errors.Is(err, v1.ErrMissingTopic):
		errorType = httperr.HttpMissingTopicError
	case errors.Is(err, v1.ErrInvalidTopicFormat):
		errorType = httperr.HttpInvalidTopicFormatError
	default:
		// Storage detail stays in the logs.
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	slog.Warn("Rejected location message", "error", err, "topic", evt.Topic)
	return &ingestionError{
		statusCode: http.StatusBadRequest,
		errorType:  errorType,
		message:    err.Error(),
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
