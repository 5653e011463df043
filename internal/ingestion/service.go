package ingestion

import (
	"github.com/gin-gonic/gin"
)

type Service struct {
	coordinator      *Coordinator
	maxBodySizeBytes int
}

func NewService(coordinator *Coordinator, maxBodySizeMB int) *Service {
	if coordinator == nil {
		panic("ingestion: coordinator must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		coordinator:      coordinator,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	// OwnTracks HTTP mode posts to the configured URL as-is.
	r.POST("/", s.IngestHandler)

	// Path used by the OwnTracks Recorder, so existing app configs keep working.
	r.POST("/pub", s.IngestHandler)
}
