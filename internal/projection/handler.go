package projection

import (
	"errors"
	"log/slog"
	"net/http"

	httperr "github.com/aevon-lab/waypoint/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/0")
	api.GET("/list", s.HandleList)
	api.GET("/last", s.HandleLast)
	api.GET("/rec", s.HandleRec)
}

// HandleList handles GET /api/0/list
// Query parameters: user, device
func (s *Service) HandleList(c *gin.Context) {
	var query ListQuery
	if !bindQuery(c, &query) {
		return
	}

	resp, err := s.List(c.Request.Context(), query)
	if err != nil {
		writeQueryError(c, err, "Failed to list data")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleLast handles GET /api/0/last
// Query parameters: user, device, fields
func (s *Service) HandleLast(c *gin.Context) {
	var query LastQuery
	if !bindQuery(c, &query) {
		return
	}

	entries, err := s.Last(c.Request.Context(), query)
	if err != nil {
		writeQueryError(c, err, "Failed to fetch last location")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// HandleRec handles GET /api/0/rec
// Query parameters: user, device, month, format
func (s *Service) HandleRec(c *gin.Context) {
	var query RecQuery
	if !bindQuery(c, &query) {
		return
	}

	if query.Format == "json" {
		records, err := s.Records(c.Request.Context(), query)
		if err != nil {
			writeQueryError(c, err, "Failed to read location history")
			return
		}
		c.JSON(http.StatusOK, records)
		return
	}

	content, err := s.Shard(c.Request.Context(), query)
	if err != nil {
		writeQueryError(c, err, "Failed to read location history")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", content)
}

func bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return false
	}
	return true
}

func writeQueryError(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "No location data found",
		})
	default:
		slog.Error(internalMsg, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   internalMsg,
		})
	}
}
