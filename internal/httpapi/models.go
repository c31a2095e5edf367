package httpapi

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

type modelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelsResponse struct {
	Object string      `json:"object"`
	Data   []modelInfo `json:"data"`
}

// modelsHandler handles GET /v1/models, reporting the single model
// identifier this deployment serves (spec §6).
func (s *Server) modelsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &modelsResponse{
		Object: "list",
		Data:   []modelInfo{{ID: s.model, Object: "model", OwnedBy: "synesis"}},
	})
}
