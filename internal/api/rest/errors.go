package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trainctl/internal/controllers"
	"trainctl/internal/hw"
	"trainctl/internal/selftest"
	"trainctl/internal/types"
)

// writeError maps a controller or orchestrator error onto an HTTP status.
// Hardware faults become 502: the API worked, the board did not.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var hwErr *hw.HwError
	switch {
	case errors.Is(err, controllers.ErrUnknownID):
		status = http.StatusNotFound
	case errors.Is(err, controllers.ErrInvalidPosition),
		errors.Is(err, controllers.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, selftest.ErrBusy):
		status = http.StatusConflict
	case errors.As(err, &hwErr):
		status = http.StatusBadGateway
	}

	c.JSON(status, types.NewErrorResponse(err.Error()))
}
