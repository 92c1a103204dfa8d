package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"rentledger-backend/services"
	"rentledger-backend/utils"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// queryID reads an optional numeric query parameter.
func queryID(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return nil, false
	}
	v := uint(id)
	return &v, true
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// respondLedgerError maps ledger error kinds to HTTP statuses and includes
// the ids and amounts the error carries.
func respondLedgerError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Error(err)
		utils.RespondWithError(c, status, "Internal server error")
		return
	}
	var le *services.LedgerError
	if errors.As(err, &le) {
		utils.RespondWithErrorDetails(c, status, kindMessage(err), le.Fields())
		return
	}
	utils.RespondWithError(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateInvoice):
		return http.StatusConflict
	case errors.Is(err, services.ErrOverpayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func kindMessage(err error) string {
	for _, kind := range []error{
		services.ErrNotFound,
		services.ErrDuplicateInvoice,
		services.ErrOverpayment,
		services.ErrInvalidAmount,
		services.ErrInvalidInput,
		services.ErrInvalidState,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return err.Error()
}
