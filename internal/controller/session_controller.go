package controller

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/service"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// A SessionController serves the session ledger. It implements the interface `Controller`.
type SessionController struct {
	GroupName  string
	SessionSvc service.SessionServiceInterface
}

// GetGroupName returns the group name.
func (c *SessionController) GetGroupName() string {
	return c.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by SessionController.
func (c *SessionController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"", "GET"}:    []gin.HandlerFunc{c.handleListSessions},
		urlMethodPair{":id", "GET"}: []gin.HandlerFunc{c.handleGetSession},
	}
}

func (c *SessionController) handleListSessions(ctx *gin.Context) {
	pel := &ParameterErrorList{}

	// Theses fields have their default values if not specified
	limit := 20
	if limitStr := strings.TrimSpace(ctx.Query("limit")); limitStr != "" {
		limit = pel.AppendIfNotPositiveInt(limitStr, "条数上限应为正整数。")
	}
	path := strings.TrimSpace(ctx.Query("path"))

	if len(*pel) > 0 {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, pel)
		return
	}

	sessions, err := c.SessionSvc.ListSessions(path, limit)
	writeSessionResult(ctx, pel, sessions, err)
}

func (c *SessionController) handleGetSession(ctx *gin.Context) {
	pel := &ParameterErrorList{}
	id := pel.AppendIfEmptyOrBlankSpaces(ctx.Param("id"), "会话 ID 不能为空。")

	if len(*pel) > 0 {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, pel)
		return
	}

	session, err := c.SessionSvc.GetSession(id)
	writeSessionResult(ctx, pel, session, err)
}

// Check error type and generate the corresponding response
func writeSessionResult(ctx *gin.Context, pel *ParameterErrorList, result interface{}, err error) {
	if err == nil {
		ctx.JSON(http.StatusOK, result)
	} else if reflect.TypeOf(err) == reflect.TypeOf(&service.ErrorBadRequest{}) {
		*pel = append(*pel, err.Error())
		ctx.JSON(http.StatusBadRequest, pel)
	} else if errors.Cause(err) == errorcode.ErrorNotFound {
		ctx.Writer.WriteHeader(http.StatusNotFound)
	} else if errors.Cause(err) == errorcode.ErrorNotImplemented {
		ctx.Writer.WriteHeader(http.StatusNotImplemented)
	} else {
		ctx.String(http.StatusInternalServerError, err.Error())
	}
}
