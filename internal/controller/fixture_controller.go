package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/service"
	"github.com/zkpoex/disclosure/pkg/errorcode"
	"github.com/zkpoex/disclosure/pkg/models/fixture"
)

// A FixtureController serves the fixtures written by the disclosure sessions. It implements the interface `Controller`.
type FixtureController struct {
	GroupName  string
	FixtureSvc service.FixtureServiceInterface
}

// GetGroupName returns the group name.
func (c *FixtureController) GetGroupName() string {
	return c.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by FixtureController.
func (c *FixtureController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"/zkpoex", "GET"}:        []gin.HandlerFunc{c.handleGetZkPoExFixture},
		urlMethodPair{"/zkpoex/digest", "GET"}: []gin.HandlerFunc{c.handleGetZkPoExFixtureDigest},
		urlMethodPair{"/ecdh", "GET"}:          []gin.HandlerFunc{c.handleGetEcdhFixture},
		urlMethodPair{"/ecdh/digest", "GET"}:   []gin.HandlerFunc{c.handleGetEcdhFixtureDigest},
	}
}

func (c *FixtureController) handleGetZkPoExFixture(ctx *gin.Context) {
	f, err := c.FixtureSvc.GetZkPoExFixture()
	if err != nil {
		writeFixtureError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, f)
}

func (c *FixtureController) handleGetZkPoExFixtureDigest(ctx *gin.Context) {
	f, err := c.FixtureSvc.GetZkPoExFixture()
	if err != nil {
		writeFixtureError(ctx, err)
		return
	}

	writeFixtureDigest(ctx, f)
}

func (c *FixtureController) handleGetEcdhFixture(ctx *gin.Context) {
	f, err := c.FixtureSvc.GetEcdhFixture()
	if err != nil {
		writeFixtureError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, f)
}

func (c *FixtureController) handleGetEcdhFixtureDigest(ctx *gin.Context) {
	f, err := c.FixtureSvc.GetEcdhFixture()
	if err != nil {
		writeFixtureError(ctx, err)
		return
	}

	writeFixtureDigest(ctx, f)
}

func writeFixtureDigest(ctx *gin.Context, f interface{}) {
	digest, err := fixture.Digest(f)
	if err != nil {
		ctx.String(http.StatusInternalServerError, err.Error())
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"digest": digest})
}

func writeFixtureError(ctx *gin.Context, err error) {
	if errors.Cause(err) == errorcode.ErrorNotFound {
		ctx.AbortWithStatus(http.StatusNotFound)
	} else {
		ctx.String(http.StatusInternalServerError, err.Error())
	}
}
