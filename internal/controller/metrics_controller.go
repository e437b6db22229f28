package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/zkpoex/disclosure/internal/metrics"
)

// A MetricsController exposes the Prometheus registry. It implements the interface `Controller`.
type MetricsController struct {
	GroupName string
}

// GetGroupName returns the group name.
func (c *MetricsController) GetGroupName() string {
	return c.GroupName
}

// GetEndpointMap implements part of the interface `Controller`.
func (c *MetricsController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"", "GET"}: []gin.HandlerFunc{gin.WrapH(metrics.Handler())},
	}
}
