package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/zkpoex/disclosure/internal/rounds"
	"github.com/zkpoex/disclosure/internal/service"
	"github.com/zkpoex/disclosure/pkg/errorcode"
)

// RoundPreview 为披露轮次预览的结果
type RoundPreview struct {
	Round       uint64 `json:"round"`       // 披露轮次
	ChainHash   string `json:"chainHash"`   // 信标链哈希
	Period      string `json:"period"`      // 轮次周期
	GenesisTime uint64 `json:"genesisTime"` // 创世时间（Unix 秒）
}

// A RoundController previews the disclosure round of a duration. It implements the interface `Controller`.
type RoundController struct {
	GroupName   string
	TimeLockSvc service.TimeLockServiceInterface
}

// GetGroupName returns the group name.
func (c *RoundController) GetGroupName() string {
	return c.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by RoundController.
func (c *RoundController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"", "GET"}: []gin.HandlerFunc{c.handleGetRound},
	}
}

func (c *RoundController) handleGetRound(ctx *gin.Context) {
	pel := &ParameterErrorList{}

	var explicitRound uint64
	if roundStr := strings.TrimSpace(ctx.Query("round")); roundStr != "" {
		explicitRound = pel.AppendIfNotUint64(roundStr, "轮次应为非负整数。")
	}

	var duration *time.Duration
	durationStr := strings.TrimSpace(ctx.DefaultQuery("duration", rounds.DefaultDuration))
	if d, err := rounds.ParseDuration(durationStr); err != nil {
		*pel = append(*pel, "披露时长不合法。")
	} else {
		duration = &d
	}

	if len(*pel) > 0 {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, pel)
		return
	}

	round, chainInfo, err := c.TimeLockSvc.RoundFor(ctx.Request.Context(), duration, explicitRound)
	if err != nil {
		switch errors.Cause(err) {
		case errorcode.ErrorBeaconUnavailable:
			ctx.String(http.StatusBadGateway, err.Error())
		case errorcode.ErrorRoundPassed:
			ctx.String(http.StatusBadRequest, err.Error())
		default:
			ctx.String(http.StatusInternalServerError, err.Error())
		}
		return
	}

	ctx.JSON(http.StatusOK, &RoundPreview{
		Round:       round,
		ChainHash:   chainInfo.Hash,
		Period:      chainInfo.Period.String(),
		GenesisTime: chainInfo.GenesisTime,
	})
}
