package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	settingsdomain "github.com/smallbiznis/detailflow/internal/settings/domain"
)

type updateSettingsRequest struct {
	ReferralRateL1  decimal.Decimal `json:"referral_rate_l1" binding:"percent"`
	ReferralRateL2  decimal.Decimal `json:"referral_rate_l2" binding:"percent"`
	ReferralRateL3  decimal.Decimal `json:"referral_rate_l3" binding:"percent"`
	GSTRate         decimal.Decimal `json:"gst_rate" binding:"percent"`
	DefaultDiscount int64           `json:"default_discount" binding:"gte=0"`
}

func (s *Server) GetSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.settingsSvc.Update(c.Request.Context(), settingsdomain.UpdateSettingsRequest{
		ReferralRateL1:  req.ReferralRateL1,
		ReferralRateL2:  req.ReferralRateL2,
		ReferralRateL3:  req.ReferralRateL3,
		GSTRate:         req.GSTRate,
		DefaultDiscount: req.DefaultDiscount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
