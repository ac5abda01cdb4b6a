package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the API engine. Each read endpoint is also served under
// its older path so existing clients keep working.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware(allowedOrigins))

	router.GET("/health", h.HealthCheck)
	router.GET("/stores", h.ListStores)

	router.GET("/weekly-ad", h.WeeklyAd)
	router.GET("/weeklyad/", h.WeeklyAd)

	router.GET("/weekly-ad-from-file", h.WeeklyAdFromFile)
	router.GET("/weeklyadfromfile/", h.WeeklyAdFromFile)

	router.GET("/image-bytes", h.ImageBytes)
	router.GET("/getimagebytes/", h.ImageBytes)

	return router
}
