package api

import (
	"net/http"

	"athlos/cert-portal/internal/ratelimit"
	"athlos/cert-portal/internal/service"
	"athlos/cert-portal/internal/storage"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	limiter *ratelimit.Limiter,
	authService service.AuthService,
	certService service.CertificateService,
	downloadService service.DownloadService,
	archiveService service.ArchiveService,
	fileStorage storage.ObjectStorage,
) {
	authHandler := NewAuthHandler(authService)
	certHandler := NewCertificateHandler(certService, downloadService, archiveService)
	adminHandler := NewAdminHandler(certService, fileStorage)

	authMiddleware := AuthMiddleware(jwtSecret)
	rateLimitMiddleware := RateLimitMiddleware(limiter)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// --- Public certificate lookup, rate limited per client IP ---
		certGroup := apiV1.Group("/certificates")
		certGroup.Use(rateLimitMiddleware)
		{
			certGroup.GET("", certHandler.SearchCertificates)
			certGroup.POST("", certHandler.SearchCertificatesByCode)
			certGroup.GET("/:id/download", certHandler.DownloadCertificate)
			certGroup.POST("/download-all", certHandler.DownloadAllCertificates)
		}

		// --- Admin: seeding, debug listing, artifact uploads ---
		adminGroup := apiV1.Group("/admin")
		adminGroup.Use(authMiddleware)
		{
			adminGroup.POST("/certificates", adminHandler.SeedCertificates)
			adminGroup.DELETE("/certificates/:batch", adminHandler.PurgeSeedBatch)
			adminGroup.GET("/certificates", adminHandler.ListCertificates)
			adminGroup.POST("/uploads", adminHandler.CreateUploadURL)
			adminGroup.POST("/certificates/:id/artifact", adminHandler.AttachArtifact)
		}
	}
}
