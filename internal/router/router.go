package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/handlers"
	"github.com/iseelabs/isee/internal/middlewares"
	"github.com/iseelabs/isee/internal/pkg/cache"
	"github.com/iseelabs/isee/internal/pkg/mq"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services"
)

// Services groups everything the HTTP surface depends on.
type Services struct {
	Auth     services.AuthService
	User     services.UserService
	Video    services.VideoService
	Comment  services.CommentService
	Image    services.ImageService
	Transfer transfer.Client
	MQ       *mq.RabbitMQClient
	// TokenStore backs the logout denylist.
	TokenStore cache.Cache
	// RemoteRoot is the directory or prefix uploads land under.
	RemoteRoot string
}

func SetupRouter(cfg *config.Config, svc *Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middlewares.AuthMiddleware(cfg, svc.TokenStore)
	admin := middlewares.RequireAdmin()

	v1 := r.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("", handlers.Register(svc.Auth))
			users.POST("/login", handlers.Login(svc.Auth))
			users.POST("/logout", handlers.Logout(cfg, svc.TokenStore))
			users.GET("/verify", handlers.VerifyEmail(svc.Auth))

			users.GET("/profile", auth, handlers.GetMe(svc.User))
			users.PUT("/profile", auth, handlers.UpdateOwnProfile(svc.User))
			users.DELETE("/profile", auth, handlers.DeleteOwnProfile(svc.User))

			users.GET("", auth, admin, handlers.ListUsers(svc.User))
			users.GET("/:username", auth, handlers.GetUserByUsername(svc.User))
			users.PUT("/:id", auth, admin, handlers.UpdateUser(svc.User))
			users.PUT("/:id/role", auth, admin, handlers.SetUserRole(svc.User))
			users.DELETE("/:id", auth, admin, handlers.DeleteUser(svc.User))
		}

		videos := v1.Group("/videos")
		{
			videos.GET("", handlers.ListVideos(svc.Video))
			videos.GET("/:id", handlers.GetVideo(svc.Video))
			videos.PATCH("/:id/watch", handlers.WatchVideo(svc.Video))

			videos.POST("", auth, handlers.UploadVideo(svc.Video, svc.Transfer, svc.MQ, cfg, svc.RemoteRoot))
			videos.PUT("/:id", auth, handlers.UpdateVideo(svc.Video))
			videos.DELETE("/:id", auth, handlers.DeleteVideo(svc.Video))
			videos.PATCH("/:id/hide", auth, handlers.ToggleVideoHidden(svc.Video))
			videos.PATCH("/:id/block", auth, admin, handlers.ToggleVideoBlocked(svc.Video))
		}

		comments := v1.Group("/comments")
		{
			comments.GET("", auth, admin, handlers.ListComments(svc.Comment))
			comments.GET("/video/:videoId", handlers.ListVideoComments(svc.Comment))
			comments.POST("", auth, handlers.CreateComment(svc.Comment))
			comments.DELETE("/:id", auth, handlers.DeleteComment(svc.Comment))
		}

		images := v1.Group("/images")
		{
			images.GET("", handlers.ListImages(svc.Image))
			images.GET("/mine", auth, handlers.MyImages(svc.Image))
			images.GET("/:id", handlers.GetImage(svc.Image))
			images.POST("", auth, handlers.UploadImage(svc.Image))
			images.DELETE("/:id", auth, handlers.DeleteImage(svc.Image))
		}
	}

	r.NoRoute(func(c *gin.Context) {
		xerr.Error(c, http.StatusNotFound, xerr.NotFoundCode, "route not found")
	})

	return r
}
