package routes

import (
	"net/http"

	"github.com/DIPEDEV/batalla-numeros/handlers"
	"github.com/DIPEDEV/batalla-numeros/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth  *handlers.AuthHandler
	Match *handlers.MatchHandler
	Stats *handlers.StatsHandler
	Media *handlers.MediaHandler
}

func SetupRoutes(router *gin.Engine, h Handlers, auth middleware.TokenValidator) {
	requireAuth := middleware.AuthMiddleware(auth)

	api := router.Group("/api")
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/anonymous", h.Auth.SignInAnonymously)
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.GET("/google/login", h.Auth.GoogleLogin)
			authGroup.GET("/google/callback", h.Auth.GoogleCallback)
		}

		api.GET("/cheatsheet", handlers.CheatSheet)
		api.GET("/difficulties", handlers.Difficulties)
		api.GET("/reactions", handlers.Reactions)
		api.GET("/leaderboard", h.Stats.GetLeaderboard)
		api.GET("/matches/:code", h.Match.GetMatch)
		api.GET("/matches/:code/players", h.Match.ConnectedPlayers)

		protected := api.Group("/")
		protected.Use(requireAuth)
		{
			protected.GET("/auth/profile", h.Auth.GetProfile)
			protected.POST("/auth/logout", h.Auth.SignOut)
			protected.PUT("/auth/username", h.Auth.RegisterUsername)
			protected.GET("/auth/username/check", h.Auth.CheckUsername)

			protected.GET("/users/me/history", h.Stats.GetHistory)
			protected.POST("/users/me/avatar", h.Media.UploadAvatar)
			protected.DELETE("/users/me/avatar", h.Media.RemoveAvatar)

			protected.POST("/practice", h.Match.CreatePractice)

			matches := protected.Group("/matches")
			{
				matches.POST("", h.Match.CreateMatch)
				matches.POST("/:code/join", h.Match.JoinMatch)
				matches.PATCH("/:code/config", h.Match.UpdateConfig)
				matches.POST("/:code/team", h.Match.SetTeam)
				matches.POST("/:code/bots", h.Match.AddBot)
				matches.DELETE("/:code/bots/:botID", h.Match.RemoveBot)
				matches.POST("/:code/start", h.Match.StartMatch)
				matches.POST("/:code/answer", h.Match.SubmitAnswer)
				matches.POST("/:code/attack", h.Match.LaunchAttack)
				matches.POST("/:code/reaction", h.Match.SendReaction)
				matches.POST("/:code/leave", h.Match.LeaveMatch)
				matches.POST("/:code/lobby", h.Match.ReturnToLobby)
				matches.POST("/:code/finish", h.Match.FinishMatch)
			}
		}
	}

	router.GET("/media/avatars/:id", h.Media.GetAvatar)

	// Browsers cannot set headers on websocket upgrades, so the token
	// travels as ?token=.
	router.GET("/ws/:code", requireAuth, h.Match.ServeWS)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
