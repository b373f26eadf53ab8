package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 学生侧：答题
		quiz := authGroup.Group("/quiz")
		quiz.Use(middleware.RoleMiddleware(model.Student))
		{
			quiz.POST("/subcourses/:id/start", c.quiz.StartSession)
			quiz.GET("/subcourses/:id/history", c.quiz.GetHistory)
			quiz.POST("/sessions/:token/answer", c.quiz.SubmitAnswer)
			quiz.POST("/sessions/:token/finish", c.quiz.FinishSession)
			quiz.GET("/sessions/:token/result", c.quiz.GetResult)
		}

		// 教师侧：题库与配置管理
		teacher := authGroup.Group("/teacher/quiz")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.GET("/subcourses/:id/settings", c.quizAdmin.GetSettings)
			teacher.PUT("/subcourses/:id/settings", c.quizAdmin.UpsertSettings)
			teacher.GET("/subcourses/:id/questions", c.quizAdmin.ListQuestions)
			teacher.POST("/subcourses/:id/questions", c.quizAdmin.CreateQuestion)
			teacher.PUT("/questions/:questionId", c.quizAdmin.UpdateQuestion)
			teacher.DELETE("/questions/:questionId", c.quizAdmin.DeleteQuestion)
			teacher.GET("/subcourses/:id/results", c.quizAdmin.ListResults)
		}
	}
}
