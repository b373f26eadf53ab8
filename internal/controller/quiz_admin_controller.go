package controller

import (
	"strconv"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizAdminController struct {
	AdminService *service.QuizAdminService
}

func NewQuizAdminController(adminService *service.QuizAdminService) *QuizAdminController {
	return &QuizAdminController{AdminService: adminService}
}

// @Summary 获取测验配置
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学习单元ID"
// @Success 200 {object} util.Response
// @Router /teacher/quiz/subcourses/{id}/settings [get]
func (c *QuizAdminController) GetSettings(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	subCourseID, ok := subCourseIDParam(ctx)
	if !ok {
		return
	}

	settings, err := c.AdminService.GetSettings(subCourseID, user.UserID)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}

// @Summary 更新测验配置
// @Description 抽题数不得超过题池总数，时限必须为正
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学习单元ID"
// @Param settings body service.SettingsRequest true "配置"
// @Success 200 {object} util.Response
// @Router /teacher/quiz/subcourses/{id}/settings [put]
func (c *QuizAdminController) UpsertSettings(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	subCourseID, ok := subCourseIDParam(ctx)
	if !ok {
		return
	}

	var req service.SettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	settings, err := c.AdminService.UpsertSettings(subCourseID, user.UserID, req)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}

// @Summary 题库列表
// @Description 返回题库全部题目及各难度档数量
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学习单元ID"
// @Success 200 {object} util.Response
// @Router /teacher/quiz/subcourses/{id}/questions [get]
func (c *QuizAdminController) ListQuestions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	subCourseID, ok := subCourseIDParam(ctx)
	if !ok {
		return
	}

	questions, stats, err := c.AdminService.ListQuestions(subCourseID, user.UserID)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"questions": questions, "stats": stats})
}

// @Summary 新建题目
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学习单元ID"
// @Param question body service.QuestionRequest true "题目"
// @Success 201 {object} util.Response
// @Router /teacher/quiz/subcourses/{id}/questions [post]
func (c *QuizAdminController) CreateQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	subCourseID, ok := subCourseIDParam(ctx)
	if !ok {
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.AdminService.CreateQuestion(subCourseID, user.UserID, req)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

func questionIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(ctx.Param("questionId"))
	if err != nil || id < 1 {
		util.BadRequest(ctx, "invalid question id")
		return 0, false
	}
	return uint(id), true
}

// @Summary 更新题目
// @Description 在途会话持有快照副本，不受题目编辑影响
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param questionId path int true "题目ID"
// @Param question body service.QuestionRequest true "题目"
// @Success 200 {object} util.Response
// @Router /teacher/quiz/questions/{questionId} [put]
func (c *QuizAdminController) UpdateQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	questionID, ok := questionIDParam(ctx)
	if !ok {
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.AdminService.UpdateQuestion(questionID, user.UserID, req)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Summary 删除题目
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /teacher/quiz/questions/{questionId} [delete]
func (c *QuizAdminController) DeleteQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	questionID, ok := questionIDParam(ctx)
	if !ok {
		return
	}

	if err := c.AdminService.DeleteQuestion(questionID, user.UserID); err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": questionID})
}

// @Summary 成绩总览
// @Description 每个学生保留最新一次成绩，附全体统计
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学习单元ID"
// @Success 200 {object} util.Response
// @Router /teacher/quiz/subcourses/{id}/results [get]
func (c *QuizAdminController) ListResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	subCourseID, ok := subCourseIDParam(ctx)
	if !ok {
		return
	}

	overview, err := c.AdminService.ListResults(subCourseID, user.UserID)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}
