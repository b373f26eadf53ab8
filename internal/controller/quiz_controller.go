package controller

import (
	"errors"
	"strconv"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// quizError 把领域错误翻译成 HTTP 状态码
func quizError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrSubCourseNotFound),
		errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrQuestionNotInSession),
		errors.Is(err, util.ErrResultNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrNotEnrolled),
		errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx, err.Error())
	case errors.Is(err, util.ErrAttemptLimitExceeded):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrSessionExpired):
		util.Gone(ctx, err.Error())
	case errors.Is(err, util.ErrInsufficientQuestions),
		errors.Is(err, util.ErrNotQuizContent),
		errors.Is(err, util.ErrInvalidOption),
		errors.Is(err, util.ErrSessionNotActive):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

func subCourseIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		util.BadRequest(ctx, "invalid sub course id")
		return 0, false
	}
	return uint(id), true
}

// @Summary 开始测验
// @Description 为当前学生创建一次新的测验会话并下发题目（不含答案）
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学习单元ID"
// @Success 201 {object} util.Response
// @Router /quiz/subcourses/{id}/start [post]
func (c *QuizController) StartSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	subCourseID, ok := subCourseIDParam(ctx)
	if !ok {
		return
	}

	resp, err := c.QuizService.StartSession(user.UserID, subCourseID)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Created(ctx, resp)
}

type submitAnswerRequest struct {
	QuestionID     uint   `json:"question_id" binding:"required"`
	SelectedAnswer string `json:"selected_answer" binding:"required"`
}

// @Summary 提交单题答案
// @Description 会话内对一道题作答，重复提交覆盖旧答案
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "会话令牌"
// @Param answer body submitAnswerRequest true "作答"
// @Success 200 {object} util.Response
// @Router /quiz/sessions/{token}/answer [post]
func (c *QuizController) SubmitAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req submitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.QuizService.SubmitAnswer(user.UserID, ctx.Param("token"), req.QuestionID, req.SelectedAnswer)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// @Summary 交卷
// @Description 终结会话并返回成绩；对已终结的会话幂等返回既有成绩
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "会话令牌"
// @Success 200 {object} util.Response
// @Router /quiz/sessions/{token}/finish [post]
func (c *QuizController) FinishSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	resp, err := c.QuizService.FinishSession(user.UserID, ctx.Param("token"))
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// @Summary 查询成绩
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param token path string true "会话令牌"
// @Success 200 {object} util.Response
// @Router /quiz/sessions/{token}/result [get]
func (c *QuizController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	resp, err := c.QuizService.GetResult(user.UserID, ctx.Param("token"))
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// @Summary 测验历史
// @Description 当前学生在某个测验单元上的历次成绩
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "学习单元ID"
// @Success 200 {object} util.Response
// @Router /quiz/subcourses/{id}/history [get]
func (c *QuizController) GetHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	subCourseID, ok := subCourseIDParam(ctx)
	if !ok {
		return
	}

	resp, err := c.QuizService.GetHistory(user.UserID, subCourseID)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}
