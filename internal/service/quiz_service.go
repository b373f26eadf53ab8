package service

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// QuizService 管理一次测验尝试的状态机：
// pending → active → {completed, expired}。
// 超时不靠后台任务清扫，而是在下一次访问会话时惰性判定；
// 从未被再次访问的超时会话会一直保持 active（已知限制）。
type QuizService struct {
	SubCourses  SubCourseStore
	Questions   QuestionStore
	Settings    SettingsStore
	Enrollments EnrollmentStore
	Progress    ProgressStore
	Sessions    SessionStore
	Results     ResultStore
	Scoring     *ScoringService

	rng   *rand.Rand
	rngMu sync.Mutex

	attemptLocks *keyedMutex
	// sessionLocks 串行化同一会话上的作答与交卷，
	// 结算不会漏掉与之并发的提交
	sessionLocks *keyedMutex
}

func NewQuizService(
	subCourses SubCourseStore,
	questions QuestionStore,
	settings SettingsStore,
	enrollments EnrollmentStore,
	progress ProgressStore,
	sessions SessionStore,
	results ResultStore,
	scoring *ScoringService,
	rng *rand.Rand,
) *QuizService {
	return &QuizService{
		SubCourses:   subCourses,
		Questions:    questions,
		Settings:     settings,
		Enrollments:  enrollments,
		Progress:     progress,
		Sessions:     sessions,
		Results:      results,
		Scoring:      scoring,
		rng:          rng,
		attemptLocks: newKeyedMutex(),
		sessionLocks: newKeyedMutex(),
	}
}

// StudentQuestion 下发给学生的题面，不含正确答案
type StudentQuestion struct {
	QuestionID   uint                   `json:"question_id"`
	QuestionText string                 `json:"question_text"`
	Options      []model.AssignedOption `json:"options"`
	Difficulty   model.Difficulty       `json:"difficulty_level"`
	Points       int                    `json:"points"`
}

type StartQuizResponse struct {
	SessionID        uint              `json:"session_id"`
	SessionToken     string            `json:"session_token"`
	Questions        []StudentQuestion `json:"questions"`
	TimeLimitMinutes int               `json:"time_limit_minutes"`
	TotalQuestions   int               `json:"total_questions"`
	AttemptNumber    int               `json:"attempt_number"`
}

type SubmitAnswerResponse struct {
	QuestionID           uint      `json:"question_id"`
	SelectedAnswer       string    `json:"selected_answer"`
	IsCorrect            bool      `json:"is_correct"`
	AnsweredAt           time.Time `json:"answered_at"`
	TimeRemainingMinutes float64   `json:"time_remaining_minutes"`
}

// AnswerDetail 终态会话的逐题回顾，仅在 show_results_immediately 时下发
type AnswerDetail struct {
	QuestionText     string           `json:"question_text"`
	SelectedAnswer   *string          `json:"selected_answer,omitempty"`
	CorrectAnswerKey string           `json:"correct_answer_key"`
	IsCorrect        bool             `json:"is_correct"`
	Difficulty       model.Difficulty `json:"difficulty_level"`
}

type QuizResultResponse struct {
	Result  *model.QuizResult   `json:"result"`
	Status  model.SessionStatus `json:"status"`
	Details []AnswerDetail      `json:"detailed_results,omitempty"`
}

// settingsOrDefault 无配置记录时套用默认值（题池 30、每次 10、60 分钟、
// 不限次数、打乱开启）。
func (s *QuizService) settingsOrDefault(subCourseID uint) (*model.QuizSettings, error) {
	settings, err := s.Settings.GetBySubCourse(subCourseID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = model.DefaultQuizSettings(subCourseID)
	}
	return settings, nil
}

// quizSubCourse 解析并校验测验单元
func (s *QuizService) quizSubCourse(subCourseID uint) (*model.SubCourse, error) {
	sc, err := s.SubCourses.FindByID(subCourseID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, util.ErrSubCourseNotFound
	}
	if sc.ContentType != model.ContentQuiz {
		return nil, util.ErrNotQuizContent
	}
	return sc, nil
}

// StartSession 为学生开启一次新的测验尝试。
// 前置条件：已选课、未达尝试上限、题池足够抽题。
// 同一 (student, subCourse) 的开考在进程内排队，存储层的
// (student_id, sub_course_id, attempt_number) 唯一索引兜底并发实例。
func (s *QuizService) StartSession(studentID string, subCourseID uint) (*StartQuizResponse, error) {
	sc, err := s.quizSubCourse(subCourseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.Enrollments.IsEnrolled(studentID, sc.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ErrNotEnrolled
	}

	settings, err := s.settingsOrDefault(subCourseID)
	if err != nil {
		return nil, err
	}

	lockKey := fmt.Sprintf("%s|%d", studentID, subCourseID)
	s.attemptLocks.Lock(lockKey)
	defer s.attemptLocks.Unlock(lockKey)

	if settings.MaxAttempts != nil {
		count, err := s.Sessions.CountAttempts(studentID, subCourseID)
		if err != nil {
			return nil, err
		}
		if count >= int64(*settings.MaxAttempts) {
			return nil, util.ErrAttemptLimitExceeded
		}
	}

	pool, err := s.Questions.ListBySubCourse(subCourseID, nil)
	if err != nil {
		return nil, err
	}
	if len(pool) < settings.QuestionsPerAttempt {
		return nil, util.ErrInsufficientQuestions
	}

	drawn := s.drawQuestions(pool, settings)
	snapshot := s.buildSnapshot(drawn, settings)

	token, err := util.GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &model.QuizSession{
		StudentID:        studentID,
		SubCourseID:      subCourseID,
		SessionToken:     token,
		TimeLimitMinutes: settings.TimeLimitMinutes,
		Status:           model.SessionActive,
		StartTime:        &now,
	}
	if err := session.SetSnapshot(snapshot); err != nil {
		return nil, err
	}

	// 唯一索引冲突说明有并发实例抢先拿走了序号，重算一次
	for attempt := 0; attempt < 2; attempt++ {
		last, err := s.Sessions.LastAttemptNumber(studentID, subCourseID)
		if err != nil {
			return nil, err
		}
		session.AttemptNumber = last + 1
		err = s.Sessions.Create(session)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == 1 {
			return nil, err
		}
	}

	monitoring.QuizSessionsStarted.Inc()

	questions := make([]StudentQuestion, len(snapshot))
	for i, q := range snapshot {
		questions[i] = StudentQuestion{
			QuestionID:   q.QuestionID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Difficulty:   q.Difficulty,
			Points:       q.Points,
		}
	}

	return &StartQuizResponse{
		SessionID:        session.ID,
		SessionToken:     token,
		Questions:        questions,
		TimeLimitMinutes: settings.TimeLimitMinutes,
		TotalQuestions:   session.TotalQuestions,
		AttemptNumber:    session.AttemptNumber,
	}, nil
}

// drawQuestions 抽取本次呈现的题目。打乱开启时按难度占比抽取并洗牌；
// 关闭时取创建顺序的前 N 题。
func (s *QuizService) drawQuestions(pool []model.QuizQuestion, settings *model.QuizSettings) []model.QuizQuestion {
	n := settings.QuestionsPerAttempt
	if !settings.ShuffleQuestions {
		return pool[:n]
	}

	byTier := map[model.Difficulty][]model.QuizQuestion{}
	for _, q := range pool {
		byTier[q.Difficulty] = append(byTier[q.Difficulty], q)
	}

	// 每个难度档平均分配，余数优先给 easy、medium
	per := n / 3
	rem := n % 3
	quota := map[model.Difficulty]int{
		model.DifficultyEasy:   per,
		model.DifficultyMedium: per,
		model.DifficultyHard:   per,
	}
	if rem > 0 {
		quota[model.DifficultyEasy]++
	}
	if rem > 1 {
		quota[model.DifficultyMedium]++
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	selected := make([]model.QuizQuestion, 0, n)
	taken := map[uint]bool{}
	for _, tier := range []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard} {
		candidates := byTier[tier]
		want := quota[tier]
		if want > len(candidates) {
			want = len(candidates)
		}
		for _, idx := range s.rng.Perm(len(candidates))[:want] {
			selected = append(selected, candidates[idx])
			taken[candidates[idx].ID] = true
		}
	}

	// 某档题量不足时从剩余题目随机补齐
	if len(selected) < n {
		var leftovers []model.QuizQuestion
		for _, q := range pool {
			if !taken[q.ID] {
				leftovers = append(leftovers, q)
			}
		}
		for _, idx := range s.rng.Perm(len(leftovers)) {
			if len(selected) >= n {
				break
			}
			selected = append(selected, leftovers[idx])
		}
	}

	s.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	return selected
}

// buildSnapshot 冻结题目快照。打乱选项时重排四个选项的位置，
// 并记录正确答案落到的新标签，判分只看快照，后续题库编辑不影响在途会话。
func (s *QuizService) buildSnapshot(drawn []model.QuizQuestion, settings *model.QuizSettings) []model.AssignedQuestion {
	snapshot := make([]model.AssignedQuestion, len(drawn))
	for i, q := range drawn {
		assigned := model.AssignedQuestion{
			QuestionID:   q.ID,
			QuestionText: q.QuestionText,
			Difficulty:   q.Difficulty,
			Points:       q.Points,
		}

		order := []int{0, 1, 2, 3}
		if settings.ShuffleOptions {
			s.rngMu.Lock()
			order = s.rng.Perm(4)
			s.rngMu.Unlock()
		}

		options := make([]model.AssignedOption, 4)
		correctKey := ""
		for pos, orig := range order {
			key := model.OptionKeys[pos]
			origKey := model.OptionKeys[orig]
			options[pos] = model.AssignedOption{Key: key, Text: q.OptionText(origKey)}
			if origKey == q.CorrectAnswer {
				correctKey = key
			}
		}

		assigned.Options = options
		assigned.CorrectAnswerKey = correctKey
		snapshot[i] = assigned
	}
	return snapshot
}

// activeSession 按令牌取回属于该学生的会话并做惰性超时判定。
// 已超时的会话先用既有作答强制终结为 expired，再向调用方报告超时。
func (s *QuizService) activeSession(studentID, token string, now time.Time) (*model.QuizSession, error) {
	session, err := s.Sessions.FindByToken(token)
	if err != nil {
		return nil, err
	}
	if session == nil || session.StudentID != studentID {
		return nil, util.ErrSessionNotFound
	}
	if session.IsTerminal() {
		return session, util.ErrSessionNotActive
	}
	if session.TimedOut(now) {
		if _, err := s.finalize(session, model.SessionExpired, now); err != nil {
			return nil, err
		}
		return session, util.ErrSessionExpired
	}
	return session, nil
}

// SubmitAnswer 记录一道题的作答，同题重复提交覆盖旧答案。
func (s *QuizService) SubmitAnswer(studentID, token string, questionID uint, selected string) (*SubmitAnswerResponse, error) {
	if !model.IsValidOptionKey(selected) {
		return nil, util.ErrInvalidOption
	}

	s.sessionLocks.Lock(token)
	defer s.sessionLocks.Unlock(token)

	now := time.Now()
	session, err := s.activeSession(studentID, token, now)
	if err != nil {
		return nil, err
	}

	snapshot, err := session.Snapshot()
	if err != nil {
		return nil, err
	}

	var assigned *model.AssignedQuestion
	for i := range snapshot {
		if snapshot[i].QuestionID == questionID {
			assigned = &snapshot[i]
			break
		}
	}
	if assigned == nil {
		return nil, util.ErrQuestionNotInSession
	}

	answer := &model.QuizAnswer{
		SessionID:      session.ID,
		QuestionID:     questionID,
		SelectedAnswer: &selected,
		IsCorrect:      selected == assigned.CorrectAnswerKey,
		AnsweredAt:     now,
	}
	if err := s.Sessions.UpsertAnswer(answer); err != nil {
		return nil, err
	}

	elapsed := now.Sub(*session.StartTime).Minutes()
	return &SubmitAnswerResponse{
		QuestionID:           questionID,
		SelectedAnswer:       selected,
		IsCorrect:            answer.IsCorrect,
		AnsweredAt:           now,
		TimeRemainingMinutes: math.Max(0, float64(session.TimeLimitMinutes)-elapsed),
	}, nil
}

// FinishSession 终结会话并返回成绩单。对已终结的会话幂等：
// 返回既有成绩单而不是报错，也不会产生第二份成绩。
func (s *QuizService) FinishSession(studentID, token string) (*QuizResultResponse, error) {
	s.sessionLocks.Lock(token)
	defer s.sessionLocks.Unlock(token)

	now := time.Now()
	session, err := s.Sessions.FindByToken(token)
	if err != nil {
		return nil, err
	}
	if session == nil || session.StudentID != studentID {
		return nil, util.ErrSessionNotFound
	}

	if session.IsTerminal() {
		result, err := s.Results.FindBySession(session.ID)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, fmt.Errorf("session %d is %s but has no result", session.ID, session.Status)
		}
		return s.resultResponse(session, result)
	}

	status := model.SessionCompleted
	if session.TimedOut(now) {
		status = model.SessionExpired
	}

	result, err := s.finalize(session, status, now)
	if err != nil {
		return nil, err
	}
	return s.resultResponse(session, result)
}

// finalize 把会话收敛到终态：未作答的题按答错计入空白行，
// 算出 round(100*correct/total)，写入成绩单并更新进度 —— 成绩单与
// 进度在同一事务内提交，失败则一起回滚。
func (s *QuizService) finalize(session *model.QuizSession, status model.SessionStatus, now time.Time) (*model.QuizResult, error) {
	sc, err := s.SubCourses.FindByID(session.SubCourseID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, util.ErrSubCourseNotFound
	}

	snapshot, err := session.Snapshot()
	if err != nil {
		return nil, err
	}

	answers, err := s.Sessions.AnswersBySession(session.ID)
	if err != nil {
		return nil, err
	}
	answered := make(map[uint]model.QuizAnswer, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = a
	}

	correct := 0
	var blanks []model.QuizAnswer
	for _, q := range snapshot {
		a, ok := answered[q.QuestionID]
		if !ok {
			blanks = append(blanks, model.QuizAnswer{
				SessionID:  session.ID,
				QuestionID: q.QuestionID,
				IsCorrect:  false,
				AnsweredAt: now,
			})
			continue
		}
		if a.IsCorrect {
			correct++
		}
	}

	total := session.TotalQuestions
	finalScore := int(math.Round(100 * float64(correct) / float64(total)))
	timeTaken := int(math.Round(now.Sub(*session.StartTime).Minutes()))

	session.Status = status
	session.EndTime = &now

	result := &model.QuizResult{
		SessionID:        session.ID,
		StudentID:        session.StudentID,
		SubCourseID:      session.SubCourseID,
		TotalQuestions:   total,
		CorrectAnswers:   correct,
		FinalScore:       finalScore,
		TimeTakenMinutes: timeTaken,
		AttemptNumber:    session.AttemptNumber,
		CompletedAt:      now,
	}

	existing, err := s.Progress.Find(session.StudentID, sc.CourseID, session.SubCourseID)
	if err != nil {
		return nil, err
	}
	progress := s.Scoring.ApplyResult(existing, session.StudentID, sc.CourseID, session.SubCourseID, result, now)

	if err := s.Sessions.Finalize(session, blanks, result, progress); err != nil {
		return nil, err
	}

	monitoring.QuizSessionsFinished.WithLabelValues(string(status)).Inc()
	monitoring.QuizScoreHistogram.Observe(float64(finalScore))

	return result, nil
}

// GetResult 按令牌查询终态会话的成绩单
func (s *QuizService) GetResult(studentID, token string) (*QuizResultResponse, error) {
	session, err := s.Sessions.FindByToken(token)
	if err != nil {
		return nil, err
	}
	if session == nil || session.StudentID != studentID {
		return nil, util.ErrSessionNotFound
	}
	if !session.IsTerminal() {
		return nil, util.ErrSessionNotActive
	}

	result, err := s.Results.FindBySession(session.ID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, util.ErrResultNotFound
	}
	return s.resultResponse(session, result)
}

// resultResponse 组装成绩响应；逐题回顾受 show_results_immediately 控制
func (s *QuizService) resultResponse(session *model.QuizSession, result *model.QuizResult) (*QuizResultResponse, error) {
	resp := &QuizResultResponse{
		Result: result,
		Status: session.Status,
	}

	settings, err := s.settingsOrDefault(session.SubCourseID)
	if err != nil {
		return nil, err
	}
	if !settings.ShowResultsImmediately {
		return resp, nil
	}

	snapshot, err := session.Snapshot()
	if err != nil {
		return nil, err
	}
	answers, err := s.Sessions.AnswersBySession(session.ID)
	if err != nil {
		return nil, err
	}
	answered := make(map[uint]model.QuizAnswer, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = a
	}

	details := make([]AnswerDetail, len(snapshot))
	for i, q := range snapshot {
		d := AnswerDetail{
			QuestionText:     q.QuestionText,
			CorrectAnswerKey: q.CorrectAnswerKey,
			Difficulty:       q.Difficulty,
		}
		if a, ok := answered[q.QuestionID]; ok {
			d.SelectedAnswer = a.SelectedAnswer
			d.IsCorrect = a.IsCorrect
		}
		details[i] = d
	}
	resp.Details = details
	return resp, nil
}

type QuizHistoryResponse struct {
	QuizTitle string             `json:"quiz_title"`
	Attempts  []model.QuizResult `json:"attempts"`
	Settings  HistorySettings    `json:"settings"`
}

type HistorySettings struct {
	MaxAttempts         *int `json:"max_attempts,omitempty"`
	QuestionsPerAttempt int  `json:"questions_per_attempt"`
	TimeLimitMinutes    int  `json:"time_limit_minutes"`
}

// GetHistory 返回学生在某个测验单元上的历次成绩
func (s *QuizService) GetHistory(studentID string, subCourseID uint) (*QuizHistoryResponse, error) {
	sc, err := s.quizSubCourse(subCourseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.Enrollments.IsEnrolled(studentID, sc.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ErrNotEnrolled
	}

	results, err := s.Results.ListByStudentAndSubCourse(studentID, subCourseID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settingsOrDefault(subCourseID)
	if err != nil {
		return nil, err
	}

	return &QuizHistoryResponse{
		QuizTitle: sc.Title,
		Attempts:  results,
		Settings: HistorySettings{
			MaxAttempts:         settings.MaxAttempts,
			QuestionsPerAttempt: settings.QuestionsPerAttempt,
			TimeLimitMinutes:    settings.TimeLimitMinutes,
		},
	}, nil
}
