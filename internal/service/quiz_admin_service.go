package service

import (
	"errors"
	"sort"
	"strings"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
)

// QuizAdminService 教师侧的题库与配置管理。读多写少，
// 所有操作先校验单元归属。
type QuizAdminService struct {
	SubCourseRepo *repository.SubCourseRepository
	QuestionRepo  *repository.QuestionRepository
	SettingsRepo  *repository.SettingsRepository
	ResultRepo    *repository.ResultRepository
	UserRepo      *repository.UserRepository
}

func NewQuizAdminService(
	subCourseRepo *repository.SubCourseRepository,
	questionRepo *repository.QuestionRepository,
	settingsRepo *repository.SettingsRepository,
	resultRepo *repository.ResultRepository,
	userRepo *repository.UserRepository,
) *QuizAdminService {
	return &QuizAdminService{
		SubCourseRepo: subCourseRepo,
		QuestionRepo:  questionRepo,
		SettingsRepo:  settingsRepo,
		ResultRepo:    resultRepo,
		UserRepo:      userRepo,
	}
}

func (s *QuizAdminService) ownedQuizSubCourse(subCourseID uint, teacherID string) (*model.SubCourse, error) {
	sc, err := s.SubCourseRepo.FindOwned(subCourseID, teacherID)
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

// GetSettings 返回单元配置，未配置时返回默认值（不落盘）
func (s *QuizAdminService) GetSettings(subCourseID uint, teacherID string) (*model.QuizSettings, error) {
	if _, err := s.ownedQuizSubCourse(subCourseID, teacherID); err != nil {
		return nil, err
	}
	settings, err := s.SettingsRepo.GetBySubCourse(subCourseID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = model.DefaultQuizSettings(subCourseID)
	}
	return settings, nil
}

type SettingsRequest struct {
	TotalQuestionsInPool   int  `json:"totalQuestionsInPool" binding:"required"`
	QuestionsPerAttempt    int  `json:"questionsPerAttempt" binding:"required"`
	TimeLimitMinutes       int  `json:"timeLimitMinutes" binding:"required"`
	MaxAttempts            *int `json:"maxAttempts"`
	ShuffleQuestions       bool `json:"shuffleQuestions"`
	ShuffleOptions         bool `json:"shuffleOptions"`
	ShowResultsImmediately bool `json:"showResultsImmediately"`
}

// 抽题数不得超过题池、时限必须为正、尝试上限设置时至少为 1
func (r *SettingsRequest) validate() error {
	if r.QuestionsPerAttempt < 1 || r.QuestionsPerAttempt > r.TotalQuestionsInPool {
		return errors.New("questionsPerAttempt must be between 1 and totalQuestionsInPool")
	}
	if r.TimeLimitMinutes <= 0 {
		return errors.New("timeLimitMinutes must be positive")
	}
	if r.MaxAttempts != nil && *r.MaxAttempts < 1 {
		return errors.New("maxAttempts must be at least 1 when set")
	}
	return nil
}

func (s *QuizAdminService) UpsertSettings(subCourseID uint, teacherID string, req SettingsRequest) (*model.QuizSettings, error) {
	if _, err := s.ownedQuizSubCourse(subCourseID, teacherID); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	settings := &model.QuizSettings{
		SubCourseID:            subCourseID,
		TotalQuestionsInPool:   req.TotalQuestionsInPool,
		QuestionsPerAttempt:    req.QuestionsPerAttempt,
		TimeLimitMinutes:       req.TimeLimitMinutes,
		MaxAttempts:            req.MaxAttempts,
		ShuffleQuestions:       req.ShuffleQuestions,
		ShuffleOptions:         req.ShuffleOptions,
		ShowResultsImmediately: req.ShowResultsImmediately,
	}
	if err := s.SettingsRepo.Upsert(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

type QuestionStats struct {
	Total  int `json:"total"`
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// ListQuestions 返回题库及各难度档的数量
func (s *QuizAdminService) ListQuestions(subCourseID uint, teacherID string) ([]model.QuizQuestion, *QuestionStats, error) {
	if _, err := s.ownedQuizSubCourse(subCourseID, teacherID); err != nil {
		return nil, nil, err
	}

	questions, err := s.QuestionRepo.ListBySubCourse(subCourseID, nil)
	if err != nil {
		return nil, nil, err
	}

	stats := &QuestionStats{Total: len(questions)}
	for _, q := range questions {
		switch q.Difficulty {
		case model.DifficultyEasy:
			stats.Easy++
		case model.DifficultyMedium:
			stats.Medium++
		case model.DifficultyHard:
			stats.Hard++
		}
	}
	return questions, stats, nil
}

type QuestionRequest struct {
	QuestionText  string           `json:"questionText" binding:"required"`
	OptionA       string           `json:"optionA" binding:"required"`
	OptionB       string           `json:"optionB" binding:"required"`
	OptionC       string           `json:"optionC" binding:"required"`
	OptionD       string           `json:"optionD" binding:"required"`
	CorrectAnswer string           `json:"correctAnswer" binding:"required"`
	Difficulty    model.Difficulty `json:"difficulty" binding:"required"`
	Points        int              `json:"points"`
}

func (r *QuestionRequest) validate() error {
	r.CorrectAnswer = strings.ToUpper(r.CorrectAnswer)
	if !model.IsValidOptionKey(r.CorrectAnswer) {
		return util.ErrInvalidOption
	}
	switch r.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return errors.New("difficulty must be easy, medium, or hard")
	}
	if r.Points == 0 {
		r.Points = 10
	}
	return nil
}

func (s *QuizAdminService) CreateQuestion(subCourseID uint, teacherID string, req QuestionRequest) (*model.QuizQuestion, error) {
	if _, err := s.ownedQuizSubCourse(subCourseID, teacherID); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	q := &model.QuizQuestion{
		SubCourseID:   subCourseID,
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectAnswer: req.CorrectAnswer,
		Difficulty:    req.Difficulty,
		Points:        req.Points,
	}
	if err := s.QuestionRepo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuizAdminService) findOwnedQuestion(questionID uint, teacherID string) (*model.QuizQuestion, error) {
	q, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		return nil, util.ErrQuestionNotFound
	}
	if _, err := s.ownedQuizSubCourse(q.SubCourseID, teacherID); err != nil {
		return nil, util.ErrQuestionNotFound
	}
	return q, nil
}

// UpdateQuestion 修改题干或选项。在途会话持有的是快照副本，不受影响。
func (s *QuizAdminService) UpdateQuestion(questionID uint, teacherID string, req QuestionRequest) (*model.QuizQuestion, error) {
	q, err := s.findOwnedQuestion(questionID, teacherID)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	q.QuestionText = req.QuestionText
	q.OptionA = req.OptionA
	q.OptionB = req.OptionB
	q.OptionC = req.OptionC
	q.OptionD = req.OptionD
	q.CorrectAnswer = req.CorrectAnswer
	q.Difficulty = req.Difficulty
	q.Points = req.Points

	if err := s.QuestionRepo.Update(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuizAdminService) DeleteQuestion(questionID uint, teacherID string) error {
	q, err := s.findOwnedQuestion(questionID, teacherID)
	if err != nil {
		return err
	}
	return s.QuestionRepo.Delete(q.ID)
}

type ResultOverview struct {
	Results []StudentResult `json:"results"`
	Stats   ResultStats     `json:"stats"`
}

type StudentResult struct {
	model.QuizResult
	StudentName  string `json:"studentName"`
	StudentClass string `json:"studentClass"`
}

type ResultStats struct {
	TotalAttempts  int `json:"total_attempts"`
	UniqueStudents int `json:"unique_students"`
	AverageScore   int `json:"average_score"`
}

// ListResults 教师视角的成绩总览：每个学生只保留最新一次尝试，
// 平均分按全部尝试计算。
func (s *QuizAdminService) ListResults(subCourseID uint, teacherID string) (*ResultOverview, error) {
	if _, err := s.ownedQuizSubCourse(subCourseID, teacherID); err != nil {
		return nil, err
	}

	results, err := s.ResultRepo.ListBySubCourse(subCourseID)
	if err != nil {
		return nil, err
	}

	latest := map[string]model.QuizResult{}
	sum := 0
	for _, r := range results {
		sum += r.FinalScore
		if prev, ok := latest[r.StudentID]; !ok || r.AttemptNumber > prev.AttemptNumber {
			latest[r.StudentID] = r
		}
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	users, err := s.UserRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]model.User, len(users))
	for _, u := range users {
		names[u.ID] = u
	}

	overview := &ResultOverview{
		Stats: ResultStats{
			TotalAttempts:  len(results),
			UniqueStudents: len(latest),
		},
	}
	if len(results) > 0 {
		overview.Stats.AverageScore = sum / len(results)
	}
	for id, r := range latest {
		sr := StudentResult{QuizResult: r}
		if u, ok := names[id]; ok {
			sr.StudentName = u.FullName
			sr.StudentClass = u.Class
		}
		overview.Results = append(overview.Results, sr)
	}
	sortStudentResults(overview.Results)
	return overview, nil
}

// sortStudentResults 名单按姓名排序，同名按学生ID，map 遍历顺序不进响应
func sortStudentResults(results []StudentResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].StudentName != results[j].StudentName {
			return results[i].StudentName < results[j].StudentName
		}
		return results[i].StudentID < results[j].StudentID
	})
}
