package service

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore 内存版存储，实现 service 层全部 Store 接口。
// Create 模拟 (student_id, sub_course_id, attempt_number) 唯一索引冲突。
type memStore struct {
	mu          sync.Mutex
	subCourses  map[uint]model.SubCourse
	questions   map[uint][]model.QuizQuestion
	settings    map[uint]model.QuizSettings
	enrollments map[string]map[uint]bool
	progress    map[string]model.SubCourseProgress
	sessions    map[uint]*model.QuizSession
	byToken     map[string]uint
	answers     map[uint]map[uint]model.QuizAnswer
	results     map[uint]model.QuizResult
	nextID      uint

	// 在读取作答前触发，用于构造结算中途的并发时序
	answersHook func()
}

func newMemStore() *memStore {
	return &memStore{
		subCourses:  make(map[uint]model.SubCourse),
		questions:   make(map[uint][]model.QuizQuestion),
		settings:    make(map[uint]model.QuizSettings),
		enrollments: make(map[string]map[uint]bool),
		progress:    make(map[string]model.SubCourseProgress),
		sessions:    make(map[uint]*model.QuizSession),
		byToken:     make(map[string]uint),
		answers:     make(map[uint]map[uint]model.QuizAnswer),
		results:     make(map[uint]model.QuizResult),
	}
}

func progressKey(studentID string, courseID, subCourseID uint) string {
	return fmt.Sprintf("%s|%d|%d", studentID, courseID, subCourseID)
}

// fakeSubCourses / fakeQuestions 拆成独立类型，
// 两个接口的 FindByID 返回类型不同，无法挂在同一个 receiver 上
type fakeSubCourses struct{ st *memStore }

func (f fakeSubCourses) FindByID(id uint) (*model.SubCourse, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	sc, ok := f.st.subCourses[id]
	if !ok {
		return nil, nil
	}
	return &sc, nil
}

type fakeQuestions struct{ st *memStore }

func (f fakeQuestions) ListBySubCourse(subCourseID uint, difficulty *model.Difficulty) ([]model.QuizQuestion, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.QuizQuestion
	for _, q := range f.st.questions[subCourseID] {
		if difficulty == nil || q.Difficulty == *difficulty {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f fakeQuestions) FindByID(id uint) (*model.QuizQuestion, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for _, qs := range f.st.questions {
		for _, q := range qs {
			if q.ID == id {
				return &q, nil
			}
		}
	}
	return nil, util.ErrQuestionNotFound
}

func (m *memStore) GetBySubCourse(subCourseID uint) (*model.QuizSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[subCourseID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) IsEnrolled(studentID string, courseID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enrollments[studentID][courseID], nil
}

func (m *memStore) Find(studentID string, courseID, subCourseID uint) (*model.SubCourseProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[progressKey(studentID, courseID, subCourseID)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) Create(s *model.QuizSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.StudentID == s.StudentID &&
			existing.SubCourseID == s.SubCourseID &&
			existing.AttemptNumber == s.AttemptNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.sessions[s.ID] = &cp
	m.byToken[s.SessionToken] = s.ID
	return nil
}

func (m *memStore) FindByToken(token string) (*model.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byToken[token]
	if !ok {
		return nil, nil
	}
	cp := *m.sessions[id]
	return &cp, nil
}

func (m *memStore) LastAttemptNumber(studentID string, subCourseID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := 0
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.SubCourseID == subCourseID && s.AttemptNumber > last {
			last = s.AttemptNumber
		}
	}
	return last, nil
}

func (m *memStore) CountAttempts(studentID string, subCourseID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.SubCourseID == subCourseID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpsertAnswer(a *model.QuizAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.answers[a.SessionID] == nil {
		m.answers[a.SessionID] = make(map[uint]model.QuizAnswer)
	}
	m.answers[a.SessionID][a.QuestionID] = *a
	return nil
}

func (m *memStore) AnswersBySession(sessionID uint) ([]model.QuizAnswer, error) {
	if m.answersHook != nil {
		m.answersHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.QuizAnswer
	for _, a := range m.answers[sessionID] {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) Finalize(s *model.QuizSession, blanks []model.QuizAnswer, result *model.QuizResult, progress *model.SubCourseProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	if m.answers[s.ID] == nil {
		m.answers[s.ID] = make(map[uint]model.QuizAnswer)
	}
	// 空白行冲突时不覆盖，对应 ON CONFLICT DO NOTHING
	for _, b := range blanks {
		if _, ok := m.answers[s.ID][b.QuestionID]; !ok {
			m.answers[s.ID][b.QuestionID] = b
		}
	}
	m.results[result.SessionID] = *result
	m.progress[progressKey(progress.StudentID, progress.CourseID, progress.SubCourseID)] = *progress
	return nil
}

func (m *memStore) FindBySession(sessionID uint) (*model.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[sessionID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) ListByStudentAndSubCourse(studentID string, subCourseID uint) ([]model.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.QuizResult
	for _, r := range m.results {
		if r.StudentID == studentID && r.SubCourseID == subCourseID {
			out = append(out, r)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].AttemptNumber > out[i].AttemptNumber {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

const (
	testStudent   = "11111111-1111-1111-1111-111111111111"
	testCourseID  = uint(10)
	testSubCourse = uint(1)
)

// makeQuestions 生成 n 道题，正确答案都是 A，难度按 easy/medium/hard 轮转
func makeQuestions(n int) []model.QuizQuestion {
	tiers := []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}
	out := make([]model.QuizQuestion, n)
	for i := 0; i < n; i++ {
		out[i] = model.QuizQuestion{
			BaseModel:     model.BaseModel{ID: uint(i + 1)},
			SubCourseID:   testSubCourse,
			QuestionText:  fmt.Sprintf("问题 %d", i+1),
			OptionA:       fmt.Sprintf("q%d-正确", i+1),
			OptionB:       fmt.Sprintf("q%d-b", i+1),
			OptionC:       fmt.Sprintf("q%d-c", i+1),
			OptionD:       fmt.Sprintf("q%d-d", i+1),
			CorrectAnswer: "A",
			Difficulty:    tiers[i%3],
			Points:        10,
		}
	}
	return out
}

// plainSettings 关闭全部随机性，方便断言
func plainSettings(perAttempt int) model.QuizSettings {
	return model.QuizSettings{
		SubCourseID:            testSubCourse,
		TotalQuestionsInPool:   30,
		QuestionsPerAttempt:    perAttempt,
		TimeLimitMinutes:       30,
		ShuffleQuestions:       false,
		ShuffleOptions:         false,
		ShowResultsImmediately: true,
	}
}

func newTestQuiz(t *testing.T, questionCount int, settings *model.QuizSettings) (*QuizService, *memStore) {
	t.Helper()
	st := newMemStore()
	st.subCourses[testSubCourse] = model.SubCourse{
		BaseModel:   model.BaseModel{ID: testSubCourse},
		CourseID:    testCourseID,
		Title:       "第一章测验",
		ContentType: model.ContentQuiz,
	}
	st.questions[testSubCourse] = makeQuestions(questionCount)
	if settings != nil {
		st.settings[testSubCourse] = *settings
	}
	st.enrollments[testStudent] = map[uint]bool{testCourseID: true}

	scoring := &ScoringService{PassingScore: 0, KeepBestScore: false}
	rng := rand.New(rand.NewSource(42))
	svc := NewQuizService(fakeSubCourses{st}, fakeQuestions{st}, st, st, st, st, st, scoring, rng)
	return svc, st
}

func TestStartSession_CreatesActiveSession(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)

	resp, err := svc.StartSession(testStudent, testSubCourse)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionToken)
	assert.Equal(t, 1, resp.AttemptNumber)
	assert.Equal(t, 5, resp.TotalQuestions)
	assert.Equal(t, 30, resp.TimeLimitMinutes)
	require.Len(t, resp.Questions, 5)
	for _, q := range resp.Questions {
		assert.Len(t, q.Options, 4)
	}

	stored := st.sessions[resp.SessionID]
	require.NotNil(t, stored)
	assert.Equal(t, model.SessionActive, stored.Status)
	assert.NotNil(t, stored.StartTime)

	snapshot, err := stored.Snapshot()
	require.NoError(t, err)
	require.Len(t, snapshot, 5)
	for _, q := range snapshot {
		assert.NotEmpty(t, q.CorrectAnswerKey)
	}
}

func TestStartSession_SubCourseNotQuiz(t *testing.T) {
	svc, st := newTestQuiz(t, 10, nil)
	st.subCourses[2] = model.SubCourse{
		BaseModel:   model.BaseModel{ID: 2},
		CourseID:    testCourseID,
		ContentType: model.ContentVideo,
	}

	_, err := svc.StartSession(testStudent, 2)
	assert.ErrorIs(t, err, util.ErrNotQuizContent)
}

func TestStartSession_SubCourseNotFound(t *testing.T) {
	svc, _ := newTestQuiz(t, 10, nil)

	_, err := svc.StartSession(testStudent, 999)
	assert.ErrorIs(t, err, util.ErrSubCourseNotFound)
}

func TestStartSession_NotEnrolled(t *testing.T) {
	svc, _ := newTestQuiz(t, 10, nil)

	_, err := svc.StartSession("22222222-2222-2222-2222-222222222222", testSubCourse)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestStartSession_InsufficientPool(t *testing.T) {
	// 题池 8 道，默认每次抽 10 道
	svc, st := newTestQuiz(t, 8, nil)

	_, err := svc.StartSession(testStudent, testSubCourse)
	assert.ErrorIs(t, err, util.ErrInsufficientQuestions)
	assert.Empty(t, st.sessions)
}

func TestStartSession_MaxAttemptsEnforced(t *testing.T) {
	max := 2
	s := plainSettings(5)
	s.MaxAttempts = &max
	svc, _ := newTestQuiz(t, 10, &s)

	r1, err := svc.StartSession(testStudent, testSubCourse)
	require.NoError(t, err)
	assert.Equal(t, 1, r1.AttemptNumber)

	r2, err := svc.StartSession(testStudent, testSubCourse)
	require.NoError(t, err)
	assert.Equal(t, 2, r2.AttemptNumber)

	_, err = svc.StartSession(testStudent, testSubCourse)
	assert.ErrorIs(t, err, util.ErrAttemptLimitExceeded)
}

func TestStartSession_SequentialAttemptNumbers(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)

	for want := 1; want <= 3; want++ {
		resp, err := svc.StartSession(testStudent, testSubCourse)
		require.NoError(t, err)
		assert.Equal(t, want, resp.AttemptNumber)
	}
}

func TestStartSession_ConcurrentAttemptNumbersUnique(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)

	const workers = 8
	attempts := make(chan int, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.StartSession(testStudent, testSubCourse)
			if err != nil {
				errs <- err
				return
			}
			attempts <- resp.AttemptNumber
		}()
	}
	wg.Wait()
	close(attempts)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[int]bool)
	for n := range attempts {
		assert.False(t, seen[n], "attempt number %d assigned twice", n)
		seen[n] = true
	}
	for want := 1; want <= workers; want++ {
		assert.True(t, seen[want], "attempt number %d missing", want)
	}
}

func TestDrawQuestions_NoShuffleTakesFirstN(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)

	drawn := svc.drawQuestions(makeQuestions(10), &s)
	require.Len(t, drawn, 5)
	for i, q := range drawn {
		assert.Equal(t, uint(i+1), q.ID)
	}
}

func TestDrawQuestions_DifficultyQuota(t *testing.T) {
	s := plainSettings(6)
	s.ShuffleQuestions = true
	svc, _ := newTestQuiz(t, 12, &s)

	drawn := svc.drawQuestions(makeQuestions(12), &s)
	require.Len(t, drawn, 6)

	byTier := map[model.Difficulty]int{}
	seen := map[uint]bool{}
	for _, q := range drawn {
		byTier[q.Difficulty]++
		assert.False(t, seen[q.ID], "question %d drawn twice", q.ID)
		seen[q.ID] = true
	}
	assert.Equal(t, 2, byTier[model.DifficultyEasy])
	assert.Equal(t, 2, byTier[model.DifficultyMedium])
	assert.Equal(t, 2, byTier[model.DifficultyHard])
}

func TestDrawQuestions_ScarceTierToppedUp(t *testing.T) {
	s := plainSettings(6)
	s.ShuffleQuestions = true
	svc, _ := newTestQuiz(t, 1, &s)

	// 只有 1 道 hard，缺口从其他难度随机补齐
	pool := makeQuestions(9)
	for i := range pool {
		if i < 4 {
			pool[i].Difficulty = model.DifficultyEasy
		} else if i < 8 {
			pool[i].Difficulty = model.DifficultyMedium
		} else {
			pool[i].Difficulty = model.DifficultyHard
		}
	}

	drawn := svc.drawQuestions(pool, &s)
	require.Len(t, drawn, 6)
	seen := map[uint]bool{}
	for _, q := range drawn {
		assert.False(t, seen[q.ID])
		seen[q.ID] = true
	}
}

func TestBuildSnapshot_ShuffledOptionsKeepCorrectKey(t *testing.T) {
	s := plainSettings(5)
	s.ShuffleOptions = true
	svc, _ := newTestQuiz(t, 1, &s)

	questions := makeQuestions(20)
	snapshot := svc.buildSnapshot(questions, &s)
	require.Len(t, snapshot, 20)

	for i, q := range snapshot {
		require.Len(t, q.Options, 4)
		// 展示标签固定 A-D，顺序不变
		for pos, opt := range q.Options {
			assert.Equal(t, model.OptionKeys[pos], opt.Key)
		}
		// 正确答案标签必须指向原始正确文本所在的新位置
		correctText := questions[i].OptionText(questions[i].CorrectAnswer)
		var found bool
		texts := map[string]bool{}
		for _, opt := range q.Options {
			texts[opt.Text] = true
			if opt.Key == q.CorrectAnswerKey {
				assert.Equal(t, correctText, opt.Text)
				found = true
			}
		}
		require.True(t, found)
		// 四个文本齐全，没有重复或丢失
		assert.Len(t, texts, 4)
	}
}

func startPlainSession(t *testing.T, svc *QuizService) *StartQuizResponse {
	t.Helper()
	resp, err := svc.StartSession(testStudent, testSubCourse)
	require.NoError(t, err)
	return resp
}

func TestSubmitAnswer_GradesAgainstSnapshot(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	qid := resp.Questions[0].QuestionID
	ans, err := svc.SubmitAnswer(testStudent, resp.SessionToken, qid, "A")
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect)
	assert.Greater(t, ans.TimeRemainingMinutes, 0.0)

	ans, err = svc.SubmitAnswer(testStudent, resp.SessionToken, resp.Questions[1].QuestionID, "B")
	require.NoError(t, err)
	assert.False(t, ans.IsCorrect)
}

func TestSubmitAnswer_ResubmissionOverwrites(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	qid := resp.Questions[0].QuestionID
	_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, qid, "B")
	require.NoError(t, err)
	ans, err := svc.SubmitAnswer(testStudent, resp.SessionToken, qid, "A")
	require.NoError(t, err)
	assert.True(t, ans.IsCorrect)

	stored := st.answers[resp.SessionID]
	require.Len(t, stored, 1)
	assert.True(t, stored[qid].IsCorrect)
	require.NotNil(t, stored[qid].SelectedAnswer)
	assert.Equal(t, "A", *stored[qid].SelectedAnswer)
}

func TestSubmitAnswer_InvalidOption(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, resp.Questions[0].QuestionID, "E")
	assert.ErrorIs(t, err, util.ErrInvalidOption)
}

func TestSubmitAnswer_QuestionNotInSession(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	// ID 99 不在本次抽到的题目里
	_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, 99, "A")
	assert.ErrorIs(t, err, util.ErrQuestionNotInSession)
}

func TestSubmitAnswer_WrongStudentSeesNotFound(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	_, err := svc.SubmitAnswer("33333333-3333-3333-3333-333333333333", resp.SessionToken, resp.Questions[0].QuestionID, "A")
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func rewindStart(st *memStore, sessionID uint, d time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	past := st.sessions[sessionID].StartTime.Add(-d)
	st.sessions[sessionID].StartTime = &past
}

func TestSubmitAnswer_TimeoutExpiresSession(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, resp.Questions[0].QuestionID, "A")
	require.NoError(t, err)

	rewindStart(st, resp.SessionID, 31*time.Minute)

	_, err = svc.SubmitAnswer(testStudent, resp.SessionToken, resp.Questions[1].QuestionID, "A")
	assert.ErrorIs(t, err, util.ErrSessionExpired)

	// 超时即强制终结：状态 expired、成绩已结算、未答题目补为答错
	stored := st.sessions[resp.SessionID]
	assert.Equal(t, model.SessionExpired, stored.Status)
	require.NotNil(t, stored.EndTime)

	result, ok := st.results[resp.SessionID]
	require.True(t, ok)
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Equal(t, 20, result.FinalScore)
	assert.Len(t, st.answers[resp.SessionID], 5)
}

func TestFinishSession_ScoreRounding(t *testing.T) {
	s := plainSettings(10)
	svc, _ := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	// 10 道答 7 道对，3 道答错
	for i, q := range resp.Questions {
		key := "A"
		if i >= 7 {
			key = "C"
		}
		_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, q.QuestionID, key)
		require.NoError(t, err)
	}

	out, err := svc.FinishSession(testStudent, resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, out.Status)
	assert.Equal(t, 7, out.Result.CorrectAnswers)
	assert.Equal(t, 10, out.Result.TotalQuestions)
	assert.Equal(t, 70, out.Result.FinalScore)
}

func TestFinishSession_RoundsHalfUp(t *testing.T) {
	s := plainSettings(3)
	svc, _ := newTestQuiz(t, 3, &s)
	resp := startPlainSession(t, svc)

	// 2/3 = 66.67 → 67
	for i, q := range resp.Questions {
		key := "A"
		if i == 2 {
			key = "B"
		}
		_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, q.QuestionID, key)
		require.NoError(t, err)
	}

	out, err := svc.FinishSession(testStudent, resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, 67, out.Result.FinalScore)
}

func TestFinishSession_BlanksCountAsIncorrect(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	for _, q := range resp.Questions[:2] {
		_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, q.QuestionID, "A")
		require.NoError(t, err)
	}

	out, err := svc.FinishSession(testStudent, resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Result.CorrectAnswers)
	assert.Equal(t, 40, out.Result.FinalScore)

	// 作答行数与题目数一致，空白补为未选且答错
	stored := st.answers[resp.SessionID]
	require.Len(t, stored, 5)
	blank := 0
	for _, a := range stored {
		if a.SelectedAnswer == nil {
			blank++
			assert.False(t, a.IsCorrect)
		}
	}
	assert.Equal(t, 3, blank)
}

func TestFinishSession_Idempotent(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	for _, q := range resp.Questions {
		_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, q.QuestionID, "A")
		require.NoError(t, err)
	}

	first, err := svc.FinishSession(testStudent, resp.SessionToken)
	require.NoError(t, err)
	second, err := svc.FinishSession(testStudent, resp.SessionToken)
	require.NoError(t, err)

	assert.Equal(t, first.Result.FinalScore, second.Result.FinalScore)
	assert.Equal(t, first.Result.SessionID, second.Result.SessionID)
	assert.Len(t, st.results, 1)
}

func TestFinishSession_ConcurrentSubmitNotLost(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, resp.Questions[0].QuestionID, "A")
	require.NoError(t, err)

	// 让交卷在读完作答后停住，制造提交挤进结算窗口的时序
	inFinish := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	st.answersHook = func() {
		once.Do(func() {
			close(inFinish)
			<-proceed
		})
	}

	finishDone := make(chan error, 1)
	go func() {
		_, err := svc.FinishSession(testStudent, resp.SessionToken)
		finishDone <- err
	}()
	<-inFinish

	// 结算中途的提交必须排队等交卷结束，而不是写入一条不计分的作答
	submitDone := make(chan error, 1)
	go func() {
		_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, resp.Questions[1].QuestionID, "A")
		submitDone <- err
	}()

	select {
	case err := <-submitDone:
		t.Fatalf("submit completed during finalization: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(proceed)
	require.NoError(t, <-finishDone)
	assert.ErrorIs(t, <-submitDone, util.ErrSessionNotActive)

	// 成绩只统计结算前的一道正确作答，空白行补齐其余四题
	result := st.results[resp.SessionID]
	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Equal(t, 20, result.FinalScore)
	assert.Len(t, st.answers[resp.SessionID], 5)
}

func TestFinishSession_AfterTimeoutMarksExpired(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	rewindStart(st, resp.SessionID, 45*time.Minute)

	out, err := svc.FinishSession(testStudent, resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, model.SessionExpired, out.Status)
	assert.Equal(t, 0, out.Result.FinalScore)
}

func TestGetResult_BeforeFinish(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	_, err := svc.GetResult(testStudent, resp.SessionToken)
	assert.ErrorIs(t, err, util.ErrSessionNotActive)
}

func TestGetResult_DetailsControlledBySettings(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, resp.Questions[0].QuestionID, "A")
	require.NoError(t, err)
	_, err = svc.FinishSession(testStudent, resp.SessionToken)
	require.NoError(t, err)

	out, err := svc.GetResult(testStudent, resp.SessionToken)
	require.NoError(t, err)
	require.Len(t, out.Details, 5)
	assert.True(t, out.Details[0].IsCorrect)
	assert.Equal(t, "A", out.Details[0].CorrectAnswerKey)

	// 关闭 show_results_immediately 后不再下发逐题回顾
	hidden := st.settings[testSubCourse]
	hidden.ShowResultsImmediately = false
	st.settings[testSubCourse] = hidden

	out, err = svc.GetResult(testStudent, resp.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, out.Details)
	assert.NotNil(t, out.Result)
}

func TestEndToEnd_ScoreFlowsIntoProgress(t *testing.T) {
	s := plainSettings(5)
	svc, st := newTestQuiz(t, 10, &s)
	resp := startPlainSession(t, svc)

	// 5 道答对 4 道
	for i, q := range resp.Questions {
		key := "A"
		if i == 4 {
			key = "D"
		}
		_, err := svc.SubmitAnswer(testStudent, resp.SessionToken, q.QuestionID, key)
		require.NoError(t, err)
	}

	out, err := svc.FinishSession(testStudent, resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, 80, out.Result.FinalScore)

	p, ok := st.progress[progressKey(testStudent, testCourseID, testSubCourse)]
	require.True(t, ok)
	assert.Equal(t, model.ProgressCompleted, p.Status)
	assert.Equal(t, 100, p.CompletionPercentage)
	require.NotNil(t, p.Score)
	assert.Equal(t, 80.0, *p.Score)
	assert.Equal(t, 1, p.Attempts)
	assert.NotNil(t, p.CompletedAt)
}

func TestGetHistory(t *testing.T) {
	s := plainSettings(5)
	svc, _ := newTestQuiz(t, 10, &s)

	for i := 0; i < 2; i++ {
		resp := startPlainSession(t, svc)
		_, err := svc.FinishSession(testStudent, resp.SessionToken)
		require.NoError(t, err)
	}

	hist, err := svc.GetHistory(testStudent, testSubCourse)
	require.NoError(t, err)
	assert.Equal(t, "第一章测验", hist.QuizTitle)
	require.Len(t, hist.Attempts, 2)
	assert.Equal(t, 2, hist.Attempts[0].AttemptNumber)
	assert.Equal(t, 1, hist.Attempts[1].AttemptNumber)
	assert.Equal(t, 5, hist.Settings.QuestionsPerAttempt)
}

func TestSettingsDefaultsApplied(t *testing.T) {
	// 未配置时套默认值：抽 10 道、60 分钟、不限次数
	svc, _ := newTestQuiz(t, 15, nil)

	resp, err := svc.StartSession(testStudent, testSubCourse)
	require.NoError(t, err)
	assert.Equal(t, 10, resp.TotalQuestions)
	assert.Equal(t, 60, resp.TimeLimitMinutes)
}
