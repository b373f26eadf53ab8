package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lms_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewSessionRepository(db *gorm.DB, rdb *redis.Client) *SessionRepository {
	return &SessionRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func sessionCacheKey(token string) string {
	return fmt.Sprintf("quiz:session:%s", token)
}

// cachedSession 缓存专用包装。模型上的快照字段标记 json:"-"（不下发给
// 客户端），缓存副本必须显式带上，否则命中后无法判分。
type cachedSession struct {
	model.QuizSession
	QuestionsAssigned string `json:"questionsAssigned"`
}

func marshalCachedSession(s *model.QuizSession) ([]byte, error) {
	return json.Marshal(cachedSession{
		QuizSession:       *s,
		QuestionsAssigned: s.QuestionsAssigned,
	})
}

func unmarshalCachedSession(raw []byte) (*model.QuizSession, error) {
	var c cachedSession
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.QuestionsAssigned == "" {
		return nil, errors.New("cached session missing question snapshot")
	}
	c.QuizSession.QuestionsAssigned = c.QuestionsAssigned
	return &c.QuizSession, nil
}

func (r *SessionRepository) Create(s *model.QuizSession) error {
	if err := r.DB.Create(s).Error; err != nil {
		return err
	}
	r.cacheSession(s)
	return nil
}

// FindByToken 先查 Redis，未命中回落到数据库并回填缓存
func (r *SessionRepository) FindByToken(token string) (*model.QuizSession, error) {
	if r.Redis != nil {
		if raw, err := r.Redis.Get(r.ctx, sessionCacheKey(token)).Result(); err == nil {
			if cached, err := unmarshalCachedSession([]byte(raw)); err == nil {
				return cached, nil
			}
			// 缓存内容不完整时当作未命中，回源后重新回填
		}
	}

	var s model.QuizSession
	err := r.DB.Where("session_token = ?", token).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cacheSession(&s)
	return &s, nil
}

// cacheSession 只缓存进行中的会话，TTL 为时限加少量余量；
// 终态会话直接失效，避免读到过期的 active 状态。
func (r *SessionRepository) cacheSession(s *model.QuizSession) {
	if r.Redis == nil {
		return
	}
	if s.IsTerminal() {
		r.Redis.Del(r.ctx, sessionCacheKey(s.SessionToken))
		return
	}
	raw, err := marshalCachedSession(s)
	if err != nil {
		return
	}
	ttl := time.Duration(s.TimeLimitMinutes)*time.Minute + 5*time.Minute
	r.Redis.Set(r.ctx, sessionCacheKey(s.SessionToken), raw, ttl)
}

func (r *SessionRepository) LastAttemptNumber(studentID string, subCourseID uint) (int, error) {
	var last int
	err := r.DB.Model(&model.QuizSession{}).
		Where("student_id = ? AND sub_course_id = ?", studentID, subCourseID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&last).Error
	return last, err
}

func (r *SessionRepository) CountAttempts(studentID string, subCourseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizSession{}).
		Where("student_id = ? AND sub_course_id = ?", studentID, subCourseID).
		Count(&count).Error
	return count, err
}

// UpsertAnswer (session, question) 唯一，重复提交时覆盖，依赖存储层
// 的原子 upsert 避免读改写竞争。
func (r *SessionRepository) UpsertAnswer(a *model.QuizAnswer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"selected_answer",
			"is_correct",
			"answered_at",
			"updated_at",
		}),
	}).Create(a).Error
}

func (r *SessionRepository) AnswersBySession(sessionID uint) ([]model.QuizAnswer, error) {
	var answers []model.QuizAnswer
	err := r.DB.Where("session_id = ?", sessionID).Find(&answers).Error
	return answers, err
}

// Finalize 在单个事务里落盘终态会话、未作答空白、成绩单和进度，
// 任何一步失败全部回滚。
func (r *SessionRepository) Finalize(s *model.QuizSession, blanks []model.QuizAnswer, result *model.QuizResult, progress *model.SubCourseProgress) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(s).Error; err != nil {
			return err
		}
		if len(blanks) > 0 {
			// 空白行只在没有迟到的提交时写入
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
				DoNothing: true,
			}).Create(&blanks).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(result).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "course_id"}, {Name: "sub_course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"score",
				"completion_percentage",
				"time_spent_seconds",
				"attempts",
				"started_at",
				"completed_at",
				"last_accessed_at",
				"updated_at",
			}),
		}).Create(progress).Error
	})
	if err != nil {
		return err
	}
	r.cacheSession(s)
	return nil
}
