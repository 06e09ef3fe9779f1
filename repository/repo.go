package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"live-translation/constant"
	"live-translation/entities"
)

// SessionRepository is the write-through persistence layer behind the
// in-memory session manager. All writes are best-effort from the pipeline's
// point of view; callers log failures and continue.
type SessionRepository interface {
	GetDB() *gorm.DB
	SaveSession(ctx context.Context, session *entities.Session) error
	UpdateSessionStatus(ctx context.Context, id string, status constant.SessionStatus, startedAt, endedAt *time.Time) error
	IncrementErrorCount(ctx context.Context, id string, category constant.ErrorCategory) error
	AppendTranslation(ctx context.Context, record *entities.TranslationRecord) error
	FindSessionById(ctx context.Context, id string) (*entities.Session, error)
	GetSessionHistory(ctx context.Context, sessionID string, limit, offset int) ([]*entities.TranslationRecord, int64, error)
	GetSessionsByImam(ctx context.Context, imamID string, includeEnded bool) ([]*entities.Session, error)
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) SessionRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) SaveSession(ctx context.Context, session *entities.Session) error {
	return r.GetDB().WithContext(ctx).Save(session).Error
}

func (r *repo) UpdateSessionStatus(ctx context.Context, id string, status constant.SessionStatus, startedAt, endedAt *time.Time) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if startedAt != nil {
		updates["started_at"] = startedAt
	}
	if endedAt != nil {
		updates["ended_at"] = endedAt
	}
	return r.GetDB().WithContext(ctx).Model(&entities.Session{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repo) IncrementErrorCount(ctx context.Context, id string, category constant.ErrorCategory) error {
	column := map[constant.ErrorCategory]string{
		constant.ErrorCategoryTranscription:   "transcription_errs",
		constant.ErrorCategoryTranslation:     "translation_errs",
		constant.ErrorCategoryAudioGeneration: "audio_gen_errs",
	}[category]
	if column == "" {
		return nil
	}
	return r.GetDB().WithContext(ctx).Model(&entities.Session{}).Where("id = ?", id).
		Update(column, gorm.Expr(column+" + 1")).Error
}

func (r *repo) AppendTranslation(ctx context.Context, record *entities.TranslationRecord) error {
	return r.GetDB().WithContext(ctx).Create(record).Error
}

func (r *repo) FindSessionById(ctx context.Context, id string) (*entities.Session, error) {
	session := &entities.Session{}
	err := r.GetDB().WithContext(ctx).First(session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repo) GetSessionHistory(ctx context.Context, sessionID string, limit, offset int) ([]*entities.TranslationRecord, int64, error) {
	var total int64
	err := r.GetDB().WithContext(ctx).Model(&entities.TranslationRecord{}).
		Where("session_id = ?", sessionID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var records []*entities.TranslationRecord
	err = r.GetDB().WithContext(ctx).Where("session_id = ?", sessionID).
		Order("timestamp DESC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repo) GetSessionsByImam(ctx context.Context, imamID string, includeEnded bool) ([]*entities.Session, error) {
	q := r.GetDB().WithContext(ctx).Where("imam_id = ?", imamID)
	if !includeEnded {
		q = q.Where("status <> ?", constant.SessionStatusEnded)
	}
	var sessions []*entities.Session
	err := q.Order("created_at DESC").Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.GetDB().Transaction(func(tx *gorm.DB) error {
		err := callback(ctx)
		if err != nil {
			return err
		}
		return nil
	}, opts...)
}
