package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"live-translation/config"
	"live-translation/constant"
	"live-translation/dto"
	"live-translation/entities"
	"live-translation/repository"
)

const defaultMaxWorshippers = 100

// Worshipper is one live roster entry: a connected listener and their chosen
// target language.
type Worshipper struct {
	UserID             string
	ConnectionID       string
	TargetLanguage     string
	TargetLanguageName string
	JoinedAt           time.Time
}

// session is the in-memory state of one live translation session. It is only
// ever touched while the manager's lock is held.
type session struct {
	ID                 string
	ImamID             string
	ImamName           string
	ImamConnectionID   string
	SourceLanguage     string
	SourceLanguageName string
	Title              string
	Description        string
	passwordHash       string
	Status             constant.SessionStatus
	Settings           dto.SessionSettings
	CreatedAt          time.Time
	StartedAt          *time.Time
	EndedAt            *time.Time
	history            []dto.TranslationRecord
	roster             map[string]Worshipper // keyed by connection ID
	errorCounts        map[constant.ErrorCategory]int
}

// PipelineView is the snapshot the orchestrator reads at the start of a
// cycle. Roster data is read separately and fresh at fan-out time.
type PipelineView struct {
	ID                 string
	Status             constant.SessionStatus
	SourceLanguage     string
	SourceLanguageName string
	ImamConnectionID   string
	AudioQuality       constant.AudioQuality
}

// SessionManager is the single source of truth for session existence,
// membership, history and error counters. All mutations are single-step
// operations under the lock; the lock is never held across I/O. Repository
// writes are write-through and best-effort.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	repo     repository.SessionRepository
	validate *validator.Validate
	limits   config.Session
}

func NewSessionManager(repo repository.SessionRepository, limits config.Session) *SessionManager {
	if limits.DefaultMaxWorshippers <= 0 {
		limits.DefaultMaxWorshippers = defaultMaxWorshippers
	}
	if limits.MaxWorshippersCeiling <= 0 {
		limits.MaxWorshippersCeiling = 10000
	}
	return &SessionManager{
		sessions: make(map[string]*session),
		repo:     repo,
		validate: validator.New(),
		limits:   limits,
	}
}

// CreateSession validates the options, hashes the password and stores a new
// pending session.
func (m *SessionManager) CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*dto.SessionView, error) {
	if req.Settings.MaxWorshippers == 0 {
		req.Settings.MaxWorshippers = m.limits.DefaultMaxWorshippers
	}
	if req.Settings.AudioQuality == "" {
		req.Settings.AudioQuality = constant.AudioQualityStandard
	}
	if err := m.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if req.Settings.MaxWorshippers > m.limits.MaxWorshippersCeiling {
		return nil, fmt.Errorf("%w: maxWorshippers above ceiling %d", ErrValidation, m.limits.MaxWorshippersCeiling)
	}

	var passwordHash string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = string(hash)
	}

	s := &session{
		ID:                 uuid.NewString(),
		ImamID:             req.ImamID,
		ImamName:           req.ImamName,
		SourceLanguage:     req.SourceLanguage,
		SourceLanguageName: req.SourceLanguageName,
		Title:              req.Title,
		Description:        req.Description,
		passwordHash:       passwordHash,
		Status:             constant.SessionStatusPending,
		Settings:           req.Settings,
		CreatedAt:          time.Now().UTC(),
		roster:             make(map[string]Worshipper),
		errorCounts:        make(map[constant.ErrorCategory]int),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	view := s.view()
	entity := s.toEntity()
	m.mu.Unlock()

	m.persist(ctx, s.ID, "save session", func() error {
		return m.repo.SaveSession(ctx, entity)
	})

	return view, nil
}

// GetSession returns the sanitized view, or nil when the session is unknown.
// Absence is not an error.
func (m *SessionManager) GetSession(sessionID string) *dto.SessionView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return s.view()
}

// PipelineSnapshot returns the fields the orchestrator needs to validate and
// run a cycle, or nil when the session is unknown.
func (m *SessionManager) PipelineSnapshot(sessionID string) *PipelineView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return &PipelineView{
		ID:                 s.ID,
		Status:             s.Status,
		SourceLanguage:     s.SourceLanguage,
		SourceLanguageName: s.SourceLanguageName,
		ImamConnectionID:   s.ImamConnectionID,
		AudioQuality:       s.Settings.AudioQuality,
	}
}

// JoinSession checks the password and capacity, then upserts the roster
// entry for the connection.
func (m *SessionManager) JoinSession(ctx context.Context, sessionID, connectionID string, req dto.JoinSessionRequest) (*dto.SessionView, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	var hash string
	var status constant.SessionStatus
	if ok {
		hash = s.passwordHash
		status = s.Status
	}
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if status == constant.SessionStatusEnded {
		return nil, ErrSessionEnded
	}
	if hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
			return nil, ErrPasswordMismatch
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok = m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Status == constant.SessionStatusEnded {
		return nil, ErrSessionEnded
	}
	if _, already := s.roster[connectionID]; !already && len(s.roster) >= s.Settings.MaxWorshippers {
		return nil, ErrSessionFull
	}
	s.roster[connectionID] = Worshipper{
		UserID:             req.UserID,
		ConnectionID:       connectionID,
		TargetLanguage:     req.TargetLanguage,
		TargetLanguageName: req.TargetLanguageName,
		JoinedAt:           time.Now().UTC(),
	}
	return s.view(), nil
}

// ValidateJoin runs the join checks (existence, status, password, capacity)
// without touching the roster. The REST join contract answers with the
// sanitized session and points the caller at the event stream; the roster
// entry is created when the stream attaches.
func (m *SessionManager) ValidateJoin(sessionID string, req dto.JoinSessionRequest) (*dto.SessionView, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	var hash string
	var status constant.SessionStatus
	var capacity, occupied int
	if ok {
		hash = s.passwordHash
		status = s.Status
		capacity = s.Settings.MaxWorshippers
		occupied = len(s.roster)
	}
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if status == constant.SessionStatusEnded {
		return nil, ErrSessionEnded
	}
	if hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
			return nil, ErrPasswordMismatch
		}
	}
	if occupied >= capacity {
		return nil, ErrSessionFull
	}
	return m.GetSession(sessionID), nil
}

// RemoveWorshipper removes the matching roster entry. Idempotent: removing an
// absent entry is a successful no-op. An empty connectionID removes every
// connection the user holds.
func (m *SessionManager) RemoveWorshipper(sessionID, userID, connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	if connectionID != "" {
		if w, present := s.roster[connectionID]; present && w.UserID == userID {
			delete(s.roster, connectionID)
		}
		return
	}
	for id, w := range s.roster {
		if w.UserID == userID {
			delete(s.roster, id)
		}
	}
}

// UpdateWorshipperLanguage changes a connected worshipper's target language
// in place, without leaving the session.
func (m *SessionManager) UpdateWorshipperLanguage(sessionID, connectionID, language, languageName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	w, present := s.roster[connectionID]
	if !present {
		return ErrSessionNotFound
	}
	w.TargetLanguage = language
	w.TargetLanguageName = languageName
	s.roster[connectionID] = w
	return nil
}

// SetImamConnection records the speaker's live connection, used for
// speaker-only error events.
func (m *SessionManager) SetImamConnection(sessionID, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	s.ImamConnectionID = connectionID
	return nil
}

// ClearImamConnection drops the speaker connection when its stream
// disconnects. Cleared only if connectionID is still the registered one, so
// a reconnect that already replaced it is left alone.
func (m *SessionManager) ClearImamConnection(sessionID, connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	if s.ImamConnectionID == connectionID {
		s.ImamConnectionID = ""
	}
}

// GetActiveWorshippers returns a snapshot of the live roster, possibly empty.
func (m *SessionManager) GetActiveWorshippers(sessionID string) []Worshipper {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]Worshipper, 0, len(s.roster))
	for _, w := range s.roster {
		out = append(out, w)
	}
	return out
}

// DistinctLanguages returns the sorted set of target languages currently
// requested by the roster. Fan-out work is sized by this set, not by the
// number of worshippers.
func (m *SessionManager) DistinctLanguages(sessionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(s.roster))
	for _, w := range s.roster {
		seen[w.TargetLanguage] = struct{}{}
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// AddTranslation appends a record to the session history. Appends to an
// ended session are rejected so history stays immutable after the end;
// appends to an unknown session report not-found.
func (m *SessionManager) AddTranslation(ctx context.Context, sessionID string, record dto.TranslationRecord) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if s.Status != constant.SessionStatusActive {
		m.mu.Unlock()
		if s.Status == constant.SessionStatusEnded {
			return ErrSessionEnded
		}
		return ErrSessionNotActive
	}
	s.history = append(s.history, record)
	m.mu.Unlock()

	translations, err := json.Marshal(record.Translations)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("failed to encode translations for persistence")
		return nil
	}
	m.persist(ctx, sessionID, "append translation", func() error {
		return m.repo.AppendTranslation(ctx, &entities.TranslationRecord{
			ID:                      record.ID,
			SessionID:               sessionID,
			OriginalText:            record.OriginalText,
			SourceLanguage:          record.SourceLanguage,
			TranscriptionConfidence: record.TranscriptionConfidence,
			ProcessingTimeMs:        record.ProcessingTimeMs,
			Translations:            translations,
			Timestamp:               record.Timestamp,
		})
	})
	return nil
}

// IncrementError bumps the named counter, creating it lazily. Best-effort
// side channel: it never fails the caller.
func (m *SessionManager) IncrementError(ctx context.Context, sessionID string, category constant.ErrorCategory) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		s.errorCounts[category]++
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	m.persist(ctx, sessionID, "increment error counter", func() error {
		return m.repo.IncrementErrorCount(ctx, sessionID, category)
	})
}

// ErrorCounts returns a copy of the session's error counters.
func (m *SessionManager) ErrorCounts(sessionID string) map[constant.ErrorCategory]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make(map[constant.ErrorCategory]int, len(s.errorCounts))
	for k, v := range s.errorCounts {
		out[k] = v
	}
	return out
}

// UpdateSessionStatus applies a monotonic pending → active → ended
// transition. Anything else is rejected.
func (m *SessionManager) UpdateSessionStatus(ctx context.Context, sessionID string, next constant.SessionStatus) error {
	now := time.Now().UTC()
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	if !validTransition(s.Status, next) {
		current := s.Status
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	s.Status = next
	var startedAt, endedAt *time.Time
	switch next {
	case constant.SessionStatusActive:
		s.StartedAt = &now
		startedAt = &now
	case constant.SessionStatusEnded:
		s.EndedAt = &now
		endedAt = &now
	}
	m.mu.Unlock()

	m.persist(ctx, sessionID, "update status", func() error {
		return m.repo.UpdateSessionStatus(ctx, sessionID, next, startedAt, endedAt)
	})
	return nil
}

func validTransition(from, to constant.SessionStatus) bool {
	switch from {
	case constant.SessionStatusPending:
		return to == constant.SessionStatusActive
	case constant.SessionStatusActive:
		return to == constant.SessionStatusEnded
	default:
		return false
	}
}

// EndSession applies the terminal transition. Only the owning imam may end a
// session.
func (m *SessionManager) EndSession(ctx context.Context, sessionID, callerID string) error {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	var owner string
	var status constant.SessionStatus
	if ok {
		owner = s.ImamID
		status = s.Status
	}
	m.mu.RUnlock()

	if !ok {
		return ErrSessionNotFound
	}
	if owner != callerID {
		return ErrNotSessionOwner
	}
	if status == constant.SessionStatusEnded {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, constant.SessionStatusEnded)
	}
	// a pending session that never went live still ends directly
	if status == constant.SessionStatusPending {
		if err := m.UpdateSessionStatus(ctx, sessionID, constant.SessionStatusActive); err != nil {
			return err
		}
	}
	return m.UpdateSessionStatus(ctx, sessionID, constant.SessionStatusEnded)
}

// GetSessionsByImam lists the imam's sessions, newest first.
func (m *SessionManager) GetSessionsByImam(imamID string, includeEnded bool) []*dto.SessionView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var views []*dto.SessionView
	for _, s := range m.sessions {
		if s.ImamID != imamID {
			continue
		}
		if !includeEnded && s.Status == constant.SessionStatusEnded {
			continue
		}
		views = append(views, s.view())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	return views
}

// ActiveSessionsSummary lists every non-ended session, newest first.
func (m *SessionManager) ActiveSessionsSummary() []*dto.SessionView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var views []*dto.SessionView
	for _, s := range m.sessions {
		if s.Status == constant.SessionStatusEnded {
			continue
		}
		views = append(views, s.view())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	return views
}

// Stats reports roster-level aggregates in O(sessions).
func (m *SessionManager) Stats() (activeSessions, totalSessions, totalWorshippers int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		totalSessions++
		if s.Status == constant.SessionStatusActive {
			activeSessions++
		}
		if s.Status != constant.SessionStatusEnded {
			totalWorshippers += len(s.roster)
		}
	}
	return
}

// GetSessionHistory returns a most-recent-first page of translation records.
// Sessions absent from memory (e.g. after a restart) are served from the
// repository.
func (m *SessionManager) GetSessionHistory(ctx context.Context, sessionID string, limit, offset int) (*dto.HistoryResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	var recent []dto.TranslationRecord
	var total int
	if ok {
		total = len(s.history)
		for i := total - 1 - offset; i >= 0 && len(recent) < limit; i-- {
			recent = append(recent, s.history[i])
		}
	}
	m.mu.RUnlock()

	if ok {
		return &dto.HistoryResponse{
			SessionID: sessionID,
			Total:     total,
			Limit:     limit,
			Offset:    offset,
			Records:   recent,
		}, nil
	}

	if m.repo == nil {
		return nil, ErrSessionNotFound
	}
	rows, dbTotal, err := m.repo.GetSessionHistory(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	records := make([]dto.TranslationRecord, 0, len(rows))
	for _, row := range rows {
		var translations []dto.LanguageOutput
		if err := json.Unmarshal(row.Translations, &translations); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("skipping undecodable translation record")
			continue
		}
		records = append(records, dto.TranslationRecord{
			ID:                      row.ID,
			OriginalText:            row.OriginalText,
			SourceLanguage:          row.SourceLanguage,
			Timestamp:               row.Timestamp,
			ProcessingTimeMs:        row.ProcessingTimeMs,
			TranscriptionConfidence: row.TranscriptionConfidence,
			Translations:            translations,
		})
	}
	return &dto.HistoryResponse{
		SessionID: sessionID,
		Total:     int(dbTotal),
		Limit:     limit,
		Offset:    offset,
		Records:   records,
	}, nil
}

// persist runs a best-effort repository write. Failures are logged and never
// propagate into the live pipeline.
func (m *SessionManager) persist(ctx context.Context, sessionID, op string, fn func() error) {
	if m.repo == nil {
		return
	}
	if err := fn(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Str("op", op).Msg("best-effort persistence failed")
	}
}

// view builds the sanitized external representation: no password material,
// no connection identifiers. Callers must hold at least a read lock.
func (s *session) view() *dto.SessionView {
	langs := make(map[string]struct{}, len(s.roster))
	for _, w := range s.roster {
		langs[w.TargetLanguage] = struct{}{}
	}
	languages := make([]string, 0, len(langs))
	for lang := range langs {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return &dto.SessionView{
		ID:                 s.ID,
		ImamID:             s.ImamID,
		ImamName:           s.ImamName,
		SourceLanguage:     s.SourceLanguage,
		SourceLanguageName: s.SourceLanguageName,
		Title:              s.Title,
		Description:        s.Description,
		Protected:          s.passwordHash != "",
		Status:             s.Status,
		Settings:           s.Settings,
		WorshipperCount:    len(s.roster),
		Languages:          languages,
		HistoryLength:      len(s.history),
		CreatedAt:          s.CreatedAt,
		StartedAt:          s.StartedAt,
		EndedAt:            s.EndedAt,
	}
}

func (s *session) toEntity() *entities.Session {
	e := &entities.Session{
		ID:                 s.ID,
		ImamID:             s.ImamID,
		ImamName:           s.ImamName,
		SourceLanguage:     s.SourceLanguage,
		SourceLanguageName: s.SourceLanguageName,
		Title:              s.Title,
		Status:             s.Status,
		MaxWorshippers:     s.Settings.MaxWorshippers,
		AudioQuality:       s.Settings.AudioQuality,
		CreatedAt:          s.CreatedAt,
		StartedAt:          s.StartedAt,
		EndedAt:            s.EndedAt,
	}
	if s.Description != "" {
		e.Description = &s.Description
	}
	if s.passwordHash != "" {
		hash := s.passwordHash
		e.PasswordHash = &hash
	}
	return e
}
