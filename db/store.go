// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/flash-survey/models"
)

// ErrNotFound is returned when a lookup matches no live row
var ErrNotFound = errors.New("not found")

const DefaultTimeout = 5 * time.Second

// Store is the durable record store. Queries use $N placeholders, each
// bound once in order, so the same SQL runs on lib/pq and modernc sqlite.
// Times are written and bound in UTC so SQL comparisons agree on both.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

func NewStore(db *sql.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{db: db, timeout: timeout}
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

const surveyColumns = `id, admin_id, title, description, public_token, is_active, max_votes, expires_at, created_at`

// FindActiveSurveyByToken returns a non-deleted survey with its questions
// and options. Active, expiry and quota checks are left to the caller.
func (s *Store) FindActiveSurveyByToken(ctx context.Context, token string) (models.Survey, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+surveyColumns+`
		FROM surveys
		WHERE public_token = $1 AND deleted_at IS NULL
	`, token)
	return s.loadSurvey(ctx, row)
}

// FindSurveyByID returns a non-deleted survey with its questions and options
func (s *Store) FindSurveyByID(ctx context.Context, id string) (models.Survey, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+surveyColumns+`
		FROM surveys
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return s.loadSurvey(ctx, row)
}

func (s *Store) loadSurvey(ctx context.Context, row *sql.Row) (models.Survey, error) {
	var survey models.Survey
	err := row.Scan(
		&survey.ID, &survey.AdminID, &survey.Title, &survey.Description, &survey.PublicToken,
		&survey.IsActive, &survey.MaxResponses, &survey.ExpiresAt, &survey.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Survey{}, ErrNotFound
	}
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to scan survey: %w", err)
	}
	survey.ExpiresAt = survey.ExpiresAt.UTC()
	survey.CreatedAt = survey.CreatedAt.UTC()

	questions, err := s.loadQuestions(ctx, survey.ID)
	if err != nil {
		return models.Survey{}, err
	}
	survey.Questions = questions
	return survey, nil
}

func (s *Store) loadQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, survey_id, question_text, question_type, order_index, required
		FROM questions
		WHERE survey_id = $1
		ORDER BY order_index, created_at
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	index := make(map[string]int)
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.SurveyID, &q.QuestionText, &q.QuestionType, &q.OrderIndex, &q.Required); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Options = []models.Option{}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	optRows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.option_text
		FROM question_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.survey_id = $1
		ORDER BY o.position
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var o models.Option
		if err := optRows.Scan(&o.ID, &o.QuestionID, &o.OptionText); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		if i, ok := index[o.QuestionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	return questions, nil
}

// CountDistinctSubmissions counts submissions, not response rows
func (s *Store) CountDistinctSubmissions(ctx context.Context, surveyID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT submission_id) FROM responses WHERE survey_id = $1
	`, surveyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

// CountOptionResponses returns the number of times each option was chosen.
// Options nobody picked are absent.
func (s *Store) CountOptionResponses(ctx context.Context, surveyID string) ([]models.OptionCount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, option_id, COUNT(*)
		FROM responses
		WHERE survey_id = $1
		GROUP BY question_id, option_id
	`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	defer rows.Close()

	var counts []models.OptionCount
	for rows.Next() {
		var c models.OptionCount
		if err := rows.Scan(&c.QuestionID, &c.OptionID, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan response count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response counts: %w", err)
	}
	return counts, nil
}

// InsertResponses writes every row of one submission or none of them
func (s *Store) InsertResponses(ctx context.Context, rows []models.ResponseRow) error {
	if len(rows) == 0 {
		return errors.New("no responses to insert")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO responses (id, survey_id, question_id, option_id, submission_id, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare response insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		submittedAt := r.SubmittedAt
		if submittedAt.IsZero() {
			submittedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, id, r.SurveyID, r.QuestionID, r.OptionID, r.SubmissionID, submittedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert response: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit responses: %w", err)
	}
	return nil
}

// CreateSurveyWithQuestions creates a survey, its questions and their
// options in one transaction. A failure leaves nothing behind.
func (s *Store) CreateSurveyWithQuestions(ctx context.Context, def models.SurveyDefinition) (models.Survey, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC()
	survey := models.Survey{
		ID:           uuid.NewString(),
		AdminID:      def.AdminID,
		Title:        def.Title,
		Description:  def.Description,
		PublicToken:  uuid.NewString(),
		IsActive:     true,
		MaxResponses: def.MaxResponses,
		ExpiresAt:    def.ExpiresAt.UTC(),
		CreatedAt:    now,
		Questions:    make([]models.Question, 0, len(def.Questions)),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO surveys (id, admin_id, title, description, public_token, is_active, max_votes, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, survey.ID, survey.AdminID, survey.Title, survey.Description, survey.PublicToken,
		survey.IsActive, survey.MaxResponses, survey.ExpiresAt, survey.CreatedAt)
	if err != nil {
		return models.Survey{}, fmt.Errorf("failed to insert survey: %w", err)
	}

	for i, qd := range def.Questions {
		q := models.Question{
			ID:           uuid.NewString(),
			SurveyID:     survey.ID,
			QuestionText: qd.QuestionText,
			QuestionType: models.QuestionTypeRadio,
			OrderIndex:   qd.OrderIndex,
			Required:     qd.Required,
			Options:      make([]models.Option, 0, len(qd.Options)),
		}
		// Offset keeps creation order stable for equal order indexes
		createdAt := now.Add(time.Duration(i) * time.Microsecond)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO questions (id, survey_id, question_text, question_type, order_index, required, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, q.ID, q.SurveyID, q.QuestionText, q.QuestionType, q.OrderIndex, q.Required, createdAt)
		if err != nil {
			return models.Survey{}, fmt.Errorf("failed to insert question: %w", err)
		}

		for pos, text := range qd.Options {
			o := models.Option{ID: uuid.NewString(), QuestionID: q.ID, OptionText: text}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO question_options (id, question_id, option_text, position, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, o.ID, o.QuestionID, o.OptionText, pos, now)
			if err != nil {
				return models.Survey{}, fmt.Errorf("failed to insert option: %w", err)
			}
			q.Options = append(q.Options, o)
		}
		survey.Questions = append(survey.Questions, q)
	}

	if err := tx.Commit(); err != nil {
		return models.Survey{}, fmt.Errorf("failed to commit survey: %w", err)
	}

	slices.SortStableFunc(survey.Questions, func(a, b models.Question) int {
		return cmp.Compare(a.OrderIndex, b.OrderIndex)
	})
	return survey, nil
}

// FindAdminByEmail looks up an admin by email
func (s *Store) FindAdminByEmail(ctx context.Context, email string) (models.AdminUser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var a models.AdminUser
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, avatar_url, created_at
		FROM admin_users
		WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.Name, &a.AvatarURL, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AdminUser{}, ErrNotFound
	}
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("failed to query admin: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// FindOrCreateAdmin returns the admin for email, creating it on first use
func (s *Store) FindOrCreateAdmin(ctx context.Context, email, name, avatarURL string) (models.AdminUser, error) {
	a, err := s.FindAdminByEmail(ctx, email)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.AdminUser{}, err
	}

	if name == "" {
		name = email
	}
	a = models.AdminUser{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		AvatarURL: avatarURL,
		CreatedAt: time.Now().UTC(),
	}

	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.db.ExecContext(insertCtx, `
		INSERT INTO admin_users (id, email, name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.Email, a.Name, a.AvatarURL, a.CreatedAt)
	if err != nil {
		// A concurrent request may have created the same admin
		if existing, findErr := s.FindAdminByEmail(ctx, email); findErr == nil {
			return existing, nil
		}
		return models.AdminUser{}, fmt.Errorf("failed to create admin: %w", err)
	}
	return a, nil
}

// ListSurveysByAdmin returns an admin's live surveys, newest first, with
// question and submission counts. IsExpired and ExpiresIn are left to the
// caller.
func (s *Store) ListSurveysByAdmin(ctx context.Context, adminID string) ([]models.SurveySummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.description, s.public_token, s.is_active, s.max_votes,
		       s.expires_at, s.created_at,
		       (SELECT COUNT(*) FROM questions q WHERE q.survey_id = s.id),
		       (SELECT COUNT(DISTINCT r.submission_id) FROM responses r WHERE r.survey_id = s.id)
		FROM surveys s
		WHERE s.admin_id = $1 AND s.deleted_at IS NULL
		ORDER BY s.created_at DESC
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	surveys := []models.SurveySummary{}
	for rows.Next() {
		var sum models.SurveySummary
		err := rows.Scan(&sum.ID, &sum.Title, &sum.Description, &sum.PublicToken, &sum.IsActive,
			&sum.MaxResponses, &sum.ExpiresAt, &sum.CreatedAt, &sum.QuestionCount, &sum.TotalVotes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		sum.ExpiresAt = sum.ExpiresAt.UTC()
		sum.CreatedAt = sum.CreatedAt.UTC()
		surveys = append(surveys, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read surveys: %w", err)
	}
	return surveys, nil
}

// ListClosedSurveys returns surveys that no longer accept responses and
// whose expiry falls after since. Deleted and deactivated surveys count as
// closed.
func (s *Store) ListClosedSurveys(ctx context.Context, now, since time.Time) ([]models.ClosedSurvey, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, public_token, is_active, expires_at, deleted_at
		FROM surveys
		WHERE expires_at > $1
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	var closed []models.ClosedSurvey
	for rows.Next() {
		var (
			c         models.ClosedSurvey
			active    bool
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.PublicToken, &active, &c.ExpiresAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		c.ExpiresAt = c.ExpiresAt.UTC()

		isClosed := deletedAt.Valid || !active || !now.Before(c.ExpiresAt)
		if isClosed {
			closed = append(closed, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read surveys: %w", err)
	}
	return closed, nil
}
