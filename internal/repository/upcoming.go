package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextskill/course-commerce-api/internal/model"
)

type UpcomingCourseRepository interface {
	Create(ctx context.Context, course *model.UpcomingCourse) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.UpcomingCourse, error)
	// ListPublic returns active entries only, capped for the storefront rail.
	ListPublic(ctx context.Context, limit int) ([]model.UpcomingCourse, error)
	ListAll(ctx context.Context) ([]model.UpcomingCourse, error)
	Update(ctx context.Context, course *model.UpcomingCourse) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgUpcomingRepo struct{ pool *pgxpool.Pool }

func NewUpcomingCourseRepository(pool *pgxpool.Pool) UpcomingCourseRepository {
	return &pgUpcomingRepo{pool: pool}
}

const upcomingColumns = `id, title, level, episode, course_type, audio, status, image, active, sort_order, created_at, updated_at`

func (r *pgUpcomingRepo) Create(ctx context.Context, course *model.UpcomingCourse) error {
	course.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO upcoming_courses (id, title, level, episode, course_type, audio, status, image, active, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		course.ID, course.Title, course.Level, course.Episode, course.CourseType,
		course.Audio, course.Status, course.Image, course.Active, course.SortOrder,
	).Scan(&course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create upcoming course: %w", err)
	}
	return nil
}

func (r *pgUpcomingRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.UpcomingCourse, error) {
	c := &model.UpcomingCourse{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+upcomingColumns+` FROM upcoming_courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Level, &c.Episode, &c.CourseType, &c.Audio,
		&c.Status, &c.Image, &c.Active, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get upcoming course: %w", err)
	}
	return c, nil
}

func (r *pgUpcomingRepo) ListPublic(ctx context.Context, limit int) ([]model.UpcomingCourse, error) {
	return r.list(ctx,
		`SELECT `+upcomingColumns+` FROM upcoming_courses WHERE active
		 ORDER BY sort_order, created_at DESC LIMIT $1`, limit)
}

func (r *pgUpcomingRepo) ListAll(ctx context.Context) ([]model.UpcomingCourse, error) {
	return r.list(ctx,
		`SELECT `+upcomingColumns+` FROM upcoming_courses ORDER BY sort_order, created_at DESC`)
}

func (r *pgUpcomingRepo) list(ctx context.Context, query string, args ...any) ([]model.UpcomingCourse, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list upcoming courses: %w", err)
	}
	defer rows.Close()

	var courses []model.UpcomingCourse
	for rows.Next() {
		var c model.UpcomingCourse
		if err := rows.Scan(&c.ID, &c.Title, &c.Level, &c.Episode, &c.CourseType, &c.Audio,
			&c.Status, &c.Image, &c.Active, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan upcoming course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *pgUpcomingRepo) Update(ctx context.Context, course *model.UpcomingCourse) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE upcoming_courses SET title=$2, level=$3, episode=$4, course_type=$5, audio=$6, status=$7, image=$8, active=$9, sort_order=$10, updated_at=NOW()
		 WHERE id=$1 RETURNING updated_at`,
		course.ID, course.Title, course.Level, course.Episode, course.CourseType,
		course.Audio, course.Status, course.Image, course.Active, course.SortOrder,
	).Scan(&course.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update upcoming course: %w", err)
	}
	return nil
}

func (r *pgUpcomingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM upcoming_courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete upcoming course: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
