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

type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	Update(ctx context.Context, course *model.Course) error
	AddVideo(ctx context.Context, courseID uuid.UUID, video *model.CourseVideo) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgCourseRepo struct{ pool *pgxpool.Pool }

func NewCourseRepository(pool *pgxpool.Pool) CourseRepository {
	return &pgCourseRepo{pool: pool}
}

const courseColumns = `id, code, title, description, price, old_price, thumbnail, status, instructor_id, created_at, updated_at`

func (r *pgCourseRepo) Create(ctx context.Context, course *model.Course) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	course.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO courses (id, code, title, description, price, old_price, thumbnail, status, instructor_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		course.ID, course.Code, course.Title, course.Description, course.Price,
		course.OldPrice, course.Thumbnail, course.Status, course.InstructorID,
	).Scan(&course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}

	for i := range course.Videos {
		course.Videos[i].ID = uuid.New()
		course.Videos[i].CourseID = course.ID
		course.Videos[i].Position = i
		_, err = tx.Exec(ctx,
			`INSERT INTO course_videos (id, course_id, title, url, duration, description, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			course.Videos[i].ID, course.ID, course.Videos[i].Title, course.Videos[i].URL,
			course.Videos[i].Duration, course.Videos[i].Description, i,
		)
		if err != nil {
			return fmt.Errorf("insert course video: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgCourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	return r.getOne(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
}

func (r *pgCourseRepo) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	return r.getOne(ctx, `SELECT `+courseColumns+` FROM courses WHERE code = $1`, code)
}

func (r *pgCourseRepo) getOne(ctx context.Context, query string, args ...any) (*model.Course, error) {
	course := &model.Course{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&course.ID, &course.Code, &course.Title, &course.Description, &course.Price,
		&course.OldPrice, &course.Thumbnail, &course.Status, &course.InstructorID,
		&course.CreatedAt, &course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course: %w", err)
	}

	course.Videos, err = r.videosFor(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	return course, nil
}

func (r *pgCourseRepo) videosFor(ctx context.Context, courseID uuid.UUID) ([]model.CourseVideo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, title, url, duration, description, position
		 FROM course_videos WHERE course_id = $1 ORDER BY position`, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("get course videos: %w", err)
	}
	defer rows.Close()

	var videos []model.CourseVideo
	for rows.Next() {
		var v model.CourseVideo
		if err := rows.Scan(&v.ID, &v.CourseID, &v.Title, &v.URL, &v.Duration, &v.Description, &v.Position); err != nil {
			return nil, fmt.Errorf("scan course video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *pgCourseRepo) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Title, &c.Description, &c.Price, &c.OldPrice,
			&c.Thumbnail, &c.Status, &c.InstructorID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range courses {
		courses[i].Videos, err = r.videosFor(ctx, courses[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return courses, nil
}

func (r *pgCourseRepo) Update(ctx context.Context, course *model.Course) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE courses SET title=$2, description=$3, price=$4, old_price=$5, thumbnail=$6, status=$7, instructor_id=$8, updated_at=NOW()
		 WHERE id=$1 RETURNING updated_at`,
		course.ID, course.Title, course.Description, course.Price, course.OldPrice,
		course.Thumbnail, course.Status, course.InstructorID,
	).Scan(&course.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

func (r *pgCourseRepo) AddVideo(ctx context.Context, courseID uuid.UUID, video *model.CourseVideo) error {
	video.ID = uuid.New()
	video.CourseID = courseID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO course_videos (id, course_id, title, url, duration, description, position)
		 VALUES ($1, $2, $3, $4, $5, $6,
		         (SELECT COALESCE(MAX(position) + 1, 0) FROM course_videos WHERE course_id = $2))
		 RETURNING position`,
		video.ID, courseID, video.Title, video.URL, video.Duration, video.Description,
	).Scan(&video.Position)
	if err != nil {
		return fmt.Errorf("add course video: %w", err)
	}
	return nil
}

func (r *pgCourseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
