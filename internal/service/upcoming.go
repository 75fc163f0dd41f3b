package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextskill/course-commerce-api/internal/dto"
	"github.com/nextskill/course-commerce-api/internal/model"
	"github.com/nextskill/course-commerce-api/internal/repository"
)

var ErrUpcomingCourseNotFound = errors.New("upcoming course not found")

const upcomingPublicLimit = 20

// Storefront defaults for schedule entries created without the field.
const (
	defaultUpcomingLevel      = "1"
	defaultUpcomingEpisode    = "one"
	defaultUpcomingCourseType = "COURSE"
	defaultUpcomingAudio      = "HINDI + ENG CC"
	defaultUpcomingStatus     = "NEW EPISODE | OUT NOW"
)

type UpcomingCourseService struct {
	repo repository.UpcomingCourseRepository
}

func NewUpcomingCourseService(repo repository.UpcomingCourseRepository) *UpcomingCourseService {
	return &UpcomingCourseService{repo: repo}
}

func (s *UpcomingCourseService) ListPublic(ctx context.Context) ([]dto.UpcomingCourseResponse, error) {
	courses, err := s.repo.ListPublic(ctx, upcomingPublicLimit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming courses: %w", err)
	}
	return toUpcomingResponses(courses), nil
}

func (s *UpcomingCourseService) ListAll(ctx context.Context) ([]dto.UpcomingCourseResponse, error) {
	courses, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list upcoming courses: %w", err)
	}
	return toUpcomingResponses(courses), nil
}

func (s *UpcomingCourseService) Create(ctx context.Context, req dto.CreateUpcomingCourseRequest) (*dto.UpcomingCourseResponse, error) {
	course := &model.UpcomingCourse{
		Title:      req.Title,
		Level:      orDefault(req.Level, defaultUpcomingLevel),
		Episode:    orDefault(req.Episode, defaultUpcomingEpisode),
		CourseType: orDefault(req.CourseType, defaultUpcomingCourseType),
		Audio:      orDefault(req.Audio, defaultUpcomingAudio),
		Status:     orDefault(req.Status, defaultUpcomingStatus),
		Image:      req.Image,
		Active:     true,
	}
	if req.Active != nil {
		course.Active = *req.Active
	}
	if req.SortOrder != nil {
		course.SortOrder = *req.SortOrder
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create upcoming course: %w", err)
	}
	resp := toUpcomingResponse(course)
	return &resp, nil
}

func (s *UpcomingCourseService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateUpcomingCourseRequest) (*dto.UpcomingCourseResponse, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get upcoming course: %w", err)
	}
	if course == nil {
		return nil, ErrUpcomingCourseNotFound
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Episode != nil {
		course.Episode = *req.Episode
	}
	if req.CourseType != nil {
		course.CourseType = *req.CourseType
	}
	if req.Audio != nil {
		course.Audio = *req.Audio
	}
	if req.Status != nil {
		course.Status = *req.Status
	}
	if req.Image != nil {
		course.Image = *req.Image
	}
	if req.Active != nil {
		course.Active = *req.Active
	}
	if req.SortOrder != nil {
		course.SortOrder = *req.SortOrder
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("update upcoming course: %w", err)
	}
	resp := toUpcomingResponse(course)
	return &resp, nil
}

func (s *UpcomingCourseService) Delete(ctx context.Context, id uuid.UUID) error {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get upcoming course: %w", err)
	}
	if course == nil {
		return ErrUpcomingCourseNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete upcoming course: %w", err)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func toUpcomingResponses(courses []model.UpcomingCourse) []dto.UpcomingCourseResponse {
	items := make([]dto.UpcomingCourseResponse, 0, len(courses))
	for i := range courses {
		items = append(items, toUpcomingResponse(&courses[i]))
	}
	return items
}

func toUpcomingResponse(c *model.UpcomingCourse) dto.UpcomingCourseResponse {
	return dto.UpcomingCourseResponse{
		ID:         c.ID,
		Title:      c.Title,
		Level:      c.Level,
		Episode:    c.Episode,
		CourseType: c.CourseType,
		Audio:      c.Audio,
		Status:     c.Status,
		Image:      c.Image,
		Active:     c.Active,
		SortOrder:  c.SortOrder,
		CreatedAt:  c.CreatedAt,
	}
}
