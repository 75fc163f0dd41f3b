package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nextskill/course-commerce-api/internal/dto"
	"github.com/nextskill/course-commerce-api/internal/model"
	"github.com/nextskill/course-commerce-api/internal/repository"
)

var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrCourseCodeTaken = errors.New("course code must be unique")
)

const courseCacheTTL = 60 * time.Second

type CourseService struct {
	courseRepo  repository.CourseRepository
	redisClient *redis.Client
}

func NewCourseService(courseRepo repository.CourseRepository, redisClient *redis.Client) *CourseService {
	return &CourseService{courseRepo: courseRepo, redisClient: redisClient}
}

func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	existing, err := s.courseRepo.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("check course code: %w", err)
	}
	if existing != nil {
		return nil, ErrCourseCodeTaken
	}

	status := req.Status
	if status == "" {
		status = model.CourseStatusActive
	}

	course := &model.Course{
		Code:         req.Code,
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		OldPrice:     req.OldPrice,
		Thumbnail:    req.Thumbnail,
		Status:       status,
		InstructorID: req.InstructorID,
	}
	for _, v := range req.Videos {
		course.Videos = append(course.Videos, model.CourseVideo{
			Title: v.Title, URL: v.URL, Duration: v.Duration, Description: v.Description,
		})
	}

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *CourseService) GetByID(ctx context.Context, id uuid.UUID) (*dto.CourseResponse, error) {
	cacheKey := "course:" + id.String()

	// Try cache
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.CourseResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	resp := toCourseResponse(course)

	// Write to cache
	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, courseCacheTTL)
		}
	}

	return &resp, nil
}

func (s *CourseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.courseRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	items := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		items = append(items, toCourseResponse(&courses[i]))
	}
	return items, nil
}

func (s *CourseService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.OldPrice != nil {
		course.OldPrice = *req.OldPrice
	}
	if req.Thumbnail != nil {
		course.Thumbnail = *req.Thumbnail
	}
	if req.Status != nil {
		course.Status = *req.Status
	}
	if req.InstructorID != nil {
		course.InstructorID = req.InstructorID
	}

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *CourseService) AddVideo(ctx context.Context, id uuid.UUID, req dto.VideoPayload) (*dto.CourseResponse, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}

	video := &model.CourseVideo{
		Title: req.Title, URL: req.URL, Duration: req.Duration, Description: req.Description,
	}
	if err := s.courseRepo.AddVideo(ctx, id, video); err != nil {
		return nil, fmt.Errorf("add video: %w", err)
	}
	course.Videos = append(course.Videos, *video)

	s.invalidateCache(ctx, id)
	resp := toCourseResponse(course)
	return &resp, nil
}

func (s *CourseService) Delete(ctx context.Context, id uuid.UUID) error {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return ErrCourseNotFound
	}
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *CourseService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "course:"+id.String())
	}
}

func toCourseResponse(c *model.Course) dto.CourseResponse {
	resp := dto.CourseResponse{
		ID:           c.ID,
		Code:         c.Code,
		Title:        c.Title,
		Description:  c.Description,
		Price:        c.Price,
		OldPrice:     c.OldPrice,
		Thumbnail:    c.Thumbnail,
		Status:       c.Status,
		InstructorID: c.InstructorID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	for _, v := range c.Videos {
		resp.Videos = append(resp.Videos, dto.VideoResponse{
			ID: v.ID, Title: v.Title, URL: v.URL, Duration: v.Duration, Description: v.Description,
		})
	}
	return resp
}
