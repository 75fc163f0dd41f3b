package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextskill/course-commerce-api/internal/dto"
	"github.com/nextskill/course-commerce-api/internal/model"
)

type mockCourseRepo struct {
	courses map[uuid.UUID]*model.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[uuid.UUID]*model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	course.ID = uuid.New()
	course.CreatedAt = time.Now()
	course.UpdatedAt = time.Now()
	for i := range course.Videos {
		course.Videos[i].ID = uuid.New()
		course.Videos[i].CourseID = course.ID
		course.Videos[i].Position = i
	}
	copied := *course
	m.courses[course.ID] = &copied
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (m *mockCourseRepo) GetByCode(_ context.Context, code string) (*model.Course, error) {
	for _, c := range m.courses {
		if c.Code == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockCourseRepo) List(_ context.Context) ([]model.Course, error) {
	var courses []model.Course
	for _, c := range m.courses {
		courses = append(courses, *c)
	}
	return courses, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	if _, ok := m.courses[course.ID]; ok {
		copied := *course
		m.courses[course.ID] = &copied
	}
	return nil
}

func (m *mockCourseRepo) AddVideo(_ context.Context, courseID uuid.UUID, video *model.CourseVideo) error {
	c, ok := m.courses[courseID]
	if !ok {
		return nil
	}
	video.ID = uuid.New()
	video.CourseID = courseID
	video.Position = len(c.Videos)
	c.Videos = append(c.Videos, *video)
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.courses, id)
	return nil
}

func TestCourseService_Create(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil)

	course, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Code:      "GO-101",
		Title:     "Intro to Go",
		Price:     decimal.NewFromInt(999),
		Thumbnail: "/go.png",
		Videos:    []dto.VideoPayload{{Title: "Lesson 1", URL: "/v1.mp4"}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.CourseStatusActive, course.Status)
	assert.Len(t, course.Videos, 1)
}

func TestCourseService_Create_DuplicateCode(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil)

	_, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Code: "GO-101", Title: "A", Price: decimal.NewFromInt(999), Thumbnail: "/a.png",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), dto.CreateCourseRequest{
		Code: "GO-101", Title: "B", Price: decimal.NewFromInt(499), Thumbnail: "/b.png",
	})
	assert.ErrorIs(t, err, ErrCourseCodeTaken)
}

func TestCourseService_GetByID_NotFound(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil)

	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseService_Update_PartialFields(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil)

	created, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Code: "GO-101", Title: "Old Title", Price: decimal.NewFromInt(999), Thumbnail: "/a.png",
	})
	require.NoError(t, err)

	newTitle := "New Title"
	updated, err := svc.Update(context.Background(), created.ID, dto.UpdateCourseRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(999)))
}

func TestCourseService_AddVideo_AppendsInOrder(t *testing.T) {
	repo := newMockCourseRepo()
	svc := NewCourseService(repo, nil)

	created, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Code: "GO-101", Title: "T", Price: decimal.NewFromInt(999), Thumbnail: "/a.png",
		Videos: []dto.VideoPayload{{Title: "Lesson 1", URL: "/v1.mp4"}},
	})
	require.NoError(t, err)

	course, err := svc.AddVideo(context.Background(), created.ID, dto.VideoPayload{
		Title: "Lesson 2", URL: "/v2.mp4",
	})
	require.NoError(t, err)
	require.Len(t, course.Videos, 2)
	assert.Equal(t, "Lesson 2", course.Videos[1].Title)
}

func TestCourseService_AddVideo_CourseNotFound(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil)

	_, err := svc.AddVideo(context.Background(), uuid.New(), dto.VideoPayload{Title: "L", URL: "/v.mp4"})
	assert.ErrorIs(t, err, ErrCourseNotFound)
}
