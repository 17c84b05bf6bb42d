package classroom

import (
	"context"
	"fmt"

	api "google.golang.org/api/classroom/v1"

	"github.com/classbrief/classbrief/internal/audit"
)

// Course is the slice of course metadata the frontend needs to render a
// course picker.
type Course struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`
}

// ListCourses returns the teacher's active courses.
func (p *Publisher) ListCourses(ctx context.Context, accessToken, teacherID string) ([]Course, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("classroom client: %w", err)
	}

	var out []Course
	err = svc.Courses.List().CourseStates("ACTIVE").Pages(ctx, func(page *api.ListCoursesResponse) error {
		for _, c := range page.Courses {
			out = append(out, Course{ID: c.Id, Name: c.Name, Section: c.Section})
		}
		return nil
	})
	if err != nil {
		p.audit.Record(ctx, audit.Entry{
			Teacher: teacherID,
			Action:  audit.ActionClassroomFetch,
			Status:  audit.StatusFailure,
			Error:   err.Error(),
		})
		return nil, fmt.Errorf("list courses: %w", err)
	}
	p.audit.Record(ctx, audit.Entry{
		Teacher:  teacherID,
		Action:   audit.ActionClassroomFetch,
		Status:   audit.StatusSuccess,
		Metadata: map[string]any{"count": len(out)},
	})
	return out, nil
}
