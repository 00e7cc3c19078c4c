package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"codemaster-service/internal/domain"
)

// CourseLoader fetches course content from a backing store (embedded seed, Postgres).
type CourseLoader interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
	LoadCourses(ctx context.Context) ([]domain.Course, error)
}

const listKey = "\x00all"

// CourseRepository caches courses with TTL to avoid repeated loader hits.
type CourseRepository struct {
	loader CourseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedCourse
	list  *cachedList
}

type cachedCourse struct {
	course    domain.Course
	expiresAt time.Time
}

type cachedList struct {
	courses   []domain.Course
	expiresAt time.Time
}

func NewCourseRepository(loader CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCourse),
	}
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	if course, ok := r.cached(courseID); ok {
		return course, nil
	}

	result, err, _ := r.sf.Do(courseID, func() (interface{}, error) {
		if course, ok := r.cached(courseID); ok {
			return course, nil
		}

		course, err := r.loader.LoadCourse(ctx, courseID)
		if err != nil {
			return domain.Course{}, err
		}

		r.mu.Lock()
		r.cache[courseID] = cachedCourse{
			course:    course,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

func (r *CourseRepository) ListCourses(ctx context.Context) ([]domain.Course, error) {
	r.mu.RLock()
	if r.list != nil && r.list.expiresAt.After(r.clock()) {
		out := r.list.courses
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(listKey, func() (interface{}, error) {
		courses, err := r.loader.LoadCourses(ctx)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })

		expires := r.clock().Add(r.ttlWithJitter())
		r.mu.Lock()
		r.list = &cachedList{courses: courses, expiresAt: expires}
		for _, c := range courses {
			r.cache[c.ID] = cachedCourse{course: c, expiresAt: expires}
		}
		r.mu.Unlock()
		return courses, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Course), nil
}

func (r *CourseRepository) cached(courseID string) (domain.Course, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[courseID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Course{}, false
	}
	return entry.course, true
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCourseLoader is a loader backed by an in-memory map (seed data, tests).
type StaticCourseLoader struct {
	courses map[string]domain.Course
}

func NewStaticCourseLoader(courses []domain.Course) *StaticCourseLoader {
	m := make(map[string]domain.Course, len(courses))
	for _, c := range courses {
		m[c.ID] = c
	}
	return &StaticCourseLoader{courses: m}
}

func (l *StaticCourseLoader) LoadCourse(_ context.Context, courseID string) (domain.Course, error) {
	if course, ok := l.courses[courseID]; ok {
		return course, nil
	}
	return domain.Course{}, domain.ErrCourseNotFound
}

func (l *StaticCourseLoader) LoadCourses(_ context.Context) ([]domain.Course, error) {
	out := make([]domain.Course, 0, len(l.courses))
	for _, c := range l.courses {
		out = append(out, c)
	}
	return out, nil
}
