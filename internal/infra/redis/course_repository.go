package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"codemaster-service/internal/domain"
	"codemaster-service/internal/infra/memory"
)

// CourseRepository caches course documents in Redis and falls back to a loader on cache miss.
// Courses are stored as:   SET codemaster:course:{courseID} <json>
// The catalog index as:    SET codemaster:courses <json array of ids>
type CourseRepository struct {
	client *redis.Client
	loader memory.CourseLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCourseRepository(client *redis.Client, loader memory.CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	if course, ok := r.cached(ctx, courseID); ok {
		return course, nil
	}

	result, err, _ := r.sf.Do(courseID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if course, ok := r.cached(ctx, courseID); ok {
			return course, nil
		}

		course, err := r.loader.LoadCourse(ctx, courseID)
		if err != nil {
			return domain.Course{}, err
		}
		r.store(ctx, r.client, course, r.ttlWithJitter())
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

func (r *CourseRepository) ListCourses(ctx context.Context) ([]domain.Course, error) {
	if courses, ok := r.cachedList(ctx); ok {
		return courses, nil
	}

	result, err, _ := r.sf.Do(indexKey, func() (interface{}, error) {
		courses, err := r.loader.LoadCourses(ctx)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })

		ids := make([]string, 0, len(courses))
		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for _, c := range courses {
			ids = append(ids, c.ID)
			r.store(ctx, pipe, c, ttl)
		}
		if raw, err := json.Marshal(ids); err == nil {
			pipe.Set(ctx, indexKey, raw, ttl)
		}
		// Cache writes are best-effort; the loaded courses are still served.
		_, _ = pipe.Exec(ctx)
		return courses, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Course), nil
}

func (r *CourseRepository) cached(ctx context.Context, courseID string) (domain.Course, bool) {
	raw, err := r.client.Get(ctx, courseKey(courseID)).Bytes()
	if err != nil {
		return domain.Course{}, false
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		return domain.Course{}, false
	}
	return course, true
}

// cachedList serves the catalog only if every indexed course is still cached.
func (r *CourseRepository) cachedList(ctx context.Context) ([]domain.Course, bool) {
	raw, err := r.client.Get(ctx, indexKey).Bytes()
	if err != nil {
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false
	}
	if len(ids) == 0 {
		return []domain.Course{}, true
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = courseKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, false
	}
	out := make([]domain.Course, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		var course domain.Course
		if err := json.Unmarshal([]byte(s), &course); err != nil {
			return nil, false
		}
		out = append(out, course)
	}
	return out, true
}

func (r *CourseRepository) store(ctx context.Context, c redis.Cmdable, course domain.Course, ttl time.Duration) {
	raw, err := json.Marshal(course)
	if err != nil {
		return
	}
	_ = c.Set(ctx, courseKey(course.ID), raw, ttl).Err()
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

const indexKey = "codemaster:courses"

func courseKey(courseID string) string {
	return "codemaster:course:" + courseID
}
