package http

import (
	"encoding/json"
	"net/http"

	"codemaster-service/internal/account"
	"codemaster-service/internal/app"
	"codemaster-service/internal/catalog"
	"codemaster-service/internal/certificate"
	"codemaster-service/internal/domain"
	"codemaster-service/internal/logger"
	"codemaster-service/internal/preview"
)

// API serves the catalog, account, certificate and preview endpoints.
type API struct {
	courses  app.CourseRepository
	accounts *account.Service
	certs    *certificate.Renderer
	log      *logger.Logger
}

func NewAPI(courses app.CourseRepository, accounts *account.Service, certs *certificate.Renderer, log *logger.Logger) *API {
	return &API{
		courses:  courses,
		accounts: accounts,
		certs:    certs,
		log:      log.With("component", "api"),
	}
}

// courseSummary is a catalog card; lessons are omitted.
type courseSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Level       string  `json:"level"`
	Duration    string  `json:"duration"`
	Students    int     `json:"students"`
	Rating      float64 `json:"rating"`
	Category    string  `json:"category"`
	Instructor  string  `json:"instructor,omitempty"`
	LessonCount int     `json:"lessonCount"`
	Progress    int     `json:"progress"`
}

type lessonSummary struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Type          domain.LessonType `json:"type"`
	Duration      string            `json:"duration,omitempty"`
	Free          bool              `json:"free"`
	Locked        bool              `json:"locked"`
	Completed     bool              `json:"completed"`
	StepCount     int               `json:"stepCount"`
	QuestionCount int               `json:"questionCount"`
	Score         *int              `json:"score,omitempty"`
}

type courseDetail struct {
	courseSummary
	Lessons []lessonSummary `json:"lessons"`
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type certificateList struct {
	Certificates []domain.Certificate     `json:"certificates"`
	Stats        catalog.CertificateStats `json:"stats"`
}

func summarize(c domain.Course, user *domain.User) courseSummary {
	s := courseSummary{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Level:       c.Level,
		Duration:    c.Duration,
		Students:    c.Students,
		Rating:      c.Rating,
		Category:    c.Category,
		Instructor:  c.Instructor,
		LessonCount: len(c.Lessons),
	}
	if user != nil && len(c.Lessons) > 0 {
		s.Progress = user.Progress.CompletedLessons(c.ID) * 100 / len(c.Lessons)
	}
	return s
}

// detail lists lessons without quiz answers or step bodies.
func detail(c domain.Course, user *domain.User) courseDetail {
	d := courseDetail{courseSummary: summarize(c, user), Lessons: make([]lessonSummary, 0, len(c.Lessons))}
	for _, l := range c.Lessons {
		ls := lessonSummary{
			ID:            l.ID,
			Title:         l.Title,
			Description:   l.Description,
			Type:          l.Type,
			Duration:      l.Duration,
			Free:          l.Free,
			Locked:        !l.Free && user == nil,
			StepCount:     len(l.Steps),
			QuestionCount: len(l.Quiz),
		}
		if user != nil {
			if entry, ok := user.Progress.Entry(c.ID, l.ID); ok {
				ls.Completed = entry.Completed
				ls.Score = entry.Score
			}
		}
		d.Lessons = append(d.Lessons, ls)
	}
	return d
}

func (a *API) listCourses(w http.ResponseWriter, r *http.Request) {
	all, err := a.courses.ListCourses(r.Context())
	if err != nil {
		a.log.Error("list courses failed", "error", err)
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	courses := catalog.SortCourses(catalog.FilterCourses(all, catalog.Query{
		Search: q.Get("search"),
		Filter: q.Get("filter"),
	}), q.Get("sort"))

	user := a.accounts.Current().User
	out := make([]courseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, summarize(c, user))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getCourse(w http.ResponseWriter, r *http.Request) {
	course, err := a.courses.GetCourse(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail(course, a.accounts.Refresh(r.Context()).User))
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request) {
	all, err := a.courses.ListCourses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.Categories(all))
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errBadRequest)
		return
	}
	user, err := a.accounts.Register(r.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user.Public())
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errBadRequest)
		return
	}
	user, err := a.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	// The in-process context is cleared even when the store is down.
	_ = a.accounts.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	cur := a.accounts.Refresh(r.Context())
	if !cur.SignedIn() {
		writeError(w, domain.ErrNotSignedIn)
		return
	}
	writeJSON(w, http.StatusOK, cur.User.Public())
}

func (a *API) listCertificates(w http.ResponseWriter, r *http.Request) {
	cur := a.accounts.Refresh(r.Context())
	if !cur.SignedIn() {
		writeError(w, domain.ErrNotSignedIn)
		return
	}
	q := r.URL.Query()
	certs := catalog.FilterCertificates(cur.User.Certifications, q.Get("search"), q.Get("filter"))
	writeJSON(w, http.StatusOK, certificateList{
		Certificates: certs,
		Stats:        catalog.SummarizeCertificates(cur.User.Certifications),
	})
}

func (a *API) certificateImage(w http.ResponseWriter, r *http.Request) {
	cur := a.accounts.Refresh(r.Context())
	if !cur.SignedIn() {
		writeError(w, domain.ErrNotSignedIn)
		return
	}
	cert, err := cur.User.Certificate(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	img, err := a.certs.PNG(cur.User.Name, cert)
	if err != nil {
		a.log.Error("certificate render failed", "certificate_id", cert.ID, "error", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="certificate-`+cert.ID+`.png"`)
	_, _ = w.Write(img)
}

func (a *API) composePreview(w http.ResponseWriter, r *http.Request) {
	var in preview.Sources
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, preview.NewWorkspace().Set(in))
}

func (a *API) playground(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := preview.RenderFrame(w, preview.FrameData{
		Document:   preview.NewWorkspace().Document(),
		Examples:   preview.Examples(),
		SocketPath: "/ws/playground",
	})
	if err != nil {
		a.log.Error("playground render failed", "error", err)
	}
}
