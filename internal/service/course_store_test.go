package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gpadash/internal/model"
	"gpadash/internal/repository"

	"github.com/rs/zerolog"
)

const testKey = "psu-courses"

// flakySlots wraps a MemorySlotRepo and fails writes while failPut is set.
type flakySlots struct {
	*repository.MemorySlotRepo
	failPut bool
	failGet bool
	puts    int
}

func newFlakySlots() *flakySlots {
	return &flakySlots{MemorySlotRepo: repository.NewMemorySlotRepo()}
}

func (f *flakySlots) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("disk on fire")
	}
	return f.MemorySlotRepo.Get(ctx, key)
}

func (f *flakySlots) Put(ctx context.Context, key string, value []byte) error {
	f.puts++
	if f.failPut {
		return errors.New("quota exceeded")
	}
	return f.MemorySlotRepo.Put(ctx, key, value)
}

func ptr[T any](v T) *T { return &v }

func openTestStore(t *testing.T, slots repository.SlotRepository) *CourseStore {
	t.Helper()
	st, err := OpenCourseStore(context.Background(), slots, testKey, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenCourseStore returned error: %v", err)
	}
	return st
}

func TestCurriculumSeed(t *testing.T) {
	courses := Curriculum()
	if len(courses) != 14 {
		t.Fatalf("expected 14 seed courses, got %d", len(courses))
	}
	perSemester := map[model.Semester]int{}
	ids := map[string]bool{}
	for _, c := range courses {
		perSemester[c.Semester]++
		if ids[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		ids[c.ID] = true
		if c.Score != 0 || c.Grade != "F" || c.Points != 0 || c.IsCustom {
			t.Fatalf("seed course %s not an ungraded default: %+v", c.ID, c)
		}
	}
	if perSemester[model.SemesterOne] != 7 || perSemester[model.SemesterTwo] != 7 {
		t.Fatalf("unexpected semester split %v", perSemester)
	}

	courses[0].Name = "mutated"
	if Curriculum()[0].Name == "mutated" {
		t.Fatal("Curriculum must return a fresh copy")
	}
}

func TestLoadWithoutSlotUsesCurriculum(t *testing.T) {
	st := openTestStore(t, repository.NewMemorySlotRepo())
	if !reflect.DeepEqual(st.Courses(), Curriculum()) {
		t.Fatal("expected seed curriculum on first run")
	}
}

func TestLoadMalformedSlotFallsBack(t *testing.T) {
	for _, raw := range []string{"{not json", "null", `{"id":"x"}`} {
		slots := repository.NewMemorySlotRepo()
		_ = slots.Put(context.Background(), testKey, []byte(raw))
		st := openTestStore(t, slots)
		if !reflect.DeepEqual(st.Courses(), Curriculum()) {
			t.Errorf("slot %q: expected fallback to curriculum", raw)
		}
	}
}

func TestLoadReadErrorIsNotSeeded(t *testing.T) {
	ctx := context.Background()
	slots := newFlakySlots()
	saved := `[{"id":"x","name":"Saved","credits":3,"score":91,"grade":"A-","points":3.7,"semester":1}]`
	_ = slots.MemorySlotRepo.Put(ctx, testKey, []byte(saved))

	slots.failGet = true
	if _, err := OpenCourseStore(ctx, slots, testKey, zerolog.Nop()); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if slots.puts != 0 {
		t.Fatalf("read failure must not write, got %d puts", slots.puts)
	}

	slots.failGet = false
	st := openTestStore(t, slots)
	if c, ok := st.Get("x"); !ok || c.Name != "Saved" {
		t.Fatalf("expected saved course after recovery, got %+v", st.Courses())
	}
}

func TestLoadFailureKeepsCurrentList(t *testing.T) {
	ctx := context.Background()
	slots := newFlakySlots()
	st := openTestStore(t, slots)
	_, _ = st.Add(ctx, model.SemesterOne)

	slots.failGet = true
	if _, err := st.Load(ctx); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if len(st.Courses()) != 15 {
		t.Fatalf("failed reload replaced the list: %d courses", len(st.Courses()))
	}
}

func TestLoadRejectsInvalidRecords(t *testing.T) {
	cases := map[string]string{
		"zero credits":     `[{"id":"a","name":"A","credits":0,"score":50,"semester":1}]`,
		"negative credits": `[{"id":"a","name":"A","credits":-2,"score":50,"semester":1}]`,
		"bad semester":     `[{"id":"a","name":"A","credits":3,"score":50,"semester":3}]`,
		"missing id":       `[{"name":"A","credits":3,"score":50,"semester":1}]`,
		"duplicate id": `[{"id":"a","name":"A","credits":3,"score":50,"semester":1},
			{"id":"a","name":"B","credits":3,"score":60,"semester":2}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			slots := repository.NewMemorySlotRepo()
			_ = slots.Put(context.Background(), testKey, []byte(raw))
			st := openTestStore(t, slots)
			if !reflect.DeepEqual(st.Courses(), Curriculum()) {
				t.Fatalf("expected curriculum fallback, got %+v", st.Courses())
			}
		})
	}
}

func TestLoadRederivesGrades(t *testing.T) {
	slots := repository.NewMemorySlotRepo()
	_ = slots.Put(context.Background(), testKey, []byte(
		`[{"id":"x","name":"Stale","credits":3,"score":98,"grade":"F","points":0,"semester":1}]`))
	st := openTestStore(t, slots)
	c, ok := st.Get("x")
	if !ok {
		t.Fatal("expected course x")
	}
	if c.Grade != "A+" || c.Points != 4.0 {
		t.Fatalf("expected derived A+/4.0, got %s/%v", c.Grade, c.Points)
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	slots := repository.NewMemorySlotRepo()
	st := openTestStore(t, slots)

	if _, _, err := st.Update(ctx, "sci001", CourseUpdate{Score: ptr(91.5)}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if _, err := st.Add(ctx, model.SemesterTwo); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	want := st.Courses()

	reloaded := openTestStore(t, slots)
	if !reflect.DeepEqual(reloaded.Courses(), want) {
		t.Fatalf("round trip mismatch\nwant %+v\ngot  %+v", want, reloaded.Courses())
	}
}

func TestAddCreatesCustomPlaceholder(t *testing.T) {
	slots := newFlakySlots()
	st := openTestStore(t, slots)
	st.newID = func() string { return "fixed-id" }

	c, err := st.Add(context.Background(), model.SemesterOne)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	want := model.Course{ID: "fixed-id", Name: "New Course", Credits: 3, Score: 0, Grade: "F", Points: 0, Semester: 1, IsCustom: true}
	if c != want {
		t.Fatalf("unexpected course %+v", c)
	}
	courses := st.Courses()
	if courses[len(courses)-1] != want {
		t.Fatal("new course not appended at the end")
	}
	if slots.puts != 1 {
		t.Fatalf("expected one write-through, got %d", slots.puts)
	}
}

func TestAddRejectsUnknownSemester(t *testing.T) {
	slots := newFlakySlots()
	st := openTestStore(t, slots)
	if _, err := st.Add(context.Background(), model.Semester(3)); !errors.Is(err, ErrInvalidSemester) {
		t.Fatalf("expected ErrInvalidSemester, got %v", err)
	}
	if len(st.Courses()) != 14 || slots.puts != 0 {
		t.Fatal("rejected add must not mutate or persist")
	}
}

func TestUpdateScoreDerivesGradeAndClamps(t *testing.T) {
	st := openTestStore(t, repository.NewMemorySlotRepo())
	ctx := context.Background()

	c, found, err := st.Update(ctx, "sci002", CourseUpdate{Score: ptr(-12.0)})
	if err != nil || !found {
		t.Fatalf("Update failed: found=%v err=%v", found, err)
	}
	if c.Score != 0 || c.Grade != "F" {
		t.Fatalf("negative score should clamp to 0/F, got %+v", c)
	}

	c, _, _ = st.Update(ctx, "sci002", CourseUpdate{Score: ptr(250.0)})
	if c.Score != 100 || c.Grade != "A+" || c.Points != 4.0 {
		t.Fatalf("large score should clamp to 100/A+, got %+v", c)
	}

	c, _, _ = st.Update(ctx, "sci002", CourseUpdate{Score: ptr(85.0)})
	if c.Grade != "B+" || c.Points != 3.3 {
		t.Fatalf("expected B+/3.3, got %+v", c)
	}
}

func TestUpdateOtherFieldsKeepsGrade(t *testing.T) {
	st := openTestStore(t, repository.NewMemorySlotRepo())
	ctx := context.Background()
	_, _, _ = st.Update(ctx, "sci003", CourseUpdate{Score: ptr(75.0)})

	sem := model.SemesterTwo
	c, _, err := st.Update(ctx, "sci003", CourseUpdate{Name: ptr("Physics I"), Credits: ptr(4), Semester: &sem})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if c.Name != "Physics I" || c.Credits != 4 || c.Semester != model.SemesterTwo {
		t.Fatalf("fields not applied: %+v", c)
	}
	if c.Score != 75 || c.Grade != "C+" || c.Points != 2.3 {
		t.Fatalf("grade should follow untouched score: %+v", c)
	}
}

func TestUpdateValidation(t *testing.T) {
	st := openTestStore(t, repository.NewMemorySlotRepo())
	ctx := context.Background()
	if _, _, err := st.Update(ctx, "sci001", CourseUpdate{Credits: ptr(0)}); !errors.Is(err, ErrInvalidCredits) {
		t.Fatalf("expected ErrInvalidCredits, got %v", err)
	}
	bad := model.Semester(0)
	if _, _, err := st.Update(ctx, "sci001", CourseUpdate{Semester: &bad}); !errors.Is(err, ErrInvalidSemester) {
		t.Fatalf("expected ErrInvalidSemester, got %v", err)
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	slots := newFlakySlots()
	st := openTestStore(t, slots)
	before := st.Courses()

	_, found, err := st.Update(context.Background(), "missing", CourseUpdate{Score: ptr(99.0)})
	if err != nil || found {
		t.Fatalf("expected silent no-op, got found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(st.Courses(), before) {
		t.Fatal("list changed on unknown id")
	}
	if slots.puts != 0 {
		t.Fatal("no-op update must not persist")
	}
}

func TestRemove(t *testing.T) {
	st := openTestStore(t, repository.NewMemorySlotRepo())
	ctx := context.Background()

	found, err := st.Remove(ctx, "huu002")
	if err != nil || !found {
		t.Fatalf("Remove failed: found=%v err=%v", found, err)
	}
	if _, ok := st.Get("huu002"); ok {
		t.Fatal("course still present after remove")
	}
	if len(st.Courses()) != 13 {
		t.Fatalf("expected 13 courses, got %d", len(st.Courses()))
	}
	if found, _ := st.Remove(ctx, "huu002"); found {
		t.Fatal("second remove should report not found")
	}
}

func TestResetToDefaultSurvivesReload(t *testing.T) {
	ctx := context.Background()
	slots := repository.NewMemorySlotRepo()
	st := openTestStore(t, slots)

	_, _ = st.Add(ctx, model.SemesterOne)
	_, _, _ = st.Update(ctx, "sci001", CourseUpdate{Score: ptr(99.0), Name: ptr("Calc")})
	_, _ = st.Remove(ctx, "sci002")

	if _, err := st.ResetToDefault(ctx); err != nil {
		t.Fatalf("ResetToDefault returned error: %v", err)
	}
	reloaded := openTestStore(t, slots)
	if !reflect.DeepEqual(reloaded.Courses(), Curriculum()) {
		t.Fatal("reload after reset should yield exactly the seed curriculum")
	}
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	slots := newFlakySlots()
	st := openTestStore(t, slots)
	slots.failPut = true

	c, found, err := st.Update(context.Background(), "sci001", CourseUpdate{Score: ptr(95.0)})
	if !found {
		t.Fatal("expected course to be found")
	}
	if !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
	if c.Grade != "A" {
		t.Fatalf("expected returned course to carry the change, got %+v", c)
	}
	if got, _ := st.Get("sci001"); got.Score != 95 {
		t.Fatalf("in-memory state rolled back: %+v", got)
	}

	slots.failPut = false
	if err := st.Persist(context.Background()); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	reloaded := openTestStore(t, slots)
	if got, _ := reloaded.Get("sci001"); got.Score != 95 {
		t.Fatalf("expected retry to persist the kept change, got %+v", got)
	}
}

func TestEmptyListPersistsAsArray(t *testing.T) {
	ctx := context.Background()
	slots := repository.NewMemorySlotRepo()
	st := openTestStore(t, slots)
	for _, c := range st.Courses() {
		_, _ = st.Remove(ctx, c.ID)
	}
	raw, err := slots.Get(ctx, testKey)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", raw)
	}
	if len(openTestStore(t, slots).Courses()) != 0 {
		t.Fatal("an emptied list should reload empty, not as the seed")
	}
}
