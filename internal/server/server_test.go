package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/auth"
	"habit-stacker-backend/internal/config"
	"habit-stacker-backend/internal/logger"
)

const adminEmail = "admin@example.com"

type testEnv struct {
	t       *testing.T
	srv     *Server
	store   *db.Store
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	store := db.NewStore(conn)

	cfg := config.Config{AdminEmail: adminEmail, FrontendURL: "http://localhost:5173"}
	srv := NewServer(cfg, store, logger.Discard())
	srv.now = func() time.Time { return time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC) }
	return &testEnv{t: t, srv: srv, store: store, handler: srv.RegisterRoutes()}
}

// login creates a user and returns its session token.
func (e *testEnv) login(email string) (*db.User, string) {
	e.t.Helper()
	token := auth.NewSessionToken()
	u, err := e.store.UpsertUser(context.Background(), db.User{Username: strings.Split(email, "@")[0], Email: email, SessionToken: token}, auth.NewPublicUserID())
	require.NoError(e.t, err)
	return u, token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type habitEnvelope struct {
	Habit struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Frequency     []any  `json:"frequency"`
		CompletedDays []struct {
			Date string `json:"date"`
		} `json:"completedDays"`
		Areas []struct {
			ID string `json:"id"`
		} `json:"areas"`
	} `json:"habit"`
}

func (e *testEnv) createHabit(token string, body string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/habits", token, body)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[habitEnvelope](e.t, rec).Habit.ID
}

const readHabit = `{
	"name": "Read",
	"icon": "book",
	"frequency": [{"type": "weekly", "days": ["Mo", "We", "Fr"], "number": 3}],
	"completedDays": [{"date": "2024-06-03"}, "2024-06-05", {"_id": "dup", "date": "2024-06-05"}],
	"isNotificationOn": false
}`

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/habits", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/habits", "bogus", nil).Code)
}

func TestBannedUserIsRejected(t *testing.T) {
	e := newTestEnv(t)
	u, token := e.login("a@example.com")
	require.NoError(t, e.store.DB().Model(u).Update("banned", true).Error)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/habits", token, nil).Code)
}

func TestHabitCRUD(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")

	id := e.createHabit(token, readHabit)

	rec := e.do(http.MethodGet, "/api/habits/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[habitEnvelope](t, rec)
	assert.Equal(t, "Read", got.Habit.Name)
	require.Len(t, got.Habit.CompletedDays, 2)
	assert.Equal(t, "2024-06-03", got.Habit.CompletedDays[0].Date)

	rec = e.do(http.MethodGet, "/api/habits", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Habits []json.RawMessage `json:"habits"`
	}](t, rec)
	assert.Len(t, list.Habits, 1)

	rec = e.do(http.MethodPut, "/api/habits/"+id, token, `{"name": "Read daily", "frequency": [], "completedDays": []}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decode[habitEnvelope](t, rec)
	assert.Equal(t, "Read daily", got.Habit.Name)
	assert.Empty(t, got.Habit.CompletedDays)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/habits/"+id, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/habits/"+id, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/habits/"+id, token, nil).Code)
}

func TestCreateHabitValidation(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")

	bodies := []string{
		`not json`,
		`{"name": ""}`,
		`{"name": "x", "frequency": [{"type": "monthly", "days": []}]}`,
		`{"name": "x", "frequency": [{"type": "weekly", "days": ["Monday"]}]}`,
		`{"name": "x", "completedDays": ["06/03/2024"]}`,
		`{"name": "x", "areas": [{"id": "no-such-area"}]}`,
	}
	for _, body := range bodies {
		rec := e.do(http.MethodPost, "/api/habits", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHabitsAreIsolatedBetweenUsers(t *testing.T) {
	e := newTestEnv(t)
	_, alice := e.login("alice@example.com")
	_, bob := e.login("bob@example.com")
	id := e.createHabit(alice, readHabit)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/habits/"+id, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/api/habits/"+id+"/completions/2024-06-07", bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/habits/"+id+"/stats", bob, nil).Code)
}

func TestCompletionToggleAndStats(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")
	id := e.createHabit(token, readHabit)

	type stats struct {
		Due     bool `json:"due"`
		Summary struct {
			Expected  int `json:"expected"`
			Completed int `json:"completed"`
			Missed    int `json:"missed"`
		} `json:"summary"`
		CurrentStreak int     `json:"currentStreak"`
		LongestStreak int     `json:"longestStreak"`
		Consistency   float64 `json:"consistency"`
		Total         int     `json:"total"`
		Heatmap       []struct {
			Date  string `json:"date"`
			Count int    `json:"count"`
		} `json:"heatmap"`
	}

	// Defaults to today, a Friday that is not completed yet.
	rec := e.do(http.MethodGet, "/api/habits/"+id+"/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[stats](t, rec)
	assert.True(t, st.Due)
	assert.Equal(t, 1, st.Summary.Missed)
	assert.Zero(t, st.CurrentStreak)
	assert.Equal(t, 2, st.Total)
	assert.Len(t, st.Heatmap, 2)

	rec = e.do(http.MethodPut, "/api/habits/"+id+"/completions/2024-06-06", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodPut, "/api/habits/"+id+"/completions/2024-06-07", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	st = decode[stats](t, e.do(http.MethodGet, "/api/habits/"+id+"/stats?date=2024-06-07", token, nil))
	assert.Equal(t, 1, st.Summary.Completed)
	assert.Zero(t, st.Summary.Missed)
	assert.Equal(t, 3, st.CurrentStreak)
	assert.Equal(t, 3, st.LongestStreak)
	assert.InDelta(t, 75.0, st.Consistency, 0.001)

	rec = e.do(http.MethodDelete, "/api/habits/"+id+"/completions/2024-06-07", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[stats](t, e.do(http.MethodGet, "/api/habits/"+id+"/stats?date=2024-06-07", token, nil))
	assert.Zero(t, st.CurrentStreak)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPut, "/api/habits/"+id+"/completions/today", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/habits/"+id+"/stats?date=June", token, nil).Code)
}

func TestStatsTodayFollowsClientZone(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")
	id := e.createHabit(token, readHabit)

	date := func(query string) (int, string) {
		rec := e.do(http.MethodGet, "/api/habits/"+id+"/stats"+query, token, nil)
		if rec.Code != http.StatusOK {
			return rec.Code, ""
		}
		return rec.Code, decode[struct {
			Date string `json:"date"`
		}](t, rec).Date
	}

	code, got := date("")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2024-06-07", got)

	// Noon UTC is already the next day at UTC+14.
	code, got = date("?tz=Pacific/Kiritimati")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2024-06-08", got)

	code, got = date("?tz=Pacific/Kiritimati&date=2024-06-05")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2024-06-05", got)

	code, _ = date("?tz=Mars/Olympus")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHabitInsights(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")

	rec := e.do(http.MethodGet, "/api/habit-insights", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	e.createHabit(token, readHabit)
	e.createHabit(token, `{"name": "Water"}`)

	rec = e.do(http.MethodGet, "/api/habit-insights", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Insights []string `json:"insights"`
	}](t, rec)
	assert.Equal(t, []string{
		"Great job! You've completed Read on 2 of its scheduled days. Keep pushing for consistency!",
		"You have set Read to repeat on Mo, We, Fr. Make sure to stay consistent!",
		"You missed Read on the following scheduled days: Fr. Try to catch up!",
		"Don't forget! Try to complete your Water habit. You got this!",
	}, got.Insights)
}

type totals struct {
	Date           string `json:"date"`
	TotalExpected  int    `json:"totalExpected"`
	TotalCompleted int    `json:"totalCompleted"`
	Missed         int    `json:"missed"`
}

func TestDailyHabitDetails(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")
	e.createHabit(token, `{"name": "Read", "frequency": [{"type": "weekly", "days": ["Fr"], "number": 1}], "completedDays": ["2024-06-07"]}`)
	e.createHabit(token, `{"name": "Water"}`)
	e.createHabit(token, `{"name": "Gym", "frequency": [{"type": "weekly", "days": ["Mo"], "number": 1}], "completedDays": ["2024-06-07"]}`)

	rec := e.do(http.MethodGet, "/api/daily-habit-details?date=2024-06-07", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, totals{Date: "2024-06-07", TotalExpected: 2, TotalCompleted: 1, Missed: 1}, decode[totals](t, rec))

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/daily-habit-details", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/daily-habit-details?date=2024-02-30", token, nil).Code)
}

func TestAreas(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")

	rec := e.do(http.MethodPost, "/api/areas", token, `{"name": "Health", "icon": "heart"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	area := decode[struct {
		Area struct {
			ID string `json:"id"`
		} `json:"area"`
	}](t, rec).Area

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/areas", token, `{"name": " "}`).Code)

	id := e.createHabit(token, `{"name": "Run", "areas": [{"_id": "`+area.ID+`"}]}`)
	got := decode[habitEnvelope](t, e.do(http.MethodGet, "/api/habits/"+id, token, nil))
	require.Len(t, got.Habit.Areas, 1)

	rec = e.do(http.MethodDelete, "/api/areas/"+area.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[struct {
		DeletedHabits []string `json:"deletedHabits"`
	}](t, rec)
	assert.Equal(t, []string{id}, deleted.DeletedHabits)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/habits/"+id, token, nil).Code)

	rec = e.do(http.MethodGet, "/api/areas", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct {
		Areas []json.RawMessage `json:"areas"`
	}](t, rec).Areas)
}

func TestDeleteAreaKeepsHabitWithOtherAreas(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")

	areaIDs := map[string]string{}
	for _, name := range []string{"Health", "Study"} {
		rec := e.do(http.MethodPost, "/api/areas", token, `{"name": "`+name+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		areaIDs[name] = decode[struct {
			Area struct {
				ID string `json:"id"`
			} `json:"area"`
		}](t, rec).Area.ID
	}

	runID := e.createHabit(token, `{"name": "Run", "areas": [{"id": "`+areaIDs["Health"]+`"}]}`)
	readID := e.createHabit(token, `{"name": "Read", "areas": [{"id": "`+areaIDs["Health"]+`"}, {"id": "`+areaIDs["Study"]+`"}]}`)

	rec := e.do(http.MethodDelete, "/api/areas/"+areaIDs["Health"], token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[struct {
		DeletedHabits []string `json:"deletedHabits"`
	}](t, rec)
	assert.Equal(t, []string{runID}, deleted.DeletedHabits)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/habits/"+runID, token, nil).Code)
	rec = e.do(http.MethodGet, "/api/habits/"+readID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[habitEnvelope](t, rec)
	require.Len(t, got.Habit.Areas, 1)
	assert.Equal(t, areaIDs["Study"], got.Habit.Areas[0].ID)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("user@example.com")
	for _, path := range []string{"/api/admin/users", "/api/admin/analytics", "/api/admin/active-users"} {
		assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, path, token, nil).Code, path)
	}
}

func TestAdminUserManagement(t *testing.T) {
	e := newTestEnv(t)
	admin, adminToken := e.login(adminEmail)
	user, userToken := e.login("user@example.com")
	e.createHabit(userToken, readHabit)

	rec := e.do(http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[struct {
		Users []adminUser `json:"users"`
	}](t, rec).Users
	require.Len(t, users, 2)
	assert.Equal(t, "user@example.com", users[1].Email)
	assert.Equal(t, "user", users[1].FirstName)

	userPath := "/api/admin/users/" + itoa(user.ID)
	rec = e.do(http.MethodGet, userPath+"/daily-habit-details?date=2024-06-05", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, totals{Date: "2024-06-05", TotalExpected: 1, TotalCompleted: 1}, decode[totals](t, rec))

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, userPath+"/ban", adminToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/habits", userToken, nil).Code)
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, userPath+"/unban", adminToken, nil).Code)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/admin/users/"+itoa(admin.ID)+"/ban", adminToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodDelete, "/api/admin/users/"+itoa(admin.ID), adminToken, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/admin/users/abc/ban", adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/api/admin/users/9999/ban", adminToken, nil).Code)

	require.Equal(t, http.StatusOK, e.do(http.MethodDelete, userPath, adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, userPath, adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, userPath+"/daily-habit-details?date=2024-06-05", adminToken, nil).Code)
}

func TestAdminAnalyticsAndPurge(t *testing.T) {
	e := newTestEnv(t)
	_, adminToken := e.login(adminEmail)
	_, userToken := e.login("user@example.com")
	id := e.createHabit(userToken, readHabit)
	e.createHabit(userToken, `{"name": "Read"}`)
	e.createHabit(adminToken, `{"name": "Water"}`)

	rec := e.do(http.MethodGet, "/api/admin/analytics", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[db.Analytics](t, rec)
	assert.Equal(t, int64(2), a.TotalUsers)
	assert.Equal(t, int64(3), a.TotalHabits)
	require.NotEmpty(t, a.TopHabits)
	assert.Equal(t, db.HabitCount{HabitName: "Read", Count: 2}, a.TopHabits[0])

	rec = e.do(http.MethodGet, "/api/admin/active-users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Users []adminUser `json:"users"`
	}](t, rec).Users, 2)

	require.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/habits/"+id, userToken, nil).Code)
	rec = e.do(http.MethodPost, "/api/admin/purge", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, db.PurgeResult{Habits: 1}, decode[db.PurgeResult](t, rec))
}

func TestLogoutEndsSession(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.login("a@example.com")

	rec := e.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["isAdmin"])

	rec = e.do(http.MethodGet, "/auth/logout/google", token, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Location"))
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/me", token, nil).Code)
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
