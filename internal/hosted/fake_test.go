package hosted

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testKey = "service-role-key"

type fakeObject struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

type fakeUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	password string
}

// fakeProject emulates the storage, REST and auth APIs of a project.
type fakeProject struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	users   []fakeUser
	posts   []map[string]interface{}
	clock   time.Time

	restQueries   []string
	listCTypes    []string
	recoverEmails []string
}

func newFakeProject(t *testing.T) (*fakeProject, *Client) {
	t.Helper()
	fp := &fakeProject{
		objects: map[string]fakeObject{},
		clock:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /storage/v1/object/list/{bucket}", fp.listObjects)
	mux.HandleFunc("POST /storage/v1/object/{path...}", fp.uploadObject)
	mux.HandleFunc("GET /storage/v1/object/{path...}", fp.downloadObject)
	mux.HandleFunc("/rest/v1/blog_posts", fp.handlePosts)
	mux.HandleFunc("GET /auth/v1/admin/users", fp.listUsers)
	mux.HandleFunc("POST /auth/v1/admin/users", fp.createUser)
	mux.HandleFunc("GET /auth/v1/admin/users/{id}", fp.getUser)
	mux.HandleFunc("POST /auth/v1/token", fp.token)
	mux.HandleFunc("POST /auth/v1/recover", fp.recover)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL + "/", Key: testKey})
	require.NoError(t, err)
	return fp, c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (fp *fakeProject) uploadObject(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	key := r.PathValue("path")
	if _, ok := fp.objects[key]; ok && r.Header.Get("x-upsert") != "true" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"statusCode": "409",
			"error":      "Duplicate",
			"message":    "The resource already exists",
		})
		return
	}
	data, _ := io.ReadAll(r.Body)
	fp.clock = fp.clock.Add(time.Second)
	fp.objects[key] = fakeObject{data: data, contentType: r.Header.Get("Content-Type"), updatedAt: fp.clock}
	writeJSON(w, http.StatusOK, map[string]string{"Key": key})
}

func (fp *fakeProject) downloadObject(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	obj, ok := fp.objects[r.PathValue("path")]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"statusCode": "404",
			"error":      "not_found",
			"message":    "Object not found",
		})
		return
	}
	_, _ = w.Write(obj.data)
}

func (fp *fakeProject) listObjects(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	fp.listCTypes = append(fp.listCTypes, r.Header.Get("Content-Type"))
	var body struct {
		Prefix string `json:"prefix"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	bucketPrefix := r.PathValue("bucket") + "/"
	dir := bucketPrefix
	if p := strings.Trim(body.Prefix, "/"); p != "" {
		dir += p + "/"
	}
	folders := map[string]bool{}
	out := []map[string]interface{}{}
	keys := make([]string, 0, len(fp.objects))
	for k := range fp.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !strings.HasPrefix(k, dir) {
			continue
		}
		rest := strings.TrimPrefix(k, dir)
		if i := strings.Index(rest, "/"); i >= 0 {
			if !folders[rest[:i]] {
				folders[rest[:i]] = true
				out = append(out, map[string]interface{}{"name": rest[:i], "id": nil})
			}
			continue
		}
		obj := fp.objects[k]
		out = append(out, map[string]interface{}{
			"name":       rest,
			"id":         "id-" + rest,
			"updated_at": obj.updatedAt.Format(time.RFC3339Nano),
			"created_at": obj.updatedAt.Format(time.RFC3339Nano),
			"metadata":   map[string]interface{}{"size": len(obj.data)},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (fp *fakeProject) handlePosts(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	fp.restQueries = append(fp.restQueries, r.Method+" "+r.URL.RawQuery)
	switch r.Method {
	case http.MethodGet:
		out := []map[string]interface{}{}
		for _, p := range fp.posts {
			if r.URL.Query().Get("published") == "eq.true" && p["published"] != true {
				continue
			}
			if slug := r.URL.Query().Get("slug"); slug != "" && "eq."+p["slug"].(string) != slug {
				continue
			}
			out = append(out, p)
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var row map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&row)
		for _, p := range fp.posts {
			if p["slug"] == row["slug"] {
				writeJSON(w, http.StatusConflict, map[string]string{
					"code":    "23505",
					"message": `duplicate key value violates unique constraint "blog_posts_slug_key"`,
				})
				return
			}
		}
		fp.posts = append(fp.posts, row)
		writeJSON(w, http.StatusCreated, []map[string]interface{}{row})
	case http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		out := []map[string]interface{}{}
		kept := fp.posts[:0]
		for _, p := range fp.posts {
			if p["id"] == id {
				out = append(out, p)
				continue
			}
			kept = append(kept, p)
		}
		fp.posts = kept
		writeJSON(w, http.StatusOK, out)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (fp *fakeProject) adminAuthorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+testKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "not admin"})
		return false
	}
	return true
}

func (fp *fakeProject) listUsers(w http.ResponseWriter, r *http.Request) {
	if !fp.adminAuthorized(w, r) {
		return
	}
	fp.mu.Lock()
	defer fp.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": fp.users})
}

func (fp *fakeProject) createUser(w http.ResponseWriter, r *http.Request) {
	if !fp.adminAuthorized(w, r) {
		return
	}
	var req struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		EmailConfirm bool   `json:"email_confirm"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	fp.mu.Lock()
	defer fp.mu.Unlock()
	for _, u := range fp.users {
		if u.Email == req.Email {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": "already registered"})
			return
		}
	}
	u := fakeUser{ID: "5b9f7a5e-0c37-4a57-9a2e-3f0c7d2b8a11", Email: req.Email, password: req.Password}
	fp.users = append(fp.users, u)
	writeJSON(w, http.StatusOK, u)
}

func (fp *fakeProject) getUser(w http.ResponseWriter, r *http.Request) {
	if !fp.adminAuthorized(w, r) {
		return
	}
	fp.mu.Lock()
	defer fp.mu.Unlock()
	for _, u := range fp.users {
		if u.ID == r.PathValue("id") {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"msg": "User not found"})
}

func (fp *fakeProject) token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	fp.mu.Lock()
	defer fp.mu.Unlock()
	for _, u := range fp.users {
		if u.Email == req.Email && u.password == req.Password {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"access_token": "jwt",
				"token_type":   "bearer",
				"user":         u,
			})
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":             "invalid_grant",
		"error_description": "Invalid login credentials",
	})
}

func (fp *fakeProject) recover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.recoverEmails = append(fp.recoverEmails, req.Email)
	writeJSON(w, http.StatusOK, map[string]string{})
}
