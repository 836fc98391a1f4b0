package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Dashboard(t *testing.T) {
	server, tr := newTestServer(t)
	h := server.routes()

	t.Run("empty", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.Contains(t, body, "<title>Attendance Tracker</title>")
		assert.Contains(t, body, "No subjects yet")
		assert.Contains(t, body, `class="undo-button" disabled`)
		assert.Contains(t, body, `<span class="aggregate">0.00%</span>`)
		assert.Contains(t, body, `<span class="hostname-badge">test-host</span>`)
		assert.Contains(t, body, `href="/export/pdf"`)
	})

	t.Run("with subjects", func(t *testing.T) {
		require.NoError(t, tr.Add("Math"))
		require.NoError(t, tr.Add("<Art>"))
		m, err := tr.At(1)
		require.NoError(t, err)
		require.NoError(t, tr.MarkPresent(m.ID))

		req := httptest.NewRequest("GET", "/", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `<h2 class="subject-name">Math</h2>`)
		assert.Contains(t, body, `<h2 class="subject-name">&lt;Art&gt;</h2>`)
		assert.Contains(t, body, `action="/subjects/`+m.ID+`/present"`)
		assert.Contains(t, body, `<span class="percentage">100.00%</span>`)
		assert.Contains(t, body, `<span class="aggregate">50.00%</span>`)
		assert.NotContains(t, body, `class="undo-button" disabled`)
	})

	t.Run("unknown path", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/blah", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_Scenario(t *testing.T) {
	server, tr := newTestServer(t)
	h := server.routes()

	w := postForm(t, h, "/subjects", url.Values{"name": {"Math"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	require.Len(t, tr.Subjects(), 1)
	id := tr.Subjects()[0].ID

	w = postForm(t, h, "/subjects/"+id+"/present", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	w = postForm(t, h, "/subjects/"+id+"/absent", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, 1, tr.Subjects()[0].Present)
	assert.Equal(t, 2, tr.Subjects()[0].Total)

	w = postForm(t, h, "/undo", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, 1, tr.Subjects()[0].Present)
	assert.Equal(t, 1, tr.Subjects()[0].Total)
	assert.False(t, tr.CanUndo())

	// empty name ignored
	w = postForm(t, h, "/subjects", url.Values{"name": {""}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Len(t, tr.Subjects(), 1)
}

func TestServer_NotFound(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.routes()

	for _, path := range []string{"/subjects/nope/present", "/subjects/nope/absent"} {
		w := postForm(t, h, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := postForm(t, h, "/subjects/nope/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_DeleteConfirmation(t *testing.T) {
	server, tr := newTestServer(t)
	h := server.routes()
	require.NoError(t, tr.Add("a"))
	require.NoError(t, tr.Add("b"))
	id := tr.Subjects()[0].ID

	w := postForm(t, h, "/subjects/"+id+"/delete", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, tr.Subjects(), 2)

	w = postForm(t, h, "/subjects/"+id+"/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	require.Len(t, tr.Subjects(), 1)
	assert.Equal(t, "b", tr.Subjects()[0].Name)
}

func TestServer_RemoveAll(t *testing.T) {
	server, tr := newTestServer(t)
	h := server.routes()
	require.NoError(t, tr.Add("a"))

	w := postForm(t, h, "/remove-all", url.Values{"confirm": {"no"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, tr.Subjects(), 1)

	w = postForm(t, h, "/remove-all", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, tr.Subjects())
}

func TestServer_Export(t *testing.T) {
	server, tr := newTestServer(t)
	h := server.routes()
	require.NoError(t, tr.Add("Math"))

	tbl := []struct {
		format      string
		contentType string
		fileName    string
		prefix      string
	}{
		{"pdf", "application/pdf", "attendance_data.pdf", "%PDF-"},
		{"text", "text/plain; charset=utf-8", "attendance_data.txt", "Attendance Data\n"},
		{"yaml", "application/yaml", "attendance_data.yaml", "subjects:"},
		{"json", "application/json", "attendance_data.json", "{"},
	}
	for _, tt := range tbl {
		t.Run(tt.format, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/export/"+tt.format, http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="`+tt.fileName+`"`, w.Header().Get("Content-Disposition"))
			assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte(tt.prefix)), w.Body.String())
		})
	}

	t.Run("bad format", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/export/docx", http.NoBody)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_CrossOriginRejected(t *testing.T) {
	server, tr := newTestServer(t)
	h := server.routes()

	req := httptest.NewRequest("POST", "/subjects", strings.NewReader("name=Math"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, tr.Subjects())
}

func TestServer_Static(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/static/style.css", http.NoBody)
	w := httptest.NewRecorder()
	server.routes().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "#attendance-table")
}
