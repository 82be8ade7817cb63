package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chachabrian/rescuelink-backend/internal/auth"
	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/chachabrian/rescuelink-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidentRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, auth.Options{})

	res := s.do(t, http.MethodGet, "/api/incidents", nil, false)
	assert.Equal(t, http.StatusUnauthorized, res.code)
}

func TestReportAndListIncidents(t *testing.T) {
	s := newTestServer(t, auth.Options{})

	res := s.do(t, http.MethodPost, "/api/incidents", gin.H{
		"title":    "Car fire on Mombasa Road",
		"category": "fire",
		"priority": "high",
		"location": gin.H{"lat": -1.32, "lng": 36.85},
	}, true)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	inc := res.body["incident"].(map[string]interface{})
	assert.Equal(t, "pending", inc["status"])
	assert.Equal(t, "high", inc["priority"])
	assert.Equal(t, float64(s.user.ID), inc["reportedBy"])

	res = s.do(t, http.MethodPost, "/api/incidents", gin.H{
		"title": "Cardiac arrest", "category": "medical", "priority": "critical",
	}, true)
	require.Equal(t, http.StatusCreated, res.code)

	res = s.do(t, http.MethodGet, "/api/incidents", nil, true)
	require.Equal(t, http.StatusOK, res.code)
	list := res.body["incidents"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, "Cardiac arrest", list[0].(map[string]interface{})["title"])

	res = s.do(t, http.MethodGet, "/api/incidents?category=fire", nil, true)
	assert.Equal(t, float64(1), res.body["count"])

	res = s.do(t, http.MethodGet, "/api/incidents/"+inc["id"].(string), nil, true)
	assert.Equal(t, http.StatusOK, res.code)

	res = s.do(t, http.MethodGet, "/api/incidents/nope", nil, true)
	assert.Equal(t, http.StatusNotFound, res.code)
}

func TestReportIncidentValidation(t *testing.T) {
	s := newTestServer(t, auth.Options{})

	bad := []gin.H{
		{"category": "fire", "priority": "high"},
		{"title": "x", "category": "fire", "priority": "urgent"},
		{"title": "x", "category": "flood", "priority": "low"},
		{"title": "x", "category": "police", "priority": "low", "location": gin.H{"lat": 120, "lng": 0}},
	}
	for _, body := range bad {
		res := s.do(t, http.MethodPost, "/api/incidents", body, true)
		assert.Equal(t, http.StatusBadRequest, res.code, body)
	}
	assert.Empty(t, s.board.Snapshot(incidents.Filter{}))
}

func TestDispatchFlow(t *testing.T) {
	s := newTestServer(t, auth.Options{})

	low, err := s.board.Report(incidents.NewIncident{Title: "Smoke", Category: incidents.CategoryFire, Priority: incidents.PriorityLow})
	require.NoError(t, err)
	critical, err := s.board.Report(incidents.NewIncident{Title: "Blaze", Category: incidents.CategoryFire, Priority: incidents.PriorityCritical})
	require.NoError(t, err)

	res := s.do(t, http.MethodPost, "/api/responders", gin.H{"name": "Engine 4", "agency": "fire"}, true)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	responderID := res.body["responder"].(map[string]interface{})["id"].(string)

	res = s.do(t, http.MethodPost, "/api/responders/"+responderID+"/assign", nil, true)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, critical.ID, res.body["incident"].(map[string]interface{})["id"])

	res = s.do(t, http.MethodPost, "/api/responders/"+responderID+"/assign", gin.H{"incidentId": low.ID}, true)
	assert.Equal(t, http.StatusConflict, res.code)

	res = s.do(t, http.MethodPatch, "/api/incidents/"+critical.ID+"/status", gin.H{"status": "resolved"}, true)
	require.Equal(t, http.StatusOK, res.code)

	res = s.do(t, http.MethodPost, "/api/responders/"+responderID+"/assign", gin.H{"incidentId": low.ID}, true)
	require.Equal(t, http.StatusOK, res.code)

	// Still working the low-priority call.
	res = s.do(t, http.MethodPost, "/api/responders/"+responderID+"/availability", gin.H{"available": true}, true)
	assert.Equal(t, http.StatusConflict, res.code, res.body)

	res = s.do(t, http.MethodPost, "/api/responders/"+responderID+"/availability", gin.H{"available": false}, true)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, false, res.body["responder"].(map[string]interface{})["available"])
	assert.Equal(t, low.ID, res.body["responder"].(map[string]interface{})["incidentId"])

	res = s.do(t, http.MethodPost, "/api/responders/"+responderID+"/availability", gin.H{}, true)
	assert.Equal(t, http.StatusBadRequest, res.code)

	res = s.do(t, http.MethodGet, "/api/responders", nil, true)
	assert.Equal(t, float64(1), res.body["count"])

	res = s.do(t, http.MethodPatch, "/api/incidents/"+critical.ID+"/status", gin.H{"status": "pending"}, true)
	assert.Equal(t, http.StatusConflict, res.code)
}

type memPhotos struct {
	folder string
}

func (m *memPhotos) UploadImage(_ context.Context, file *multipart.FileHeader, folder string) (string, error) {
	m.folder = folder
	if file.Filename == "notes.txt" {
		return "", services.ErrUnsupportedImage
	}
	return "https://cdn.example/" + folder + "/" + file.Filename, nil
}

func TestUploadIncidentPhoto(t *testing.T) {
	photos := &memPhotos{}
	s := newTestServer(t, auth.Options{}, func(d *Deps) { d.Photos = photos })

	inc, err := s.board.Report(incidents.NewIncident{Title: "Flooded road", Category: incidents.CategoryPolice, Priority: incidents.PriorityMedium})
	require.NoError(t, err)

	upload := func(id, name string) response {
		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		part, err := w.CreateFormFile("photo", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("\xff\xd8\xff\xe0 jpeg"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/incidents/"+id+"/photo", body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+s.token)
		return s.serve(t, req)
	}

	res := upload(inc.ID, "scene.jpg")
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, "incidents", photos.folder)

	got, err := s.board.Get(inc.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/incidents/scene.jpg", got.PhotoURL)

	assert.Equal(t, http.StatusBadRequest, upload(inc.ID, "notes.txt").code)
	assert.Equal(t, http.StatusNotFound, upload("missing", "scene.jpg").code)
}
