package view

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwkbu-monitor/iwkbu-monitor/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderFlashPartial(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "partials/flash", TemplateData{Flash: &shared.FlashMessage{Kind: "success", Message: "<b>ok</b>"}})
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `class="flash flash-success"`)
	assert.Contains(t, rec.Body.String(), "&lt;b&gt;ok&lt;/b&gt;")
}

func TestRenderUnknownTemplateWritesNothing(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assert.Error(t, engine.Render(rec, "pages/missing.html", TemplateData{}))
	assert.Empty(t, rec.Body.String())

	var nilEngine *Engine
	assert.Error(t, nilEngine.Render(rec, "partials/flash", TemplateData{}))
}

func TestFuncs(t *testing.T) {
	funcs := Funcs()
	formatDate := funcs["formatDate"].(func(time.Time) string)
	assert.Equal(t, "", formatDate(time.Time{}))
	assert.Equal(t, "17 May 2024 08:30", formatDate(time.Date(2024, 5, 17, 8, 30, 0, 0, time.UTC)))
	assert.Equal(t, 3, funcs["inc"].(func(int) int)(2))
	assert.Equal(t, 10, funcs["add"].(func(int, int) int)(2, 8))
	assert.Equal(t, 12, funcs["mul"].(func(int, int) int)(3, 4))
}
