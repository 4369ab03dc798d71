package subject_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docketry/docket/internal/subject"
	"github.com/docketry/docket/pkg/api"
)

func sampleUpdate() *subject.Update {
	return &subject.Update{
		SubjectID:  "case-1",
		InstanceID: "i1",
		Stage:      "filing",
		RunState:   api.RunActive,
	}
}

func TestHTTPUpdaterDelivers(t *testing.T) {
	var received subject.Update
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NoError(t,
				json.NewDecoder(r.Body).Decode(&received))
			_, _ = w.Write([]byte(`{"ok": true}`))
		}))
	defer srv.Close()

	up := subject.NewHTTPUpdater(srv.URL, time.Second)
	err := up.Update(context.Background(), sampleUpdate())
	assert.NoError(t, err)
	assert.Equal(t, api.SubjectID("case-1"), received.SubjectID)
	assert.Equal(t, api.StageID("filing"), received.Stage)
}

func TestHTTPUpdaterAppendNote(t *testing.T) {
	var received subject.Note
	var path string
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			assert.NoError(t,
				json.NewDecoder(r.Body).Decode(&received))
			_, _ = w.Write([]byte(`{"ok": true}`))
		}))
	defer srv.Close()

	up := subject.NewHTTPUpdater(srv.URL+"/subject", time.Second)
	err := up.AppendNote(context.Background(), &subject.Note{
		SubjectID:  "case-1",
		InstanceID: "i1",
		Actor:      "clerk",
		Text:       "expedited by court order",
	})
	assert.NoError(t, err)
	assert.Equal(t, "/subject/note", path)
	assert.Equal(t, "expedited by court order", received.Text)
	assert.Equal(t, api.ActorID("clerk"), received.Actor)
}

func TestHTTPUpdaterServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
	defer srv.Close()

	up := subject.NewHTTPUpdater(srv.URL, time.Second)
	err := up.Update(context.Background(), sampleUpdate())
	assert.ErrorIs(t, err, api.ErrTransientInfra)
	assert.ErrorIs(t, err, subject.ErrSubjectError)
}

func TestHTTPUpdaterRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ok": false, "error": "archived"}`))
		}))
	defer srv.Close()

	up := subject.NewHTTPUpdater(srv.URL, time.Second)
	err := up.Update(context.Background(), sampleUpdate())
	assert.ErrorIs(t, err, subject.ErrSubjectRejected)
}

func TestNullUpdater(t *testing.T) {
	up := &subject.NullUpdater{}
	assert.NoError(t, up.Update(context.Background(), sampleUpdate()))
	assert.NoError(t, up.AppendNote(context.Background(), &subject.Note{}))
}

func TestRecorder(t *testing.T) {
	rec := subject.NewRecorder()
	assert.NoError(t, rec.Update(context.Background(), sampleUpdate()))
	assert.NoError(t, rec.AppendNote(context.Background(),
		&subject.Note{InstanceID: "i1", Text: "noted"}))
	assert.Len(t, rec.Updates(), 1)
	assert.Len(t, rec.Notes(), 1)

	rec.Fail = assert.AnError
	assert.Error(t, rec.Update(context.Background(), sampleUpdate()))
	assert.Len(t, rec.Updates(), 1)
}
